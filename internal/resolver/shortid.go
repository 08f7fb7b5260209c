// Package resolver resolves short thread id prefixes to full thread ids.
package resolver

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/concord-ai/concord/internal/evolution"
	"github.com/concord-ai/concord/pkg/docstore"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
// Set to 6 characters to balance usability with collision avoidance.
const MinShortIDLength = 6

// fullIDLength is the length of a complete thread id: the "thread_" prefix
// plus 12 hex characters.
const fullIDLength = len("thread_") + 12

// ResolveThreadID resolves a short ID prefix to a full thread id.
// Returns the full id if exactly one thread matches.
//
// The function handles three cases:
// 1. Input is already a full thread id - validates existence
// 2. Input is too short (< 6 chars) - returns validation error
// 3. Input is a short prefix - scans for matches and returns unique result
// The "thread_" prefix may be omitted from the input.
func ResolveThreadID(ctx context.Context, store *docstore.Client, shortID string) (string, error) {
	// Normalise: allow users to type just the hex portion
	if !strings.HasPrefix(shortID, "thread_") {
		shortID = "thread_" + shortID
	}

	// If input is already a full id, verify it exists and return as-is
	if len(shortID) == fullIDLength {
		exists, err := store.DocumentExists(ctx, evolution.ThreadPath(shortID))
		if err != nil {
			return "", fmt.Errorf("failed to verify thread existence: %w", err)
		}
		if !exists {
			return "", &NotFoundError{ShortID: shortID}
		}
		return shortID, nil
	}

	// Validate minimum length (counting only what the user typed beyond
	// the implied prefix)
	if len(shortID)-len("thread_") < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID)-len("thread_"))
	}

	// Scan for matching thread ids
	paths, err := store.ListDocuments(ctx, evolution.ThreadsDir+"/")
	if err != nil {
		return "", fmt.Errorf("failed to search for threads: %w", err)
	}

	var matches []string
	for _, p := range paths {
		id := strings.TrimSuffix(path.Base(p), ".json")
		if strings.HasPrefix(id, shortID) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// NotFoundError indicates no threads matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no threads found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple threads matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d threads", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError creates a user-friendly error message for ambiguous
// short IDs. Lists all matching ids (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	msg := fmt.Sprintf("Error: ambiguous short ID '%s' matches %d threads:\n", err.ShortID, len(err.Matches))

	displayCount := len(err.Matches)
	if displayCount > 10 {
		displayCount = 10
	}

	for i := 0; i < displayCount; i++ {
		msg += fmt.Sprintf("  %s\n", err.Matches[i])
	}

	if len(err.Matches) > 10 {
		msg += fmt.Sprintf("  ...and %d more\n", len(err.Matches)-10)
	}

	msg += "\nUse a longer prefix to uniquely identify the thread."
	return msg
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
