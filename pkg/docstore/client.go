package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Document is a stored JSON document plus write bookkeeping.
type Document struct {
	Path        string `json:"path"`          // Repository-style path, e.g. ".ai/protocols/registry.json"
	Content     string `json:"content"`       // UTF-8 JSON text
	Version     int    `json:"version"`       // Incrementing version number (starts at 1)
	Message     string `json:"message"`       // Commit-style message from the last write
	UpdatedAtMs int64  `json:"updated_at_ms"` // Unix timestamp in milliseconds of the last write
}

// DocumentEvent is published to the doc_events channel after every write.
type DocumentEvent struct {
	Path        string `json:"path"`
	Version     int    `json:"version"`
	Message     string `json:"message"`
	UpdatedAtMs int64  `json:"updated_at_ms"`
}

// Client provides instance-scoped document operations.
// All keys and channels are automatically namespaced with the instance name.
// The client is safe for concurrent use from multiple goroutines, but note
// that the store itself offers no locking: concurrent writers to the same
// path race and the last write wins unless an expected version is supplied.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new document store client for the specified instance.
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// InstanceName returns the instance this client is scoped to.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// CreateDocument writes a new document at path.
// Fails with ErrExists if the path is already present.
func (c *Client) CreateDocument(ctx context.Context, path, message, content string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	exists, err := c.rdb.Exists(ctx, DocumentKey(c.instanceName, path)).Result()
	if err != nil {
		return fmt.Errorf("failed to check document existence: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("create %s: %w", path, ErrExists)
	}

	return c.write(ctx, path, message, content, 1)
}

// UpdateDocument replaces an existing document at path.
// Fails with ErrNotFound if the path is absent.
//
// expectedVersion is an optional optimistic-concurrency token: when > 0 and
// different from the stored version, the write fails with ErrConflict and
// the stored document is left unchanged. Pass 0 to skip the check
// (last write wins).
func (c *Client) UpdateDocument(ctx context.Context, path, message, content string, expectedVersion int) error {
	if err := validatePath(path); err != nil {
		return err
	}

	current, err := c.GetDocument(ctx, path)
	if err != nil {
		return err
	}

	if expectedVersion > 0 && current.Version != expectedVersion {
		return fmt.Errorf("update %s: expected version %d, stored version %d: %w",
			path, expectedVersion, current.Version, ErrConflict)
	}

	return c.write(ctx, path, message, content, current.Version+1)
}

// PutDocument creates the document if absent, otherwise replaces it.
// This is the write primitive for the read-modify-write cycle used by all
// Concord components: no expected version, last write wins.
func (c *Client) PutDocument(ctx context.Context, path, message, content string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	version := 1
	current, err := c.GetDocument(ctx, path)
	switch {
	case err == nil:
		version = current.Version + 1
	case IsNotFound(err):
		// first write
	default:
		return err
	}

	return c.write(ctx, path, message, content, version)
}

// GetDocument retrieves the document at path.
// Fails with ErrNotFound if the path is absent.
func (c *Client) GetDocument(ctx context.Context, path string) (*Document, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}

	hashData, err := c.rdb.HGetAll(ctx, DocumentKey(c.instanceName, path)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read document from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, fmt.Errorf("get %s: %w", path, ErrNotFound)
	}

	return hashToDocument(path, hashData)
}

// DocumentExists checks if a document exists without fetching its content.
func (c *Client) DocumentExists(ctx context.Context, path string) (bool, error) {
	if err := validatePath(path); err != nil {
		return false, err
	}

	exists, err := c.rdb.Exists(ctx, DocumentKey(c.instanceName, path)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check document existence: %w", err)
	}
	return exists > 0, nil
}

// ListDocuments returns all known document paths beginning with prefix,
// sorted lexically. An empty prefix lists every path in the instance.
func (c *Client) ListDocuments(ctx context.Context, prefix string) ([]string, error) {
	paths, err := c.rdb.SMembers(ctx, PathIndexKey(c.instanceName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	matched := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.HasPrefix(p, prefix) {
			matched = append(matched, p)
		}
	}
	sort.Strings(matched)
	return matched, nil
}

// write stores the document hash, indexes the path, and publishes an event.
func (c *Client) write(ctx context.Context, path, message, content string, version int) error {
	now := time.Now().UnixMilli()

	hash := map[string]interface{}{
		"content":       content,
		"version":       version,
		"message":       message,
		"updated_at_ms": now,
	}

	if err := c.rdb.HSet(ctx, DocumentKey(c.instanceName, path), hash).Err(); err != nil {
		return fmt.Errorf("failed to write document to Redis: %w", err)
	}

	if err := c.rdb.SAdd(ctx, PathIndexKey(c.instanceName), path).Err(); err != nil {
		return fmt.Errorf("failed to index document path: %w", err)
	}

	event := DocumentEvent{Path: path, Version: version, Message: message, UpdatedAtMs: now}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal document event: %w", err)
	}

	if err := c.rdb.Publish(ctx, DocumentEventsChannel(c.instanceName), eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish document event: %w", err)
	}

	return nil
}

// hashToDocument converts a Redis hash to a Document.
func hashToDocument(path string, hash map[string]string) (*Document, error) {
	version, err := strconv.Atoi(hash["version"])
	if err != nil {
		return nil, fmt.Errorf("invalid version field for %s: %w", path, err)
	}

	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	return &Document{
		Path:        path,
		Content:     hash["content"],
		Version:     version,
		Message:     hash["message"],
		UpdatedAtMs: updatedAtMs,
	}, nil
}

func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("document path cannot be empty")
	}
	return nil
}
