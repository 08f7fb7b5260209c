package docstore

import "fmt"

// Redis key pattern helpers
//
// All keys and channels are namespaced by instance name so multiple Concord
// instances can coexist on a single Redis server.
//
// Key pattern: concord:{instance_name}:{entity}[:{path}]

// DocumentKey returns the Redis key for a document.
// Pattern: concord:{instance_name}:doc:{path}
func DocumentKey(instanceName, path string) string {
	return fmt.Sprintf("concord:%s:doc:%s", instanceName, path)
}

// PathIndexKey returns the Redis key for the set of known document paths.
// Pattern: concord:{instance_name}:docs
func PathIndexKey(instanceName string) string {
	return fmt.Sprintf("concord:%s:docs", instanceName)
}

// DocumentEventsChannel returns the Pub/Sub channel name for document events.
// A DocumentEvent is published after every successful write.
// Pattern: concord:{instance_name}:doc_events
func DocumentEventsChannel(instanceName string) string {
	return fmt.Sprintf("concord:%s:doc_events", instanceName)
}
