package watcher

import (
	"time"
)

// FileEventType represents the type of file system event
type FileEventType string

const (
	FileCreated  FileEventType = "created"
	FileModified FileEventType = "modified"
)

// FileEvent is emitted once a playlist file has stopped changing.
type FileEvent struct {
	Path      string
	EventType FileEventType
	Timestamp time.Time
}
