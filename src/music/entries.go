package music

import (
	"bytes"
	"errors"
)

// EntryMarker starts every playlist entry line of an extended M3U file.
const EntryMarker = "#EXTINF:"

var entryMarker = []byte(EntryMarker)

var errCounterFinished = errors.New("entry counter already finished")

// Ingest is the outcome of counting a playlist source text.
type Ingest struct {
	EntryCount int
	// Content is the complete source text, or nil when it was larger than the retention ceiling.
	Content *string
	Size    int64
}

// EntryCounter counts playlist entries over a stream of chunks and keeps
// the full text as long as the total size stays within the retention
// ceiling. Every Write is one chunk. A counter serves a single ingestion
// and must be closed with Finish.
type EntryCounter struct {
	ceiling  int64
	pending  []byte
	retained bytes.Buffer
	size     int64
	count    int
	overflow bool
	done     bool
}

// NewEntryCounter creates a counter that retains at most ceiling bytes (inclusive).
func NewEntryCounter(ceiling int64) *EntryCounter {
	return &EntryCounter{ceiling: ceiling}
}

// Write consumes one chunk. Markers are only counted once their line is
// complete, so a marker split across two chunks is seen exactly once.
func (c *EntryCounter) Write(p []byte) (int, error) {
	if c.done {
		return 0, errCounterFinished
	}
	c.size += int64(len(p))
	if !c.overflow && c.size > c.ceiling {
		// Once over the ceiling the text is never kept again.
		c.overflow = true
		c.retained = bytes.Buffer{}
	}

	c.pending = append(c.pending, p...)
	cut := bytes.LastIndexByte(c.pending, '\n')
	if cut < 0 {
		return len(p), nil
	}
	c.consume(c.pending[:cut+1])
	n := copy(c.pending, c.pending[cut+1:])
	c.pending = c.pending[:n]
	return len(p), nil
}

func (c *EntryCounter) consume(complete []byte) {
	c.count += bytes.Count(complete, entryMarker)
	if !c.overflow {
		c.retained.Write(complete)
	}
}

// Size returns the number of bytes written so far.
func (c *EntryCounter) Size() int64 {
	return c.size
}

// Finish flushes the trailing unterminated line and returns the result.
// Calling it again returns the same result.
func (c *EntryCounter) Finish() Ingest {
	if !c.done {
		c.consume(c.pending)
		c.pending = nil
		c.done = true
	}
	result := Ingest{EntryCount: c.count, Size: c.size}
	if !c.overflow {
		content := c.retained.String()
		result.Content = &content
	}
	return result
}

// CountEntries runs the counter over a text supplied whole.
func CountEntries(text string, ceiling int64) Ingest {
	counter := NewEntryCounter(ceiling)
	counter.Write([]byte(text))
	return counter.Finish()
}
