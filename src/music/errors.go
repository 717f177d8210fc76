package music

import "errors"

var (
	ErrNotFound      = errors.New("playlist not found")
	ErrValidation    = errors.New("invalid playlist")
	ErrTooLarge      = errors.New("playlist too large")
	ErrTransport     = errors.New("incomplete upload")
	ErrPersistence   = errors.New("playlist storage failure")
	ErrUpstreamFetch = errors.New("remote playlist fetch failed")
)
