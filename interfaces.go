package vkernel

import (
	"context"
	"io"
	"time"
)

// Clock is the wall-clock driver. The kernel never reads time on its own;
// callers feed it readings through Boot and UpdateTime.
type Clock interface {
	Now() time.Time
}

// ContentSource produces the initial content of a seeded file
type ContentSource interface {
	// Opens the source and returns a Reader over its whole content
	Open(ctx context.Context) (io.ReadCloser, error)
}

// SourceProvider is a factory for concrete [ContentSource] implementations
// generated from a manifest entry's raw source config
type SourceProvider interface {
	NewSource(raw []byte) (ContentSource, error)
}
