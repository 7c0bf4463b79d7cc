package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/brettbedarf/vkernel"
)

// InlineSource carries its content in the manifest itself
type InlineSource struct {
	Content string `json:"content"`
}

type InlineProvider struct{}

func (p *InlineProvider) NewSource(raw []byte) (vkernel.ContentSource, error) {
	var src InlineSource
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

func (s *InlineSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.Content)), nil
}

// HostFileSource copies a file from the host filesystem
type HostFileSource struct {
	Path string `json:"path"`
}

type HostFileProvider struct{}

func (p *HostFileProvider) NewSource(raw []byte) (vkernel.ContentSource, error) {
	var src HostFileSource
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, err
	}
	if src.Path == "" {
		return nil, fmt.Errorf("hostfile source missing path")
	}
	return &src, nil
}

func (s *HostFileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(s.Path)
}
