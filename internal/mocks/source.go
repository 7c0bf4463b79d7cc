package mocks

import (
	"context"
	"io"

	"github.com/brettbedarf/vkernel"
	"github.com/stretchr/testify/mock"
)

// MockContentSource implements vkernel.ContentSource for testing across packages
type MockContentSource struct {
	mock.Mock
}

func (m *MockContentSource) Open(ctx context.Context) (io.ReadCloser, error) {
	args := m.Called(ctx)

	// Handle function return types (for complex tests)
	if fn, ok := args.Get(0).(func(context.Context) io.ReadCloser); ok {
		return fn(ctx), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

var _ vkernel.ContentSource = (*MockContentSource)(nil)

// MockSourceProvider implements vkernel.SourceProvider for testing across packages
type MockSourceProvider struct {
	mock.Mock
}

func (m *MockSourceProvider) NewSource(raw []byte) (vkernel.ContentSource, error) {
	args := m.Called(raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(vkernel.ContentSource), args.Error(1)
}

var _ vkernel.SourceProvider = (*MockSourceProvider)(nil)
