package mocks

import (
	"time"

	"github.com/brettbedarf/vkernel"
	"github.com/stretchr/testify/mock"
)

// MockClock implements vkernel.Clock for testing across packages
type MockClock struct {
	mock.Mock
}

func (m *MockClock) Now() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}

var _ vkernel.Clock = (*MockClock)(nil)
