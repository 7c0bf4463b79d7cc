package server

import (
	"testing"
	"time"

	"github.com/brettbedarf/vkernel"
	"github.com/brettbedarf/vkernel/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	cfg := config.NewDefaultConfig()
	v := New(cfg)

	assert.Same(t, cfg, v.Config())
	assert.False(t, v.Mounted())
	assert.NoError(t, v.Unmount(), "unmount without a mount is a no-op")

	// the embedded kernel is live
	_, err := v.Boot(time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, vkernel.Directory, v.Exists("/tmp"))
}
