// Package server composes a configured kernel with its optional host-facing
// surfaces.
package server

import (
	"fmt"

	"github.com/brettbedarf/vkernel/config"
	"github.com/brettbedarf/vkernel/fusefs"
	"github.com/brettbedarf/vkernel/internal/util"
	"github.com/brettbedarf/vkernel/kernel"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// VKernel holds the kernel plus the FUSE server mirroring its tree, if mounted
type VKernel struct {
	*kernel.Kernel
	cfg    *config.Config
	server *fuse.Server
}

// New creates an unbooted VKernel from cfg
func New(cfg *config.Config) *VKernel {
	return &VKernel{
		Kernel: kernel.New(cfg),
		cfg:    cfg,
	}
}

// Config returns the configuration the kernel was built with
func (v *VKernel) Config() *config.Config {
	return v.cfg
}

// Serve mounts the read-only mirror at mountPoint and returns once the mount
// is live. Requests are served in the background until Unmount.
func (v *VKernel) Serve(mountPoint string) error {
	if v.server != nil {
		return fmt.Errorf("already mounted")
	}
	raw := fusefs.NewFuseRaw(v.Kernel)
	opts := v.cfg.MountOptions
	srv, err := fuse.NewServer(raw, mountPoint, &fuse.MountOptions{
		Name:   opts.Name,
		FsName: opts.FsName,
		Debug:  opts.Debug || v.cfg.LogLvl == util.TraceLevel,
		Logger: util.NewLogLogger("FuseServer", util.DebugLevel),
	})
	if err != nil {
		return fmt.Errorf("mount %s: %w", mountPoint, err)
	}
	v.server = srv

	go srv.Serve()
	if err := srv.WaitMount(); err != nil {
		v.server = nil
		return fmt.Errorf("mount %s: %w", mountPoint, err)
	}
	logger := util.GetLogger("Server")
	logger.Info().Str("mountPoint", mountPoint).Msg("Mounted")
	return nil
}

// Mounted reports whether a mirror is being served
func (v *VKernel) Mounted() bool {
	return v.server != nil
}

// Unmount cleanly unmounts the mirror. It is a no-op when nothing is mounted.
func (v *VKernel) Unmount() error {
	if v.server == nil {
		return nil
	}
	if err := v.server.Unmount(); err != nil {
		return err
	}
	v.server = nil
	return nil
}
