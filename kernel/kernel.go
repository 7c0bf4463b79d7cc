// Package kernel owns the kernel state (node store, descriptor table and
// process registry) and exposes it through syscalls. Every syscall holds the
// kernel lock for its whole duration, so calls observe a strict total order.
package kernel

import (
	"fmt"
	"sync"
	"time"

	"github.com/brettbedarf/vkernel"
	"github.com/brettbedarf/vkernel/config"
	"github.com/brettbedarf/vkernel/fdtable"
	"github.com/brettbedarf/vkernel/internal/util"
	"github.com/brettbedarf/vkernel/proc"
	"github.com/brettbedarf/vkernel/vfs"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
)

// bannerTagline follows the release in the boot banner
const bannerTagline = "Go-based virtual OS"

type Kernel struct {
	cfg *config.Config

	mu    sync.Mutex // Protects every field below
	nodes *vfs.Store
	files *fdtable.Table
	procs *proc.Registry

	booted      bool
	bootID      uuid.UUID
	startTime   time.Time
	currentTime time.Time

	// Per-syscall invocation counts. Read without mu so stats never wait
	// behind a syscall.
	calls *xsync.Map[string, *xsync.Counter]
}

// New returns an unbooted kernel holding only the root directory and init.
// Syscalls work before Boot; they see the bare tree.
func New(cfg *config.Config) *Kernel {
	nodes := vfs.NewStore()
	return &Kernel{
		cfg:   cfg,
		nodes: nodes,
		files: fdtable.New(nodes, vkernel.FD(cfg.FirstFD), vkernel.FD(cfg.MaxFD)),
		procs: proc.NewRegistry(),
		calls: xsync.NewMap[string, *xsync.Counter](),
	}
}

// enter counts the syscall and takes the kernel lock. Callers defer the
// returned func to release it:
//
//	defer k.enter("fs_list")()
func (k *Kernel) enter(syscall string) func() {
	k.count(syscall)
	k.mu.Lock()
	return k.mu.Unlock
}

func (k *Kernel) count(syscall string) {
	c, _ := k.calls.LoadOrStore(syscall, xsync.NewCounter())
	c.Inc()
}

// Boot creates the standard directories, starts the uptime clock at now and
// returns the banner. Only the first call boots; later calls fail with
// ErrAlreadyBooted and change nothing.
func (k *Kernel) Boot(now time.Time) (string, error) {
	defer k.enter("boot")()
	logger := util.GetLogger("Kernel.Boot")

	if k.booted {
		logger.Warn().Str("bootID", k.bootID.String()).Msg("Boot called on a booted kernel")
		return "", vkernel.ErrAlreadyBooted
	}

	for _, dir := range k.cfg.StandardDirs {
		if _, err := k.nodes.MkdirAll(dir); err != nil {
			// a node created before boot may already hold the name
			logger.Warn().Err(err).Str("dir", dir).Msg("Skipping standard directory")
		}
	}
	k.booted = true
	k.bootID = uuid.New()
	k.startTime = now
	k.currentTime = now

	logger.Info().
		Str("bootID", k.bootID.String()).
		Strs("dirs", k.cfg.StandardDirs).
		Msg("Kernel booted")
	return fmt.Sprintf("%s v%s (%s)\nType 'help' for command list.\n",
		k.cfg.SysName, k.cfg.Release, bannerTagline), nil
}

// Booted reports whether Boot has succeeded
func (k *Kernel) Booted() bool {
	defer k.enter("booted")()
	return k.booted
}

// BootID returns the id assigned at boot, or uuid.Nil before boot
func (k *Kernel) BootID() uuid.UUID {
	defer k.enter("boot_id")()
	return k.bootID
}

// UpdateTime records the latest wall-clock reading from the timer driver
func (k *Kernel) UpdateTime(now time.Time) {
	defer k.enter("update_time")()
	k.currentTime = now
}

// Uptime returns the time between boot and the latest UpdateTime. It is 0
// before boot and whenever the latest reading is earlier than the boot time.
func (k *Kernel) Uptime() time.Duration {
	defer k.enter("uptime")()
	if k.booted && !k.currentTime.Before(k.startTime) {
		return k.currentTime.Sub(k.startTime)
	}
	return 0
}

// Uname returns the fixed identification string
func (k *Kernel) Uname() string {
	defer k.enter("uname")()
	return fmt.Sprintf("%s v%s (%s)", k.cfg.SysName, k.cfg.Release, k.cfg.Machine)
}

// Shutdown closes every open descriptor and returns how many were closed.
// The tree and process table are left intact.
func (k *Kernel) Shutdown() int {
	defer k.enter("shutdown")()
	n := k.files.CloseAll()
	logger := util.GetLogger("Kernel.Shutdown")
	logger.Info().Int("closedFDs", n).Msg("Kernel shut down")
	return n
}

// Stats returns a snapshot of how often each syscall has been invoked
func (k *Kernel) Stats() map[string]int64 {
	k.count("sysstat")
	out := make(map[string]int64, k.calls.Size())
	k.calls.Range(func(name string, c *xsync.Counter) bool {
		out[name] = c.Value()
		return true
	})
	return out
}
