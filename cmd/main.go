package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/brettbedarf/vkernel/config"
	"github.com/brettbedarf/vkernel/internal/util"
	"github.com/brettbedarf/vkernel/mcpserver"
	"github.com/brettbedarf/vkernel/seed"
	"github.com/brettbedarf/vkernel/server"
	"github.com/brettbedarf/vkernel/shell"
)

const version = "0.2.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run boots a kernel as directed by args and drives it from stdin until the
// shell exits or ctx is cancelled. It returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// Parse command line arguments
	var (
		configPath string
		verbose    int
		seedPath   string
		mnt        string
		umount     bool
		serveMCP   bool
	)
	flags := flag.NewFlagSet("vkernel", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&configPath, "config", "", "Path to a YAML or JSON config file")
	flags.StringVar(&configPath, "c", "", "--config (shorthand)")
	flags.StringVar(&seedPath, "seed", "", "Path to a seed manifest applied after boot")
	flags.StringVar(&seedPath, "s", "", "--seed (shorthand)")
	flags.StringVar(&mnt, "mount", "", "Mirror the file tree read-only at this host directory")
	flags.StringVar(&mnt, "m", "", "--mount (shorthand)")
	flags.BoolVar(&umount, "umount", false,
		"Unmount the mount point first if needed. Useful for debuggers that don't exit properly.")
	flags.BoolVar(&umount, "u", false, "--umount (shorthand)")
	flags.BoolVar(&serveMCP, "mcp", false, "Serve the syscalls as MCP tools on stdio instead of the shell")
	flags.IntVar(&verbose, "verbose", config.InfoVerbose, "Log verbosity level between 1 (error) and 5 (trace). Default is 3 (info).")
	flags.IntVar(&verbose, "v", config.InfoVerbose, "--verbose (shorthand)")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg := config.NewDefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = config.NewConfigFromFile(configPath); err != nil {
			fmt.Fprintf(stderr, "vkernel: %v\n", err)
			return 2
		}
	}
	// An explicit -v wins over the config file
	flags.Visit(func(f *flag.Flag) {
		if f.Name == "verbose" || f.Name == "v" {
			cfg.Merge(&config.ConfigOverride{LogLvl: &verbose})
		}
	})

	// The MCP protocol owns stdout
	logOut := stdout
	if serveMCP {
		logOut = stderr
	}
	util.InitializeLogger(cfg.LogLvl, logOut)
	logger := util.GetLogger("main")
	logger.Debug().Str("config", configPath).Str("seed", seedPath).Str("mnt", mnt).Bool("mcp", serveMCP).
		Msg("vkernel initializing")

	v := server.New(cfg)
	banner, err := v.Boot(time.Now())
	if err != nil {
		logger.Error().Err(err).Msg("Boot failed")
		return 1
	}

	if seedPath != "" {
		m, err := seed.LoadManifestFile(seedPath)
		if err != nil {
			logger.Error().Err(err).Str("seed", seedPath).Msg("Failed to load seed manifest")
			return 1
		}
		r := seed.NewRegistry()
		seed.RegisterBuiltins(r)
		if n, err := seed.Apply(ctx, v, m, r); err != nil {
			logger.Error().Err(err).Int("applied", n).Msg("Failed to apply seed manifest")
			return 1
		}
	}

	if mnt != "" {
		if umount {
			// we ignore error here if not already mounted
			exec.Command("fusermount", "-u", mnt).Run() // nolint:errcheck
		}
		if err := v.Serve(mnt); err != nil {
			logger.Error().Err(err).Msg("Failed to mount file tree")
			return 1
		}
	}

	code := 0
	if serveMCP {
		s := mcpserver.New(v.Kernel, shell.SystemClock{}, cfg.SysName, version)
		if err := s.ServeStdio(); err != nil {
			logger.Error().Err(err).Msg("MCP server stopped")
			code = 1
		}
	} else {
		fmt.Fprint(stdout, banner)
		done := make(chan error, 1)
		go func() {
			done <- shell.New(v, shell.SystemClock{}).Run(ctx, stdin, stdout)
		}()
		select {
		case err := <-done:
			if err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("Shell stopped")
				code = 1
			}
		case <-ctx.Done():
			logger.Info().Msg("Received signal, shutting down")
		}
	}

	v.Shutdown()
	if err := v.Unmount(); err != nil {
		logger.Error().Err(err).Msg("Failed to unmount file tree")
		return 1
	} else if mnt != "" {
		logger.Info().Msg("File tree unmounted")
	}
	return code
}
