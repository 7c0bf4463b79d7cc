// Package mcpserver exposes the kernel's syscalls as Model Context Protocol
// tools over stdio. Numeric results keep the -1 sentinel encoding of the
// syscall boundary; failures are reported as tool errors carrying the cause.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/brettbedarf/vkernel"
	"github.com/brettbedarf/vkernel/abi"
	"github.com/brettbedarf/vkernel/internal/util"
	"github.com/brettbedarf/vkernel/kernel"
	"github.com/brettbedarf/vkernel/shell"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type Server struct {
	k     *kernel.Kernel
	abi   *abi.ABI
	clock vkernel.Clock
	mcp   *server.MCPServer
	tools map[string]server.ToolHandlerFunc

	// Serialises tool calls so an abi error is read by the call that caused it
	mu sync.Mutex
}

// New builds a tool server over k. clock feeds the kernel before uptime
// queries.
func New(k *kernel.Kernel, clock vkernel.Clock, name, version string) *Server {
	s := &Server{
		k:     k,
		abi:   abi.New(k),
		clock: clock,
		mcp:   server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
		tools: make(map[string]server.ToolHandlerFunc),
	}
	s.addTools()
	return s
}

// ServeStdio serves the protocol on stdin/stdout until stdin closes or the
// process is signalled
func (s *Server) ServeStdio() error {
	logger := util.GetLogger("MCP")
	logger.Info().Int("tools", len(s.tools)).Msg("Serving MCP on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) add(tool mcp.Tool, h server.ToolHandlerFunc) {
	locked := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		logger := util.GetLogger("MCP")
		logger.Debug().Str("tool", req.Params.Name).Msg("Tool called")
		return h(ctx, req)
	}
	s.tools[tool.Name] = locked
	s.mcp.AddTool(tool, locked)
}

// failed renders the abi's last error as a tool error
func (s *Server) failed(op string) *mcp.CallToolResult {
	err := s.abi.Err()
	logger := util.GetLogger("MCP")
	logger.Debug().Err(err).Str("tool", op).Msg("Tool failed")
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", op, err))
}

func argError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

// Bounds of the integer arguments at the syscall boundary. Values outside
// them would wrap onto a different descriptor or pid when narrowed.
const (
	maxFD   = math.MaxInt32
	maxPID  = math.MaxUint32
	maxSize = math.MaxUint32
)

func checkRange(name string, v int, lo, hi int64) error {
	if int64(v) < lo || int64(v) > hi {
		return fmt.Errorf("%s out of range [%d, %d]: %d", name, lo, hi, v)
	}
	return nil
}

// requireIntIn reads a required integer argument bounded by [lo, hi]
func requireIntIn(req mcp.CallToolRequest, name string, lo, hi int64) (int, error) {
	v, err := req.RequireInt(name)
	if err != nil {
		return 0, err
	}
	return v, checkRange(name, v, lo, hi)
}

// intIn reads an optional integer argument bounded by [lo, hi]
func intIn(req mcp.CallToolRequest, name string, def int, lo, hi int64) (int, error) {
	v := req.GetInt(name, def)
	return v, checkRange(name, v, lo, hi)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}

func pathArg() mcp.ToolOption {
	return mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path, e.g. /home/user/notes.txt"))
}

func fdArg() mcp.ToolOption {
	return mcp.WithNumber("fd", mcp.Required(), mcp.Description("Descriptor returned by fs_open"))
}

func (s *Server) addTools() {
	s.add(mcp.NewTool("uname", mcp.WithDescription("Show system identification")),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText(s.abi.Uname()), nil
		})

	s.add(mcp.NewTool("uptime", mcp.WithDescription("Show time since boot")),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			s.k.UpdateTime(s.clock.Now())
			return mcp.NewToolResultText(shell.FormatUptime(s.k.Uptime())), nil
		})

	s.add(mcp.NewTool("fs_create",
		mcp.WithDescription("Create an empty file or directory. The parent must exist."),
		pathArg(),
		mcp.WithBoolean("is_dir", mcp.Description("Create a directory instead of a file")),
	), s.fsCreate)

	s.add(mcp.NewTool("fs_exists",
		mcp.WithDescription("Probe a path: 1 directory, 0 file, -1 absent"),
		pathArg(),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := req.RequireString("path")
		if err != nil {
			return argError(err)
		}
		return mcp.NewToolResultText(strconv.Itoa(int(s.abi.FsExists(p)))), nil
	})

	s.add(mcp.NewTool("fs_list",
		mcp.WithDescription("List a directory as comma-joined sorted names"),
		pathArg(),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := req.RequireString("path")
		if err != nil {
			return argError(err)
		}
		names := s.abi.FsList(p)
		if s.abi.Err() != nil {
			return s.failed("fs_list"), nil
		}
		return mcp.NewToolResultText(names), nil
	})

	s.add(mcp.NewTool("fs_cat",
		mcp.WithDescription("Return the whole content of a file"),
		pathArg(),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := req.RequireString("path")
		if err != nil {
			return argError(err)
		}
		content := s.abi.FsCat(p)
		if s.abi.Err() != nil {
			return s.failed("fs_cat"), nil
		}
		return mcp.NewToolResultText(content), nil
	})

	s.add(mcp.NewTool("fs_stat",
		mcp.WithDescription("Describe a node as JSON"),
		pathArg(),
	), s.fsStat)

	s.add(mcp.NewTool("fs_write_file",
		mcp.WithDescription("Write text to a file, creating it if needed"),
		pathArg(),
		mcp.WithString("content", mcp.Required(), mcp.Description("Text to write")),
		mcp.WithBoolean("append", mcp.Description("Append instead of replacing the content")),
	), s.fsWriteFile)

	s.add(mcp.NewTool("fs_open",
		mcp.WithDescription("Open a file and return a descriptor"),
		pathArg(),
		mcp.WithString("mode", mcp.Required(), mcp.Enum("r", "w", "a"),
			mcp.Description("r read, w truncate then write, a append")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := req.RequireString("path")
		if err != nil {
			return argError(err)
		}
		mode, err := req.RequireString("mode")
		if err != nil {
			return argError(err)
		}
		fd := s.abi.FsOpen(p, mode)
		if fd == abi.Failure {
			return s.failed("fs_open"), nil
		}
		return mcp.NewToolResultText(strconv.Itoa(int(fd))), nil
	})

	s.add(mcp.NewTool("fs_read",
		mcp.WithDescription("Read up to size bytes from a descriptor; empty at end of file"),
		fdArg(),
		mcp.WithNumber("size", mcp.Required(), mcp.Min(0), mcp.Description("Maximum bytes to return")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		fd, err := requireIntIn(req, "fd", 0, maxFD)
		if err != nil {
			return argError(err)
		}
		size, err := requireIntIn(req, "size", 0, maxSize)
		if err != nil {
			return argError(err)
		}
		data := s.abi.FsRead(int32(fd), uint32(size))
		if s.abi.Err() != nil {
			return s.failed("fs_read"), nil
		}
		return mcp.NewToolResultText(data), nil
	})

	s.add(mcp.NewTool("fs_write",
		mcp.WithDescription("Append text through a descriptor opened with w or a"),
		fdArg(),
		mcp.WithString("data", mcp.Required(), mcp.Description("Text to write")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		fd, err := requireIntIn(req, "fd", 0, maxFD)
		if err != nil {
			return argError(err)
		}
		data, err := req.RequireString("data")
		if err != nil {
			return argError(err)
		}
		n := s.abi.FsWrite(int32(fd), data)
		if n == abi.Failure {
			return s.failed("fs_write"), nil
		}
		return mcp.NewToolResultText(strconv.Itoa(int(n))), nil
	})

	s.add(mcp.NewTool("fs_close",
		mcp.WithDescription("Close a descriptor"),
		fdArg(),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		fd, err := requireIntIn(req, "fd", 0, maxFD)
		if err != nil {
			return argError(err)
		}
		if s.abi.FsClose(int32(fd)) == abi.Failure {
			return s.failed("fs_close"), nil
		}
		return mcp.NewToolResultText("0"), nil
	})

	s.add(mcp.NewTool("process_spawn",
		mcp.WithDescription("Register a Ready process and return its pid"),
		mcp.WithNumber("parent_pid", mcp.Min(0), mcp.Description("Parent pid (default 0, init)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		parent, err := intIn(req, "parent_pid", int(vkernel.InitPID), 0, maxPID)
		if err != nil {
			return argError(err)
		}
		return mcp.NewToolResultText(strconv.FormatUint(uint64(s.abi.ProcessSpawn(uint32(parent))), 10)), nil
	})

	s.add(mcp.NewTool("process_list",
		mcp.WithDescription("List processes as comma-joined pid:state:ppid entries"),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(s.abi.ProcessList()), nil
	})

	s.add(mcp.NewTool("process_kill",
		mcp.WithDescription("Terminate a process with an exit code"),
		mcp.WithNumber("pid", mcp.Required(), mcp.Min(0)),
		mcp.WithNumber("exit_code", mcp.Description("Exit code to record (default 0)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pid, err := requireIntIn(req, "pid", 0, maxPID)
		if err != nil {
			return argError(err)
		}
		code, err := intIn(req, "exit_code", 0, math.MinInt32, math.MaxInt32)
		if err != nil {
			return argError(err)
		}
		if s.abi.ProcessKill(uint32(pid), int32(code)) == abi.Failure {
			return s.failed("process_kill"), nil
		}
		return mcp.NewToolResultText("0"), nil
	})
}

func (s *Server) fsCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return argError(err)
	}
	if s.abi.FsCreate(p, req.GetBool("is_dir", false)) == abi.Failure {
		return s.failed("fs_create"), nil
	}
	return mcp.NewToolResultText("0"), nil
}

// nodeJSON is the fs_stat result
type nodeJSON struct {
	ID     uint64 `json:"id"`
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Path   string `json:"path"`
	Size   int    `json:"size"`
	Parent uint64 `json:"parent"`
}

func (s *Server) fsStat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return argError(err)
	}
	info, err := s.k.Stat(p)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fs_stat failed: %v", err)), nil
	}
	return jsonResult(nodeJSON{
		ID:     uint64(info.ID),
		Kind:   info.Kind.String(),
		Name:   info.Name,
		Path:   info.Path,
		Size:   info.Size,
		Parent: uint64(info.Parent),
	})
}

// fsWriteFile is the open/write/close sequence in one call
func (s *Server) fsWriteFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return argError(err)
	}
	content, err := req.RequireString("content")
	if err != nil {
		return argError(err)
	}
	mode := "w"
	if req.GetBool("append", false) {
		mode = "a"
	}

	if s.abi.FsExists(p) == abi.ExistsAbsent && s.abi.FsCreate(p, false) == abi.Failure {
		return s.failed("fs_write_file"), nil
	}
	fd := s.abi.FsOpen(p, mode)
	if fd == abi.Failure {
		return s.failed("fs_write_file"), nil
	}
	n := s.abi.FsWrite(fd, content)
	if n == abi.Failure {
		res := s.failed("fs_write_file")
		s.abi.FsClose(fd)
		return res, nil
	}
	if s.abi.FsClose(fd) == abi.Failure {
		return s.failed("fs_write_file"), nil
	}
	return mcp.NewToolResultText(strconv.Itoa(int(n))), nil
}
