// Package shell turns typed command lines into syscalls and formats the
// results for a terminal. It is a client of the kernel, not part of it.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/brettbedarf/vkernel"
	"github.com/brettbedarf/vkernel/internal/util"
	"github.com/google/uuid"
)

// Prompt is written before every line read by Run
const Prompt = "$ "

// ClearScreen is the output of the clear command: home the cursor and erase
// the display
const ClearScreen = "\x1b[H\x1b[2J"

// Kernel is the syscall surface the shell drives
type Kernel interface {
	UpdateTime(now time.Time)
	Uptime() time.Duration
	Uname() string
	BootID() uuid.UUID
	Stats() map[string]int64

	Create(p string, kind vkernel.NodeKind) error
	Mkdir(p string) error
	Exists(p string) vkernel.Existence
	List(p string) ([]string, error)
	Cat(p string) (string, error)
	Stat(p string) (vkernel.NodeInfo, error)
	Open(p string, mode vkernel.AccessMode) (vkernel.FD, error)
	Write(fd vkernel.FD, data []byte) (int, error)
	Close(fd vkernel.FD) error

	Spawn(parent vkernel.PID) vkernel.PID
	Processes() []vkernel.ProcessInfo
	Kill(pid vkernel.PID, exitCode int) error
}

// SystemClock reads the host clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type command struct {
	usage string
	help  string
	run   func(s *Shell, args []string) (string, error)
	raw   bool // run gets the unsplit rest of the line as its only arg
}

type Shell struct {
	k     Kernel
	clock vkernel.Clock
	cmds  map[string]command
	order []string // help listing order
}

// New returns a shell over k. Every command first feeds clock's reading to
// the kernel so uptime is current.
func New(k Kernel, clock vkernel.Clock) *Shell {
	s := &Shell{k: k, clock: clock, cmds: make(map[string]command)}
	s.register("help", "help", "Show this help", (*Shell).help)
	s.register("clear", "clear", "Clear terminal", func(*Shell, []string) (string, error) { return ClearScreen, nil })
	s.register("uname", "uname [-a]", "Show system info", (*Shell).uname)
	s.register("uptime", "uptime", "Show uptime", (*Shell).uptime)
	s.register("sysstat", "sysstat", "Show syscall counts", (*Shell).sysstat)
	s.register("ls", "ls [path]", "List directory contents", (*Shell).ls)
	s.register("cat", "cat PATH", "Print file contents", (*Shell).cat)
	s.register("touch", "touch PATH", "Create an empty file", (*Shell).touch)
	s.register("mkdir", "mkdir [-p] PATH", "Create a directory", (*Shell).mkdir)
	s.register("stat", "stat PATH", "Show node details", (*Shell).stat)
	s.registerRaw("echo", "echo TEXT [>|>> FILE]", "Print or write text to file", (*Shell).echo)
	s.register("ps", "ps", "List processes", (*Shell).ps)
	s.register("spawn", "spawn [PPID]", "Create a process (parent defaults to 0)", (*Shell).spawn)
	s.register("kill", "kill PID [CODE]", "Terminate a process", (*Shell).kill)
	return s
}

func (s *Shell) register(name, usage, help string, run func(*Shell, []string) (string, error)) {
	s.cmds[name] = command{usage: usage, help: help, run: run}
	s.order = append(s.order, name)
}

// registerRaw adds a command whose arguments are not split on whitespace
func (s *Shell) registerRaw(name, usage, help string, run func(*Shell, []string) (string, error)) {
	s.register(name, usage, help, run)
	cmd := s.cmds[name]
	cmd.raw = true
	s.cmds[name] = cmd
}

// Exec runs one command line and returns what should be printed. Failures
// are rendered as "<cmd>: <error>" lines rather than returned.
func (s *Shell) Exec(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	s.k.UpdateTime(s.clock.Now())

	name, args := fields[0], fields[1:]
	cmd, ok := s.cmds[name]
	if !ok {
		return "Command not found: " + name
	}
	if cmd.raw {
		args = nil
		if rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), name)); rest != "" {
			args = []string{rest}
		}
	}
	out, err := cmd.run(s, args)
	if err != nil {
		logger := util.GetLogger("Shell")
		logger.Debug().Err(err).Str("cmd", name).Msg("Command failed")
		return name + ": " + err.Error()
	}
	return out
}

// Run reads lines from in until EOF, "exit" or ctx is done, writing each
// result to out
func (s *Shell) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		if _, err := io.WriteString(out, Prompt); err != nil {
			return err
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			return nil
		}
		if res := s.Exec(line); res != "" {
			if !strings.HasSuffix(res, "\n") {
				res += "\n"
			}
			if _, err := io.WriteString(out, res); err != nil {
				return err
			}
		}
	}
}

func (s *Shell) help(_ []string) (string, error) {
	var b strings.Builder
	b.WriteString("=== vkernel shell ===\n")
	for _, name := range s.order {
		c := s.cmds[name]
		fmt.Fprintf(&b, "  %-22s - %s\n", c.usage, c.help)
	}
	b.WriteString("  exit                   - Leave the shell\n")
	b.WriteString("\nTIPS:\n")
	b.WriteString("  - Paths start with / (e.g., /home/user/file.txt)\n")
	b.WriteString("  - Use '>' to overwrite and '>>' to append: echo hello > /tmp/test.txt\n")
	return b.String(), nil
}

func (s *Shell) uname(args []string) (string, error) {
	out := s.k.Uname()
	if slices.Contains(args, "-a") {
		out += " boot=" + s.k.BootID().String()
	}
	return out, nil
}

func (s *Shell) uptime(_ []string) (string, error) {
	return FormatUptime(s.k.Uptime()), nil
}

// FormatUptime renders d as "Uptime: Xh Ym Zs"
func FormatUptime(d time.Duration) string {
	secs := int64(d / time.Second)
	mins := secs / 60
	return fmt.Sprintf("Uptime: %dh %dm %ds", mins/60, mins%60, secs%60)
}

func (s *Shell) sysstat(_ []string) (string, error) {
	stats := s.k.Stats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%-18s %d\n", name, stats[name])
	}
	return b.String(), nil
}

func (s *Shell) ls(args []string) (string, error) {
	p := "/"
	if len(args) > 0 {
		p = args[0]
	}
	names, err := s.k.List(p)
	if err != nil {
		return "", err
	}
	return strings.Join(names, "  "), nil
}

func needPath(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("missing path")
	}
	return args[0], nil
}

func (s *Shell) cat(args []string) (string, error) {
	p, err := needPath(args)
	if err != nil {
		return "", err
	}
	return s.k.Cat(p)
}

// touch creates p if absent; an existing file is left as is
func (s *Shell) touch(args []string) (string, error) {
	p, err := needPath(args)
	if err != nil {
		return "", err
	}
	if s.k.Exists(p) == vkernel.File {
		return "", nil
	}
	return "", s.k.Create(p, vkernel.KindFile)
}

func (s *Shell) mkdir(args []string) (string, error) {
	parents := len(args) > 0 && args[0] == "-p"
	if parents {
		args = args[1:]
	}
	p, err := needPath(args)
	if err != nil {
		return "", err
	}
	if parents {
		return "", s.k.Mkdir(p)
	}
	return "", s.k.Create(p, vkernel.KindDirectory)
}

func (s *Shell) stat(args []string) (string, error) {
	p, err := needPath(args)
	if err != nil {
		return "", err
	}
	info, err := s.k.Stat(p)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("  File: %s\n  Type: %s\n Inode: %d\n  Size: %d",
		info.Path, info.Kind, info.ID, info.Size), nil
}

// echo prints its arguments, or with "> FILE" / ">> FILE" writes them plus a
// newline to FILE, creating it if needed
// echo gets the raw text after the command name, so spacing inside TEXT is
// kept. The first ">" or ">>" starts the redirection, with or without
// surrounding spaces.
func (s *Shell) echo(args []string) (string, error) {
	var line string
	if len(args) > 0 {
		line = args[0]
	}
	i := strings.IndexByte(line, '>')
	if i < 0 {
		return line, nil
	}
	mode, op := vkernel.ModeWrite, ">"
	if strings.HasPrefix(line[i:], ">>") {
		mode, op = vkernel.ModeAppend, ">>"
	}
	text := strings.TrimSpace(line[:i]) + "\n"
	p := strings.TrimSpace(line[i+len(op):])
	if p == "" || strings.ContainsAny(p, "> \t") {
		return "", fmt.Errorf("usage: echo TEXT > FILE")
	}

	if s.k.Exists(p) == vkernel.Absent {
		if err := s.k.Create(p, vkernel.KindFile); err != nil {
			return "", err
		}
	}
	fd, err := s.k.Open(p, mode)
	if err != nil {
		return "", err
	}
	_, werr := s.k.Write(fd, []byte(text))
	cerr := s.k.Close(fd)
	if werr != nil {
		return "", werr
	}
	return "", cerr
}

func (s *Shell) ps(_ []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%5s %5s  %-10s %s\n", "PID", "PPID", "STATE", "EXIT")
	for _, p := range s.k.Processes() {
		parent, exit := "-", "-"
		if p.HasParent {
			parent = strconv.FormatUint(uint64(p.Parent), 10)
		}
		if p.State == vkernel.ProcTerminated {
			exit = strconv.Itoa(p.ExitCode)
		}
		fmt.Fprintf(&b, "%5d %5s  %-10s %s\n", p.PID, parent, p.State, exit)
	}
	return b.String(), nil
}

func parsePID(s string) (vkernel.PID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid pid %q", s)
	}
	return vkernel.PID(n), nil
}

func (s *Shell) spawn(args []string) (string, error) {
	parent := vkernel.InitPID
	if len(args) > 0 {
		var err error
		if parent, err = parsePID(args[0]); err != nil {
			return "", err
		}
	}
	pid := s.k.Spawn(parent)
	return fmt.Sprintf("Spawned process %d (parent %d)", pid, parent), nil
}

func (s *Shell) kill(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("missing pid")
	}
	pid, err := parsePID(args[0])
	if err != nil {
		return "", err
	}
	code := 0
	if len(args) > 1 {
		if code, err = strconv.Atoi(args[1]); err != nil {
			return "", fmt.Errorf("invalid exit code %q", args[1])
		}
	}
	if err := s.k.Kill(pid, code); err != nil {
		return "", err
	}
	return fmt.Sprintf("Terminated process %d (exit %d)", pid, code), nil
}
