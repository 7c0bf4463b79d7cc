package seed

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/brettbedarf/vkernel"
	"github.com/brettbedarf/vkernel/internal/util"
)

// Target is the syscall surface seeding needs
type Target interface {
	Mkdir(p string) error
	Exists(p string) vkernel.Existence
	Create(p string, kind vkernel.NodeKind) error
	Open(p string, mode vkernel.AccessMode) (vkernel.FD, error)
	Write(fd vkernel.FD, data []byte) (int, error)
	Close(fd vkernel.FD) error
}

// Apply provisions every entry in order and returns how many were applied.
// Missing parent directories are created. A file that already exists is
// overwritten. Apply stops at the first failing entry.
func Apply(ctx context.Context, t Target, m *Manifest, r *Registry) (int, error) {
	logger := util.GetLogger("Seed")

	for i, e := range m.Entries {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		// manifest paths may be relative or carry "." and empty segments
		p := path.Clean("/" + e.Path)
		var err error
		switch e.Type {
		case DirEntry:
			err = t.Mkdir(p)
		case FileEntry:
			err = applyFile(ctx, t, p, e, r)
		default:
			err = fmt.Errorf("unknown type %q", e.Type)
		}
		if err != nil {
			return i, fmt.Errorf("seed entry %d (%s): %w", i, e.Path, err)
		}
		logger.Debug().Str("path", p).Str("type", string(e.Type)).Msg("Seeded")
	}
	logger.Info().Int("entries", len(m.Entries)).Msg("Seed manifest applied")
	return len(m.Entries), nil
}

// applyFile writes entry e to the cleaned absolute path p
func applyFile(ctx context.Context, t Target, p string, e Entry, r *Registry) error {
	content, err := entryContent(ctx, e, r)
	if err != nil {
		return err
	}

	if dir := path.Dir(p); dir != "/" {
		if err := t.Mkdir(dir); err != nil {
			return err
		}
	}
	if t.Exists(p) == vkernel.Absent {
		if err := t.Create(p, vkernel.KindFile); err != nil {
			return err
		}
	}

	fd, err := t.Open(p, vkernel.ModeWrite)
	if err != nil {
		return err
	}
	_, werr := t.Write(fd, content)
	cerr := t.Close(fd)
	if werr != nil {
		return werr
	}
	return cerr
}

func entryContent(ctx context.Context, e Entry, r *Registry) ([]byte, error) {
	if len(e.Source) == 0 || string(e.Source) == "null" {
		if e.Content == nil {
			return nil, nil
		}
		return []byte(*e.Content), nil
	}
	if r == nil {
		return nil, fmt.Errorf("source given but no registry")
	}

	src, err := r.NewSource(e.Source)
	if err != nil {
		return nil, err
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
