package vfs

import (
	"testing"

	"github.com/brettbedarf/vkernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustCreate creates a node and fails the test on error
func mustCreate(t *testing.T, s *Store, p string, kind vkernel.NodeKind) vkernel.Ino {
	t.Helper()
	id, err := s.Create(p, kind)
	require.NoError(t, err, "create %s", p)
	return id
}

// checkTree verifies the arena invariants: every non-root node is listed
// exactly once by its parent under its own name and walking parents always
// reaches the root.
func checkTree(t *testing.T, s *Store) {
	t.Helper()
	root := s.nodes[vkernel.RootIno]
	require.NotNil(t, root)
	assert.True(t, root.isDir())

	refs := make(map[vkernel.Ino]int)
	for _, n := range s.nodes {
		for name, childID := range n.children {
			child, ok := s.nodes[childID]
			require.True(t, ok, "dangling child %d", childID)
			assert.Equal(t, name, child.name)
			assert.Equal(t, n.id, child.parent)
			refs[childID]++
		}
	}
	for id, n := range s.nodes {
		if id == vkernel.RootIno {
			assert.Zero(t, refs[id], "root must have no parent entry")
			continue
		}
		assert.Equal(t, 1, refs[id], "node %d must have exactly one parent entry", id)
		steps := 0
		for cur := n; !cur.isRoot(); cur = s.nodes[cur.parent] {
			steps++
			require.Less(t, steps, len(s.nodes), "cycle above node %d", id)
		}
		if !n.isDir() {
			assert.Nil(t, n.children)
		} else {
			assert.Empty(t, n.content)
		}
	}
}

func TestNewStore(t *testing.T) {
	t.Parallel()

	s := NewStore()

	assert.Equal(t, 1, s.Len())
	id, err := s.Resolve("/")
	require.NoError(t, err)
	assert.Equal(t, vkernel.RootIno, id)
	assert.Equal(t, vkernel.Directory, s.Exists("/"))
	checkTree(t, s)
}

func TestStore_Resolve(t *testing.T) {
	t.Parallel()

	s := NewStore()
	dirID := mustCreate(t, s, "/a", vkernel.KindDirectory)
	fileID := mustCreate(t, s, "/a/b.txt", vkernel.KindFile)

	tests := []struct {
		path    string
		want    vkernel.Ino
		wantErr vkernel.Errno
	}{
		{"", vkernel.RootIno, 0},
		{"/", vkernel.RootIno, 0},
		{"///", vkernel.RootIno, 0},
		{"/a", dirID, 0},
		{"a", dirID, 0},
		{"/a/", dirID, 0},
		{"//a//b.txt", fileID, 0},
		{"/a/b.txt/", fileID, 0},
		{"/missing", 0, vkernel.ErrPathNotFound},
		{"/a/missing", 0, vkernel.ErrPathNotFound},
		{"/a/b.txt/c", 0, vkernel.ErrNotADirectory},
		{"/a/.", 0, vkernel.ErrPathNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, err := s.Resolve(tt.path)
			if tt.wantErr != 0 {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_Create(t *testing.T) {
	t.Parallel()

	t.Run("ExistsReportsKind", func(t *testing.T) {
		t.Parallel()
		s := NewStore()
		mustCreate(t, s, "/dir", vkernel.KindDirectory)
		mustCreate(t, s, "/dir/file", vkernel.KindFile)
		mustCreate(t, s, "top", vkernel.KindFile)

		assert.Equal(t, vkernel.Directory, s.Exists("/dir"))
		assert.Equal(t, vkernel.File, s.Exists("/dir/file"))
		assert.Equal(t, vkernel.File, s.Exists("/top"))
		checkTree(t, s)
	})

	t.Run("IdsAreDistinct", func(t *testing.T) {
		t.Parallel()
		s := NewStore()
		a := mustCreate(t, s, "/a", vkernel.KindFile)
		b := mustCreate(t, s, "/b", vkernel.KindFile)
		assert.NotEqual(t, a, b)
		assert.NotEqual(t, vkernel.RootIno, a)
	})

	t.Run("InvalidName", func(t *testing.T) {
		t.Parallel()
		s := NewStore()
		mustCreate(t, s, "/a", vkernel.KindDirectory)
		for _, p := range []string{"", "/", "//", "/a/", "a/", "/a/.", "/..", "/a//"} {
			_, err := s.Create(p, vkernel.KindFile)
			assert.ErrorIs(t, err, vkernel.ErrInvalidName, "path %q", p)
		}
		assert.Equal(t, 2, s.Len(), "rejected creates must not add nodes")
	})

	t.Run("DuplicateLeavesExistingUntouched", func(t *testing.T) {
		t.Parallel()
		s := NewStore()
		id := mustCreate(t, s, "/f", vkernel.KindFile)
		require.NoError(t, s.Write(id, []byte("keep"), false))

		_, err := s.Create("/f", vkernel.KindDirectory)
		assert.ErrorIs(t, err, vkernel.ErrDuplicateName)
		_, err = s.Create("f", vkernel.KindFile)
		assert.ErrorIs(t, err, vkernel.ErrDuplicateName)

		assert.Equal(t, vkernel.File, s.Exists("/f"))
		data, err := s.Read(id)
		require.NoError(t, err)
		assert.Equal(t, []byte("keep"), data)
	})

	t.Run("MissingParent", func(t *testing.T) {
		t.Parallel()
		s := NewStore()
		_, err := s.Create("/no/such", vkernel.KindFile)
		assert.ErrorIs(t, err, vkernel.ErrPathNotFound)
		assert.Equal(t, vkernel.Absent, s.Exists("/no"))
	})

	t.Run("ParentIsFile", func(t *testing.T) {
		t.Parallel()
		s := NewStore()
		mustCreate(t, s, "/f", vkernel.KindFile)
		_, err := s.Create("/f/child", vkernel.KindFile)
		assert.ErrorIs(t, err, vkernel.ErrNotADirectory)
	})
}

func TestStore_MkdirAll(t *testing.T) {
	t.Parallel()

	s := NewStore()
	id, err := s.MkdirAll("/x/y/z")
	require.NoError(t, err)

	again, err := s.MkdirAll("x/y/z/")
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, 4, s.Len())

	mustCreate(t, s, "/x/file", vkernel.KindFile)
	_, err = s.MkdirAll("/x/file/deeper")
	assert.ErrorIs(t, err, vkernel.ErrNotADirectory)
	_, err = s.MkdirAll("/x/file")
	assert.ErrorIs(t, err, vkernel.ErrNotADirectory)
	checkTree(t, s)
}

func TestStore_MkdirAll_InvalidNameLeavesTreeUnchanged(t *testing.T) {
	t.Parallel()

	for _, p := range []string{"/a/b/..", "/a/./b", "/../a"} {
		t.Run(p, func(t *testing.T) {
			t.Parallel()
			s := NewStore()
			_, err := s.MkdirAll(p)
			assert.ErrorIs(t, err, vkernel.ErrInvalidName)
			assert.Equal(t, 1, s.Len())
			assert.Equal(t, vkernel.Absent, s.Exists("/a"))
		})
	}
}

func TestStore_Exists_Absent(t *testing.T) {
	t.Parallel()

	s := NewStore()
	for range 3 {
		assert.Equal(t, vkernel.Absent, s.Exists("/missing"))
	}
	assert.Equal(t, 1, s.Len(), "probing must not create nodes")
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	s := NewStore()
	mustCreate(t, s, "/d", vkernel.KindDirectory)
	mustCreate(t, s, "/empty", vkernel.KindDirectory)
	mustCreate(t, s, "/d/zeta", vkernel.KindFile)
	mustCreate(t, s, "/d/alpha", vkernel.KindDirectory)
	mustCreate(t, s, "/d/mid", vkernel.KindFile)

	names, err := s.List("/d")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)

	names, err = s.List("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "empty"}, names)

	t.Run("EmptyDirectoryIsNotAnError", func(t *testing.T) {
		names, err := s.List("/empty")
		require.NoError(t, err)
		assert.NotNil(t, names)
		assert.Empty(t, names)
	})

	t.Run("MissingPathFails", func(t *testing.T) {
		_, err := s.List("/nope")
		assert.ErrorIs(t, err, vkernel.ErrPathNotFound)
	})

	t.Run("FileFails", func(t *testing.T) {
		_, err := s.List("/d/mid")
		assert.ErrorIs(t, err, vkernel.ErrNotADirectory)
	})
}

func TestStore_ReadWrite(t *testing.T) {
	t.Parallel()

	s := NewStore()
	dirID := mustCreate(t, s, "/d", vkernel.KindDirectory)
	id := mustCreate(t, s, "/d/f", vkernel.KindFile)

	data, err := s.Read(id)
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, s.Write(id, []byte("hello"), false))
	require.NoError(t, s.Write(id, []byte(" world"), true))
	data, err = s.Read(id)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	require.NoError(t, s.Write(id, []byte("new"), false))
	data, err = s.Read(id)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	t.Run("ReturnedSliceIsACopy", func(t *testing.T) {
		data, err := s.Read(id)
		require.NoError(t, err)
		data[0] = 'X'
		again, err := s.Read(id)
		require.NoError(t, err)
		assert.Equal(t, "new", string(again))
	})

	t.Run("DirectoryFails", func(t *testing.T) {
		_, err := s.Read(dirID)
		assert.ErrorIs(t, err, vkernel.ErrNotAFile)
		err = s.Write(dirID, []byte("x"), true)
		assert.ErrorIs(t, err, vkernel.ErrNotAFile)
	})

	t.Run("UnknownNodeFails", func(t *testing.T) {
		_, err := s.Read(9999)
		assert.ErrorIs(t, err, vkernel.ErrPathNotFound)
	})
}

func TestStore_ReadAt(t *testing.T) {
	t.Parallel()

	s := NewStore()
	id := mustCreate(t, s, "/f", vkernel.KindFile)
	require.NoError(t, s.Write(id, []byte("abcdef"), false))

	tests := []struct {
		name      string
		off, size int
		want      string
	}{
		{"Prefix", 0, 3, "abc"},
		{"Middle", 2, 2, "cd"},
		{"ClampedToEnd", 4, 100, "ef"},
		{"AtEnd", 6, 1, ""},
		{"PastEnd", 10, 1, ""},
		{"ZeroSize", 1, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ReadAt(id, tt.off, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	_, err := s.ReadAt(id, -1, 1)
	assert.ErrorIs(t, err, vkernel.ErrInvalidArgument)
}

func TestStore_StatAndPath(t *testing.T) {
	t.Parallel()

	s := NewStore()
	dirID := mustCreate(t, s, "/home", vkernel.KindDirectory)
	id := mustCreate(t, s, "/home/notes.txt", vkernel.KindFile)
	require.NoError(t, s.Write(id, []byte("1234"), false))

	info, err := s.Stat(id)
	require.NoError(t, err)
	assert.Equal(t, vkernel.NodeInfo{
		ID:     id,
		Kind:   vkernel.KindFile,
		Name:   "notes.txt",
		Size:   4,
		Parent: dirID,
		Path:   "/home/notes.txt",
	}, info)

	p, err := s.Path(vkernel.RootIno)
	require.NoError(t, err)
	assert.Equal(t, "/", p)

	p, err = s.Path(dirID)
	require.NoError(t, err)
	assert.Equal(t, "/home", p)

	kind, err := s.Kind(dirID)
	require.NoError(t, err)
	assert.Equal(t, vkernel.KindDirectory, kind)

	_, err = s.Stat(12345)
	assert.ErrorIs(t, err, vkernel.ErrPathNotFound)
}
