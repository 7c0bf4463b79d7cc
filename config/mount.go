package config

// MountOptions holds the settings for the optional FUSE mirror of the VFS.
// No go-fuse types are exposed here.
type MountOptions struct {
	Debug  bool   // fuse debug logs
	FsName string // mount's FsName
	Name   string // mount's Name
}
