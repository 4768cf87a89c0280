//go:build fuse

package imgfs

import (
	"context"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// FuseAdapter is an optional reference adapter between an FS and
// github.com/hanwen/go-fuse/v2's types. The host-interface shim is
// explicitly out of spec.md's scope (§1: "external collaborator, not
// specified here"), so this file is build-tag gated exactly the way the
// teacher gates its own fuse-specific glue in inode_fuse.go. It maps
// only Lookup, Open and ReadDir; it is not a complete
// fuse.RawFileSystem implementation and does not serve a mount itself.
type FuseAdapter struct {
	fs *FS
}

// NewFuseAdapter wraps a mounted FS for use by a FUSE host loop.
func NewFuseAdapter(fs *FS) *FuseAdapter {
	return &FuseAdapter{fs: fs}
}

// toFuseStatus converts an imgfs error to a fuse.Status via errno, the
// same fuse.Status(syscall.Errno) conversion the teacher's
// examplelib/loopback.go performs; errno's codes are POSIX-positive
// once negated, matching what fuse.Status expects.
func toFuseStatus(err error) fuse.Status {
	if err == nil {
		return fuse.OK
	}
	return fuse.Status(-errno(err))
}

// fillAttr converts an imgfs Stat into a fuse.Attr, the same field
// mapping the teacher's inode_linux.go/inode_darwin.go perform for
// squashfs inodes.
func fillAttr(st Stat, attr *fuse.Attr) {
	attr.Ino = uint64(st.Ino)
	attr.Size = uint64(st.Size)
	attr.Blocks = uint64(st.Blocks)
	attr.Mode = st.Mode
	attr.Nlink = st.Nlink
	attr.Rdev = st.Rdev
	attr.Blksize = uint32(st.Blksize)
	attr.Owner.Uid = st.Uid
	attr.Owner.Gid = st.Gid
	attr.Atime = uint64(st.Atime.Unix())
	attr.Mtime = uint64(st.Mtime.Unix())
	attr.Ctime = uint64(st.Ctime.Unix())
}

// Lookup resolves name within the directory identified by dirPath and
// fills entry, the fuse.EntryOut/fillEntry pattern from the teacher's
// inode_fuse.go.
func (a *FuseAdapter) Lookup(ctx context.Context, dirPath, name string, entry *fuse.EntryOut) fuse.Status {
	st, err := a.fs.Stat(joinPath(dirPath, name))
	if err != nil {
		return toFuseStatus(err)
	}
	entry.NodeId = uint64(st.Ino)
	entry.Attr.Ino = entry.NodeId
	fillAttr(st, &entry.Attr)
	entry.SetEntryTimeout(time.Second)
	entry.SetAttrTimeout(time.Second)
	return fuse.OK
}

// Open succeeds for any path that resolves and keeps no open-file state
// (spec.md §4.4); a path that does not resolve yields its error status.
func (a *FuseAdapter) Open(path string) (flags uint32, status fuse.Status) {
	if err := a.fs.Open(path); err != nil {
		return 0, toFuseStatus(err)
	}
	return fuse.FOPEN_KEEP_CACHE, fuse.OK
}

// ReadDir fills a fuse.DirEntryList from an FS.Readdir call.
func (a *FuseAdapter) ReadDir(path string, out *fuse.DirEntryList) fuse.Status {
	entries, err := a.fs.Readdir(path)
	if err != nil {
		return toFuseStatus(err)
	}
	for _, e := range entries {
		out.AddDirEntry(fuse.DirEntry{
			Ino:  uint64(e.Stat.Ino),
			Mode: e.Stat.Mode,
			Name: e.Name,
		})
	}
	return fuse.OK
}
