package imgfs

import (
	"io/fs"
)

// imgfs stores raw unix mode bits on disk (file-type bits + permission
// bits), the same convention the teacher's squashfs package converts
// to/from. Only the file types mknod/mkdir ever produce are handled
// here: regular files, directories, and device nodes (rdev is stored
// but never interpreted, per spec.md §3); symlinks, sockets and FIFOs
// are outside the engine's scope (spec.md Non-goals) so, unlike the
// teacher's squashfs package, UnixToMode has no cases for them.

const (
	S_IFMT  = 0xf000
	S_IFREG = 0x8000
	S_IFDIR = 0x4000
	S_IFBLK = 0x6000
	S_IFCHR = 0x2000

	S_ISVTX = 0x200
	S_ISGID = 0x400
	S_ISUID = 0x800

	S_IRUSR = 0x100
	S_IRGRP = 0x20
	S_IROTH = 0x4

	S_IWUSR = 0x80
	S_IWGRP = 0x10
	S_IWOTH = 0x2

	S_IXUSR = 0x40
	S_IXGRP = 0x8
	S_IXOTH = 0x1
)

// isDirMode reports whether raw mode bits mark a directory.
func isDirMode(mode uint32) bool {
	return mode&S_IFMT == S_IFDIR
}

// UnixToMode converts raw on-disk mode bits to an fs.FileMode, reusing
// isDirMode for the directory case rather than re-testing S_IFDIR.
func UnixToMode(mode uint32) fs.FileMode {
	res := fs.FileMode(mode & 0777)

	switch {
	case isDirMode(mode):
		res |= fs.ModeDir
	case mode&S_IFMT == S_IFCHR:
		res |= fs.ModeCharDevice
	case mode&S_IFMT == S_IFBLK:
		res |= fs.ModeDevice
	}

	if mode&S_ISGID == S_ISGID {
		res |= fs.ModeSetgid
	}
	if mode&S_ISUID == S_ISUID {
		res |= fs.ModeSetuid
	}
	if mode&S_ISVTX == S_ISVTX {
		res |= fs.ModeSticky
	}

	return res
}
