package imgfs

import "errors"

// Package-specific error variables that can be used with errors.Is() for error handling.
var (
	// ErrNotFound is returned when a path component does not resolve to
	// an existing directory entry.
	ErrNotFound = errors.New("imgfs: no such file or directory")

	// ErrNotDirectory is returned when a non-leaf path component
	// resolves to a non-directory inode.
	ErrNotDirectory = errors.New("imgfs: not a directory")

	// ErrIsDirectory is returned when an operation that requires a
	// regular file is given a directory.
	ErrIsDirectory = errors.New("imgfs: is a directory")

	// ErrInvalidName is returned when a directory entry name is
	// rejected, e.g. for starting with a decimal digit.
	ErrInvalidName = errors.New("imgfs: invalid name")

	// ErrNoSpace is returned when no free block or inode remains.
	ErrNoSpace = errors.New("imgfs: no space left on device")

	// ErrExists is returned when an operation that must create a new
	// entry finds one already there.
	ErrExists = errors.New("imgfs: file exists")

	// ErrNotEmpty is returned by operations that refuse to act on a
	// non-empty directory.
	ErrNotEmpty = errors.New("imgfs: directory not empty")

	// ErrInvalidPath is returned when an operation that needs a parent
	// directory is given the root path "/". Relative paths are not
	// rejected: they resolve from the root like absolute ones.
	ErrInvalidPath = errors.New("imgfs: invalid path")
)

// errno maps an imgfs error to the POSIX-style negative status code
// described in spec.md §7, for host shims that want the traditional
// return-code convention. Errors not recognized map to -EIO.
func errno(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNotFound):
		return -2 // ENOENT
	case errors.Is(err, ErrNotDirectory):
		return -20 // ENOTDIR
	case errors.Is(err, ErrIsDirectory):
		return -21 // EISDIR
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidPath):
		return -22 // EINVAL
	case errors.Is(err, ErrNoSpace):
		return -28 // ENOSPC
	case errors.Is(err, ErrExists):
		return -17 // EEXIST
	case errors.Is(err, ErrNotEmpty):
		return -39 // ENOTEMPTY
	default:
		return -5 // EIO
	}
}
