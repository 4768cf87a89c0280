package imgfs

import (
	"io"
	"io/fs"
	"path"
	"time"
)

// File adapts a resolved inode to io/fs.File, the same convenience
// wrapper the teacher's file.go provides over squashfs inodes.
type File struct {
	*io.SectionReader
	fsys *FS
	ino  int32
	name string
}

// FileDir adapts a directory inode to fs.ReadDirFile.
type FileDir struct {
	fsys    *FS
	ino     int32
	name    string
	path    string
	entries []DirEntry
	pos     int
}

type fileinfo struct {
	name string
	st   Stat
}

var _ fs.File = (*File)(nil)
var _ io.ReaderAt = (*File)(nil)
var _ fs.ReadDirFile = (*FileDir)(nil)
var _ fs.FileInfo = (*fileinfo)(nil)
var _ fs.FS = (*ioFS)(nil)

// ioFS adapts a mounted FS to io/fs.FS. It is a separate type rather
// than a method on FS itself because the namespace layer already owns
// the name Open for spec.md §4.4's resolve-only operation; FS.IOFS
// hands out this adapter for callers that want the stdlib interface
// (http.FileServer, fs.WalkDir, and similar).
type ioFS struct {
	fsys *FS
}

// IOFS returns an io/fs.FS view of fs, the same convenience the
// teacher's file.go provides over squashfs inodes.
func (fs *FS) IOFS() fs.FS {
	return &ioFS{fsys: fs}
}

// Open implements io/fs.FS, returning a FileDir for directories and a
// File (seekable, ReaderAt-capable) for everything else, matching the
// teacher's OpenFile switch in file.go.
func (x *ioFS) Open(name string) (fs.File, error) {
	p := "/" + name
	if name == "." {
		p = "/"
	}
	st, err := x.fsys.Stat(p)
	if err != nil {
		return nil, &fsPathError{"open", name, err}
	}
	if isDirMode(st.Mode) {
		entries, err := x.fsys.Readdir(p)
		if err != nil {
			return nil, &fsPathError{"open", name, err}
		}
		return &FileDir{fsys: x.fsys, ino: st.Ino, name: name, path: p, entries: entries}, nil
	}
	sec := io.NewSectionReader(&inodeReaderAt{fsys: x.fsys, ino: st.Ino, size: st.Size}, 0, st.Size)
	return &File{SectionReader: sec, fsys: x.fsys, ino: st.Ino, name: name}, nil
}

type fsPathError struct {
	op, path string
	err      error
}

func (e *fsPathError) Error() string { return e.op + " " + e.path + ": " + e.err.Error() }
func (e *fsPathError) Unwrap() error { return e.err }

// inodeReaderAt adapts an inode's content, materialized with
// readAllInode, to io.ReaderAt for io.SectionReader.
type inodeReaderAt struct {
	fsys *FS
	ino  int32
	size int64
}

func (r *inodeReaderAt) ReadAt(p []byte, off int64) (int, error) {
	res := r.fsys.img.readAllInode(r.ino)
	if off >= res.Size {
		return 0, io.EOF
	}
	n := copy(p, res.Data[off:])
	var err error
	if int64(n) < int64(len(p)) {
		err = io.EOF
	}
	return n, err
}

func (f *File) Stat() (fs.FileInfo, error) {
	st, err := f.fsys.Stat("/" + f.name)
	if err != nil {
		return nil, err
	}
	return &fileinfo{name: path.Base(f.name), st: st}, nil
}

func (f *File) Close() error { return nil }

func (d *FileDir) Read(p []byte) (int, error) { return 0, fs.ErrInvalid }

func (d *FileDir) Stat() (fs.FileInfo, error) {
	st, err := d.fsys.Stat(d.path)
	if err != nil {
		return nil, err
	}
	return &fileinfo{name: path.Base(d.name), st: st}, nil
}

func (d *FileDir) Close() error { return nil }

// ReadDir implements fs.ReadDirFile, skipping the synthesized "."
// self-entry so it behaves like a standard directory listing.
func (d *FileDir) ReadDir(n int) ([]fs.DirEntry, error) {
	var out []fs.DirEntry
	for d.pos < len(d.entries) && (n <= 0 || len(out) < n) {
		e := d.entries[d.pos]
		d.pos++
		if e.Name == "." {
			continue
		}
		out = append(out, &fileinfo{name: e.Name, st: e.Stat})
	}
	if n > 0 && len(out) == 0 {
		return nil, io.EOF
	}
	return out, nil
}

func (fi *fileinfo) Name() string       { return fi.name }
func (fi *fileinfo) Size() int64        { return fi.st.Size }
func (fi *fileinfo) Mode() fs.FileMode  { return UnixToMode(fi.st.Mode) }
func (fi *fileinfo) ModTime() time.Time { return fi.st.Mtime }
func (fi *fileinfo) IsDir() bool        { return isDirMode(fi.st.Mode) }
func (fi *fileinfo) Sys() any           { return fi.st }

// Type implements fs.DirEntry.
func (fi *fileinfo) Type() fs.FileMode { return fi.Mode().Type() }

// Info implements fs.DirEntry.
func (fi *fileinfo) Info() (fs.FileInfo, error) { return fi, nil }

var _ fs.DirEntry = (*fileinfo)(nil)
