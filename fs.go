package imgfs

import (
	"errors"
	"log"
	"time"
)

// FS is the mounted filesystem handle: the explicit value that replaces
// the original's process-wide `meta` singleton pointer
// (original_source/storage.c), per spec.md §9's Design Notes ("Model as
// an explicit filesystem value passed into each operation; the host
// shim holds one").
type FS struct {
	img     *image
	path    string
	metrics *Metrics
}

// MountOption configures a Mount call, the same functional-options shape
// the teacher's options.go uses for Superblock construction.
type MountOption func(*FS)

// WithMetrics attaches a Metrics registry that FS operations increment.
// Nil-safe: omit this option to mount without metrics.
func WithMetrics(m *Metrics) MountOption {
	return func(fs *FS) { fs.metrics = m }
}

// Mount maps the image file at path, initializing the header and root
// directory if the image is new/uninitialized, per spec.md §3's
// Lifecycle section. The image counts as uninitialized when the root
// inode's stored size and direct block are both zero; otherwise
// initialization is skipped (re-mount). Truncation of an existing
// image never happens (spec.md §9's resolved open question).
func Mount(path string, opts ...MountOption) (*FS, error) {
	img, err := openImage(path)
	if err != nil {
		return nil, err
	}

	fs := &FS{img: img, path: path}
	for _, opt := range opts {
		opt(fs)
	}

	root := img.hdr.rootInode()
	if root.Size == 0 && root.Direct == 0 {
		if err := fs.initRoot(); err != nil {
			img.close()
			return nil, err
		}
		log.Printf("imgfs: initialized new filesystem at %s", path)
	}

	return fs, nil
}

// Close unmaps and closes the underlying image file.
func (fs *FS) Close() error {
	return fs.img.close()
}

// rootDirMode matches the permission bits original_source/storage.c's
// configure_root grants the root directory: S_IRWXU|S_IRWXG|S_IROTH|S_IXOTH.
const rootDirMode = S_IFDIR | 0o775

func (fs *FS) initRoot() error {
	img := fs.img
	start := dataStartBlock()

	// Blocks 0..start-1 are always allocated and never freed (spec.md
	// §6); they underlie the header itself, so they're marked directly
	// rather than zeroed via takeBlock (which would clobber the header
	// fields just written).
	bm := img.hdr.blockBitmap()
	for i := 0; i < start; i++ {
		bm.set(i)
	}

	// start itself is about to become the root directory's own data
	// block (rec.Direct below); mark it taken too, matching the
	// original's separate take_block(meta->starting_block_index) call
	// in configure_root, or the next allocation anywhere would hand it
	// right back out from under the root directory.
	bm.set(start)

	rec := setDefaults(rootDirMode)
	rec.Direct = uint32(start)
	img.hdr.setRootInode(rec)

	dir := newDirectory(0, -1)
	data := dir.serialize()
	if err := img.resize(0, int64(len(data))); err != nil {
		return err
	}
	_, err := img.writeAtInode(0, data, 0)
	return err
}

func (fs *FS) metric(name string) {
	if fs.metrics != nil {
		fs.metrics.incOp(name)
	}
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

// resolve walks path from the root, returning the id of the inode it
// names. Grounded on original_source/storage.c:get_inode.
func (fs *FS) resolve(path string) (int32, error) {
	segs := parsePath(path)
	cur := int32(0)
	for _, seg := range segs {
		rec := fs.img.hdr.getInode(cur)
		if !isDirMode(rec.Mode) {
			return 0, ErrNotDirectory
		}
		dir, err := fs.getDir(cur)
		if err != nil {
			return 0, err
		}
		id, err := dir.getFileInode(seg)
		if err != nil {
			return 0, ErrNotFound
		}
		cur = id
	}
	return cur, nil
}

// resolvePair resolves path's parent directory and attempts to look up
// its final segment, without failing if the leaf is missing. Grounded
// on original_source/storage.c:get_inode_pair. The root path ("/") has
// no parent and returns ErrInvalidPath.
func (fs *FS) resolvePair(path string) (parent int32, name string, child int32, found bool, err error) {
	segs := parsePath(path)
	if len(segs) == 0 {
		return 0, "", 0, false, ErrInvalidPath
	}

	parentPath := "/"
	if len(segs) > 1 {
		for _, s := range segs[:len(segs)-1] {
			parentPath = joinPath(parentPath, s)
		}
	}

	parent, err = fs.resolve(parentPath)
	if err != nil {
		return 0, "", 0, false, err
	}
	rec := fs.img.hdr.getInode(parent)
	if !isDirMode(rec.Mode) {
		return 0, "", 0, false, ErrNotDirectory
	}

	name = segs[len(segs)-1]
	dir, err := fs.getDir(parent)
	if err != nil {
		return 0, "", 0, false, err
	}
	id, lookErr := dir.getFileInode(name)
	if lookErr != nil {
		return parent, name, 0, false, nil
	}
	return parent, name, id, true, nil
}

// getDir reads and decodes the directory stored in inode id's data.
func (fs *FS) getDir(id int32) (*directory, error) {
	res := fs.img.readAllInode(id)
	return deserializeDirectory(res.Data)
}

// putDir re-serializes dir and writes it back as inode id's content,
// resizing (up or down) to match the new blob length first.
func (fs *FS) putDir(id int32, dir *directory) error {
	data := dir.serialize()
	if err := fs.img.resize(id, int64(len(data))); err != nil {
		return err
	}
	_, err := fs.img.writeAtInode(id, data, 0)
	return err
}

func (fs *FS) touch(id int32, atime, mtime bool) {
	rec := fs.img.hdr.getInode(id)
	now := time.Now()
	if atime {
		rec.AtimSec, rec.AtimNsec = now.Unix(), int64(now.Nanosecond())
	}
	if mtime {
		rec.MtimSec, rec.MtimNsec = now.Unix(), int64(now.Nanosecond())
		rec.CtimSec, rec.CtimNsec = rec.MtimSec, rec.MtimNsec
	}
	fs.img.hdr.putInode(id, rec)
}

// Stat is the host-facing metadata snapshot returned by Stat/Readdir,
// mirroring original_source/storage.c:get_stat_inode's struct stat
// population (blksize/blocks synthesized, not stored).
type Stat struct {
	Ino     int32
	Mode    uint32
	Nlink   uint32
	Uid     uint32
	Gid     uint32
	Rdev    uint32
	Size    int64
	Blksize int32
	Blocks  int64
	Atime   time.Time
	Mtime   time.Time
	Ctime   time.Time
}

func recToStat(id int32, rec inodeRecord) Stat {
	return Stat{
		Ino:     id,
		Mode:    rec.Mode,
		Nlink:   rec.Nlink,
		Uid:     rec.Uid,
		Gid:     rec.Gid,
		Rdev:    rec.Rdev,
		Size:    int64(rec.Size),
		Blksize: BlockSize,
		Blocks:  int64(ceilDiv(int(rec.Size), BlockSize)),
		Atime:   time.Unix(rec.AtimSec, rec.AtimNsec),
		Mtime:   time.Unix(rec.MtimSec, rec.MtimNsec),
		Ctime:   time.Unix(rec.CtimSec, rec.CtimNsec),
	}
}

// Stat resolves path and returns its metadata, or ErrNotFound.
func (fs *FS) Stat(path string) (Stat, error) {
	fs.metric("stat")
	id, err := fs.resolve(path)
	if err != nil {
		return Stat{}, err
	}
	return recToStat(id, fs.img.hdr.getInode(id)), nil
}

// DirEntry is one entry yielded by Readdir.
type DirEntry struct {
	Name string
	Stat Stat
}

// Readdir enumerates path's directory entries, always including a
// synthesized "." entry for the directory itself, per spec.md §4.4.
func (fs *FS) Readdir(path string) ([]DirEntry, error) {
	fs.metric("readdir")
	id, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	rec := fs.img.hdr.getInode(id)
	if !isDirMode(rec.Mode) {
		return nil, ErrNotDirectory
	}
	dir, err := fs.getDir(id)
	if err != nil {
		return nil, err
	}

	entries := make([]DirEntry, 0, dir.numFiles()+1)
	entries = append(entries, DirEntry{Name: ".", Stat: recToStat(id, rec)})
	for _, name := range dir.fileNames() {
		childID, err := dir.getFileInode(name)
		if err != nil {
			continue
		}
		childRec := fs.img.hdr.getInode(childID)
		entries = append(entries, DirEntry{Name: name, Stat: recToStat(childID, childRec)})
	}
	return entries, nil
}

// Mknod creates a new directory entry of the given raw mode (including
// type bits) at path. Grounded on original_source/storage.c:get_new_inode.
func (fs *FS) Mknod(path string, mode uint32, rdev uint32) error {
	fs.metric("mknod")
	parent, name, _, found, err := fs.resolvePair(path)
	if err != nil {
		return err
	}
	if found {
		return ErrExists
	}

	newID, err := fs.img.allocateInode()
	if err != nil {
		return err
	}

	dir, err := fs.getDir(parent)
	if err != nil {
		fs.img.releaseInode(newID)
		return err
	}
	if err := dir.addFile(name, newID); err != nil {
		fs.img.releaseInode(newID)
		return err
	}
	if err := fs.putDir(parent, dir); err != nil {
		fs.img.releaseInode(newID)
		return err
	}

	rec := setDefaults(mode)
	rec.Rdev = rdev
	fs.img.hdr.putInode(newID, rec)
	return nil
}

// Mkdir creates a new directory at path, also initializing its content
// to a freshly serialized empty directory (self-entry only).
func (fs *FS) Mkdir(path string, mode uint32) error {
	fs.metric("mkdir")
	parent, name, _, found, err := fs.resolvePair(path)
	if err != nil {
		return err
	}
	if found {
		return ErrExists
	}

	newID, err := fs.img.allocateInode()
	if err != nil {
		return err
	}

	parentDir, err := fs.getDir(parent)
	if err != nil {
		fs.img.releaseInode(newID)
		return err
	}
	if err := parentDir.addFile(name, newID); err != nil {
		fs.img.releaseInode(newID)
		return err
	}
	if err := fs.putDir(parent, parentDir); err != nil {
		fs.img.releaseInode(newID)
		return err
	}

	rec := setDefaults(mode | S_IFDIR)
	fs.img.hdr.putInode(newID, rec)

	childDir := newDirectory(newID, parent)
	return fs.putDir(newID, childDir)
}

// Open resolves path and reports whether it exists. No open-file state
// is kept, per spec.md §4.4.
func (fs *FS) Open(path string) error {
	fs.metric("open")
	_, err := fs.resolve(path)
	return err
}

// Read copies up to len(buf) bytes starting at off from path's content
// into buf, returning the exact count transferred with no terminator
// appended (spec.md §9's resolved open question).
func (fs *FS) Read(path string, buf []byte, off int64) (int, error) {
	fs.metric("read")
	id, err := fs.resolve(path)
	if err != nil {
		return 0, err
	}
	res := fs.img.readAllInode(id)
	if off >= res.Size {
		return 0, nil
	}
	n := int64(len(buf))
	if remaining := res.Size - off; n > remaining {
		n = remaining
	}
	copy(buf, res.Data[off:off+n])
	fs.touch(id, true, false)
	return int(n), nil
}

// Write writes buf at offset off into path's content, creating path as
// a regular file first if it does not exist (spec.md §4.4's
// "resolve-or-create" contract for write).
func (fs *FS) Write(path string, buf []byte, off int64) (int, error) {
	fs.metric("write")
	id, err := fs.resolve(path)
	if errors.Is(err, ErrNotFound) {
		if mkErr := fs.Mknod(path, S_IFREG|0o644, 0); mkErr != nil {
			return 0, mkErr
		}
		id, err = fs.resolve(path)
	}
	if err != nil {
		return 0, err
	}

	rec := fs.img.hdr.getInode(id)
	if isDirMode(rec.Mode) {
		return 0, ErrIsDirectory
	}

	n, err := fs.img.writeAtInode(id, buf, off)
	if err != nil {
		return n, err
	}
	fs.touch(id, false, true)
	return n, nil
}

// Truncate resizes path's content to newSize, freeing or allocating
// blocks as needed.
func (fs *FS) Truncate(path string, newSize int64) error {
	fs.metric("truncate")
	id, err := fs.resolve(path)
	if err != nil {
		return err
	}
	if err := fs.img.resize(id, newSize); err != nil {
		return err
	}
	fs.touch(id, false, true)
	return nil
}

// Chmod overwrites path's mode bits (caller preserves type bits).
func (fs *FS) Chmod(path string, mode uint32) error {
	fs.metric("chmod")
	id, err := fs.resolve(path)
	if err != nil {
		return err
	}
	rec := fs.img.hdr.getInode(id)
	rec.Mode = mode
	fs.img.hdr.putInode(id, rec)
	return nil
}

// Utimens overwrites path's atime and mtime.
func (fs *FS) Utimens(path string, atime, mtime time.Time) error {
	fs.metric("utimens")
	id, err := fs.resolve(path)
	if err != nil {
		return err
	}
	rec := fs.img.hdr.getInode(id)
	rec.AtimSec, rec.AtimNsec = atime.Unix(), int64(atime.Nanosecond())
	rec.MtimSec, rec.MtimNsec = mtime.Unix(), int64(mtime.Nanosecond())
	fs.img.hdr.putInode(id, rec)
	return nil
}

// Link adds a new directory entry at "to" pointing at the inode
// resolved from "from", incrementing its link count. Grounded on
// original_source/storage.c:inode_link.
func (fs *FS) Link(from, to string) error {
	fs.metric("link")
	fromID, err := fs.resolve(from)
	if err != nil {
		return err
	}

	toParent, toName, _, found, err := fs.resolvePair(to)
	if err != nil {
		return err
	}
	if found {
		return ErrExists
	}

	toDir, err := fs.getDir(toParent)
	if err != nil {
		return err
	}
	if err := toDir.addFile(toName, fromID); err != nil {
		return err
	}
	if err := fs.putDir(toParent, toDir); err != nil {
		return err
	}

	rec := fs.img.hdr.getInode(fromID)
	rec.Nlink++
	fs.img.hdr.putInode(fromID, rec)
	return nil
}

// Unlink removes path's directory entry and decrements its inode's
// nlink, freeing the inode and its blocks once nlink reaches zero.
// Grounded on original_source/storage.c:delete_link/inode_unlink.
func (fs *FS) Unlink(path string) error {
	fs.metric("unlink")
	parent, name, childID, found, err := fs.resolvePair(path)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}

	dir, err := fs.getDir(parent)
	if err != nil {
		return err
	}
	dir.removeFile(name)
	if err := fs.putDir(parent, dir); err != nil {
		return err
	}

	rec := fs.img.hdr.getInode(childID)
	if rec.Nlink > 0 {
		rec.Nlink--
	}
	if rec.Nlink == 0 {
		fs.img.hdr.putInode(childID, rec)
		if err := fs.img.resize(childID, 0); err != nil {
			return err
		}
		fs.img.releaseInode(childID)
		return nil
	}
	fs.img.hdr.putInode(childID, rec)
	return nil
}

// rmdirWorkItem tracks whether a directory's children have already been
// pushed onto the teardown stack.
type rmdirWorkItem struct {
	path           string
	childrenQueued bool
}

// Rmdir removes path and, recursively, everything beneath it. An
// explicit stack replaces the original's per-child recursion
// (original_source/storage.c:remove_dir_inode), bounding native call
// stack depth regardless of hierarchy depth, per spec.md §9's Design
// Notes.
func (fs *FS) Rmdir(path string) error {
	fs.metric("rmdir")
	id, err := fs.resolve(path)
	if err != nil {
		return err
	}
	rec := fs.img.hdr.getInode(id)
	if !isDirMode(rec.Mode) {
		return ErrNotDirectory
	}

	stack := []rmdirWorkItem{{path: path}}
	for len(stack) > 0 {
		topIdx := len(stack) - 1
		item := stack[topIdx]

		if !item.childrenQueued {
			stack[topIdx].childrenQueued = true

			cid, err := fs.resolve(item.path)
			if err != nil {
				return err
			}
			crec := fs.img.hdr.getInode(cid)
			if isDirMode(crec.Mode) {
				dir, err := fs.getDir(cid)
				if err != nil {
					return err
				}
				for _, name := range dir.fileNames() {
					stack = append(stack, rmdirWorkItem{path: joinPath(item.path, name)})
				}
			}
			continue
		}

		if err := fs.Unlink(item.path); err != nil {
			return err
		}
		stack = stack[:topIdx]
	}
	return nil
}

// Rename moves the entry at from to to, replacing any existing entry at
// to. Not specified in detail by spec.md §4.4; implemented by composing
// Link+Unlink primitives the way the original's own operations do (see
// SPEC_FULL.md's SUPPLEMENTED FEATURES).
func (fs *FS) Rename(from, to string) error {
	fs.metric("rename")
	fromParent, fromName, fromChild, found, err := fs.resolvePair(from)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}

	_, toName, _, toFound, err := fs.resolvePair(to)
	if err != nil {
		return err
	}
	if toFound {
		if err := fs.Unlink(to); err != nil {
			return err
		}
	}

	toParent, _, _, _, err := fs.resolvePair(to)
	if err != nil {
		return err
	}

	fromDir, err := fs.getDir(fromParent)
	if err != nil {
		return err
	}
	fromDir.removeFile(fromName)
	if err := fs.putDir(fromParent, fromDir); err != nil {
		return err
	}

	toDir, err := fs.getDir(toParent)
	if err != nil {
		return err
	}
	if err := toDir.addFile(toName, fromChild); err != nil {
		return err
	}
	if err := fs.putDir(toParent, toDir); err != nil {
		return err
	}

	childRec := fs.img.hdr.getInode(fromChild)
	if isDirMode(childRec.Mode) {
		childDir, err := fs.getDir(fromChild)
		if err == nil {
			childDir.parent = toParent
			fs.putDir(fromChild, childDir)
		}
	}
	return nil
}
