package imgfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// directory is the in-memory decoding of a directory inode's data: the
// parent/self inode ids plus an ordered name->inode-id mapping. The
// on-disk form is the textual paths-blob described in spec.md §3; this
// type parses it into a map at load and re-serializes at save, per
// spec.md §9's Design Notes (replacing the original's fragile
// substring-edit logic, grounded on original_source/directory.c).
type directory struct {
	parent int32
	self   int32

	// names preserves insertion order for deterministic serialization
	// and readdir enumeration order.
	names []string
	ids   map[string]int32
}

// newDirectory creates a directory whose paths-blob begins with the
// mandatory self-entry "/<selfID>", matching the on-disk sentinel the
// original writes at creation (original_source/directory.c:create_directory).
func newDirectory(selfID, parentID int32) *directory {
	return &directory{
		parent: parentID,
		self:   selfID,
		ids:    make(map[string]int32),
	}
}

// isDigitLeading reports whether name begins with a decimal digit. Such
// names are rejected by addFile: see DESIGN.md's Open Question
// resolution #1.
func isDigitLeading(name string) bool {
	return len(name) > 0 && name[0] >= '0' && name[0] <= '9'
}

// addFile appends a name -> inodeID entry. Returns ErrInvalidName if
// name starts with a decimal digit (original_source/directory.c:add_file).
func (d *directory) addFile(name string, inodeID int32) error {
	if isDigitLeading(name) {
		return ErrInvalidName
	}
	if _, exists := d.ids[name]; !exists {
		d.names = append(d.names, name)
	}
	d.ids[name] = inodeID
	return nil
}

// hasFile reports whether name is present.
func (d *directory) hasFile(name string) bool {
	_, ok := d.ids[name]
	return ok
}

// getFileInode returns the inode id for name, or ErrNotFound.
func (d *directory) getFileInode(name string) (int32, error) {
	id, ok := d.ids[name]
	if !ok {
		return 0, ErrNotFound
	}
	return id, nil
}

// removeFile deletes name's entry, if present.
func (d *directory) removeFile(name string) {
	if _, ok := d.ids[name]; !ok {
		return
	}
	delete(d.ids, name)
	for i, n := range d.names {
		if n == name {
			d.names = append(d.names[:i], d.names[i+1:]...)
			break
		}
	}
}

// numFiles returns the number of entries (excluding the self-entry).
func (d *directory) numFiles() int {
	return len(d.names)
}

// fileNames returns the entry names in insertion order.
func (d *directory) fileNames() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// serialize encodes the directory exactly as spec.md §3 describes:
//
//	[int32 parent] [int32 self] [NUL-terminated paths-blob]
//
// where the paths-blob is "/<self>" followed by "<name>/<id>" for each
// entry, concatenated with no separators. A strings.Builder is used
// instead of the original's repeated strcat/smart_cat, which avoids
// the off-box-one bug spec.md §9 calls out without changing the wire
// format.
func (d *directory) serialize() []byte {
	var blob strings.Builder
	blob.WriteByte('/')
	blob.WriteString(strconv.FormatInt(int64(d.self), 10))
	for _, name := range d.names {
		blob.WriteString(name)
		blob.WriteByte('/')
		blob.WriteString(strconv.FormatInt(int64(d.ids[name]), 10))
	}

	out := make([]byte, 0, 8+blob.Len()+1)
	buf := bytes.NewBuffer(out)
	binary.Write(buf, binary.LittleEndian, d.parent)
	binary.Write(buf, binary.LittleEndian, d.self)
	buf.WriteString(blob.String())
	buf.WriteByte(0)
	return buf.Bytes()
}

// sizeOnDisk reports the serialized length by serializing the
// directory and measuring the result, matching
// original_source/directory.c:get_size_directory.
func (d *directory) sizeOnDisk() int {
	return len(d.serialize())
}

// deserializeDirectory parses the wire format written by serialize.
func deserializeDirectory(data []byte) (*directory, error) {
	if len(data) < 9 {
		return nil, fmt.Errorf("imgfs: directory blob too short (%d bytes)", len(data))
	}
	r := bytes.NewReader(data)
	d := &directory{ids: make(map[string]int32)}
	if err := binary.Read(r, binary.LittleEndian, &d.parent); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.self); err != nil {
		return nil, err
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	// drop the trailing NUL (and anything padding past it, defensively)
	if idx := bytes.IndexByte(rest, 0); idx >= 0 {
		rest = rest[:idx]
	}
	paths := string(rest)

	// The blob begins with the self-entry "/<id>"; skip past it before
	// parsing name/id pairs, per spec.md §3's "leading self-entry ...
	// listing skips it".
	if len(paths) == 0 || paths[0] != '/' {
		return nil, fmt.Errorf("imgfs: malformed directory blob, missing self-entry")
	}
	i := 1
	for i < len(paths) && (paths[i] == '-' || isDigit(paths[i])) {
		i++
	}
	paths = paths[i:]

	for len(paths) > 0 {
		slash := strings.IndexByte(paths, '/')
		if slash < 0 {
			break
		}
		name := paths[:slash]
		rest := paths[slash+1:]
		j := 0
		if j < len(rest) && rest[j] == '-' {
			j++
		}
		for j < len(rest) && isDigit(rest[j]) {
			j++
		}
		idStr := rest[:j]
		id, err := strconv.ParseInt(idStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("imgfs: malformed directory entry %q: %w", name, err)
		}
		if err := d.addFile(name, int32(id)); err != nil {
			return nil, err
		}
		paths = rest[j:]
	}

	return d, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
