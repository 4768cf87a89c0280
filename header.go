package imgfs

import (
	"bytes"
	"encoding/binary"
)

// inodeRecord is the fixed-size on-disk inode layout described in
// spec.md §3. All fields are fixed-width so encoding/binary can
// serialize/deserialize it without padding concerns, replacing the raw
// pointer-arithmetic struct overlay of original_source/storage.h's
// `inode` type per spec.md §9's Design Notes.
type inodeRecord struct {
	Mode  uint32
	Nlink uint32
	Uid   uint32
	Gid   uint32
	Rdev  uint32
	Size  uint64

	AtimSec  int64
	AtimNsec int64
	MtimSec  int64
	MtimNsec int64
	CtimSec  int64
	CtimNsec int64

	Direct   uint32
	Indirect uint32
}

var byteOrder = binary.LittleEndian

// inodeRecordSize is the fixed wire size of one inode record.
var inodeRecordSize = binary.Size(inodeRecord{})

// header is a typed view over the fixed-layout region at the start of
// the mapped image: the root inode, the block and inode bitmaps, the
// inode table, and the data-start-block marker. It replaces the
// original's `meta_block` raw-pointer struct (original_source/storage.c)
// with bounded slice access plus explicit binary.Read/Write codecs, per
// spec.md §9's Design Notes ("Replace with an owned byte region accessed
// through a typed view").
type header struct {
	buf []byte // the entire mapped image; header fields live at the front

	rootOff     int
	blockBmOff  int
	blockBmLen  int
	inodeBmOff  int
	inodeBmLen  int
	tableOff    int
	tableLen    int
	dataStartAt int
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// newHeader computes the fixed layout offsets over buf, which must be
// at least headerSize() bytes long.
func newHeader(buf []byte) *header {
	h := &header{buf: buf}
	h.rootOff = 0
	h.blockBmOff = h.rootOff + inodeRecordSize
	h.blockBmLen = ceilDiv(BlockCount, 8)
	h.inodeBmOff = h.blockBmOff + h.blockBmLen
	h.inodeBmLen = ceilDiv(InodeCount, 8)
	h.tableOff = h.inodeBmOff + h.inodeBmLen
	h.tableLen = InodeCount * inodeRecordSize
	h.dataStartAt = h.tableOff + h.tableLen
	return h
}

// headerSize returns the total byte length of the fixed header region.
func headerSize() int {
	return inodeRecordSize + ceilDiv(BlockCount, 8) + ceilDiv(InodeCount, 8) + InodeCount*inodeRecordSize + 4
}

// dataStartBlock returns the index of the first block available for
// file data: ⌈sizeof(header)/BLOCK_SIZE⌉ + 1, per spec.md §6.
func dataStartBlock() int {
	return ceilDiv(headerSize(), BlockSize) + 1
}

func (h *header) blockBitmap() bitmap {
	return bitmap(h.buf[h.blockBmOff : h.blockBmOff+h.blockBmLen])
}

func (h *header) inodeBitmap() bitmap {
	return bitmap(h.buf[h.inodeBmOff : h.inodeBmOff+h.inodeBmLen])
}

func (h *header) getDataStartBlock() int32 {
	return int32(byteOrder.Uint32(h.buf[h.dataStartAt : h.dataStartAt+4]))
}

func (h *header) setDataStartBlock(v int32) {
	byteOrder.PutUint32(h.buf[h.dataStartAt:h.dataStartAt+4], uint32(v))
}

func (h *header) readRecordAt(off int) inodeRecord {
	var rec inodeRecord
	r := bytes.NewReader(h.buf[off : off+inodeRecordSize])
	binary.Read(r, byteOrder, &rec)
	return rec
}

func (h *header) writeRecordAt(off int, rec inodeRecord) {
	var buf bytes.Buffer
	buf.Grow(inodeRecordSize)
	binary.Write(&buf, byteOrder, &rec)
	copy(h.buf[off:off+inodeRecordSize], buf.Bytes())
}

// rootInode is special-cased to live at the head of the header, per
// spec.md §3, so it is trivially located without consulting the
// allocation bitmap or table index.
func (h *header) rootInode() inodeRecord {
	return h.readRecordAt(h.rootOff)
}

func (h *header) setRootInode(rec inodeRecord) {
	h.writeRecordAt(h.rootOff, rec)
}

// getInode returns the table-indexed inode record. Index 0 is reserved
// for the root (which lives out-of-table, at h.rootOff); table slots
// are therefore addressed starting at id 1 to keep "inode id" a single
// flat namespace across root + table, the same convention
// original_source/storage.c uses (meta->inodes[inodeId], with root
// addressed separately as &meta->root).
func (h *header) getInode(id int32) inodeRecord {
	if id == 0 {
		return h.rootInode()
	}
	off := h.tableOff + int(id-1)*inodeRecordSize
	return h.readRecordAt(off)
}

func (h *header) putInode(id int32, rec inodeRecord) {
	if id == 0 {
		h.setRootInode(rec)
		return
	}
	off := h.tableOff + int(id-1)*inodeRecordSize
	h.writeRecordAt(off, rec)
}
