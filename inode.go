package imgfs

import (
	"os"
	"time"
)

// indirectEntries is the number of block-id slots an indirect block can
// hold: BlockSize bytes of uint32 entries.
const indirectEntries = BlockSize / 4

// allocateInode finds the lowest free inode-table slot, marks it taken,
// and returns its id. Id 0 is reserved for the root (spec.md §3); table
// slots are numbered starting at 1. Grounded on
// original_source/storage.c's bitmap scan in get_new_inode.
func (img *image) allocateInode() (int32, error) {
	slot := img.hdr.inodeBitmap().takeLowest(InodeCount)
	if slot < 0 {
		return 0, ErrNoSpace
	}
	return int32(slot + 1), nil
}

// releaseInode clears an inode-table slot's allocation bit, grounded on
// original_source/storage.c:release_inode.
func (img *image) releaseInode(id int32) {
	if id == 0 {
		return // root is never released
	}
	img.hdr.inodeBitmap().clear(int(id - 1))
}

// setDefaults initializes a freshly allocated inode record: the
// caller-supplied mode, nlink=1, host uid/gid, zeroed rdev/size/
// direct/indirect, and all three timestamps set to now. Grounded on
// original_source/storage.c:set_inode_defaults.
func setDefaults(mode uint32) inodeRecord {
	now := time.Now()
	sec, nsec := now.Unix(), int64(now.Nanosecond())
	return inodeRecord{
		Mode:     mode,
		Nlink:    1,
		Uid:      uint32(os.Getuid()),
		Gid:      uint32(os.Getgid()),
		AtimSec:  sec,
		AtimNsec: nsec,
		MtimSec:  sec,
		MtimNsec: nsec,
		CtimSec:  sec,
		CtimNsec: nsec,
	}
}

func blockCountForSize(size int64) int {
	if size <= 0 {
		return 0
	}
	return ceilDiv(int(size), BlockSize)
}

// readIndirect returns all indirectEntries slots of the block-id array
// stored in the indirect block, in order. Unused slots read as zero,
// thanks to zero-on-allocate.
func (img *image) readIndirect(indirect int32) []int32 {
	raw := img.readBlock(indirect, BlockSize)
	ids := make([]int32, indirectEntries)
	for i := range ids {
		ids[i] = int32(byteOrder.Uint32(raw[i*4 : i*4+4]))
	}
	return ids
}

func (img *image) writeIndirect(indirect int32, ids []int32) {
	raw := make([]byte, BlockSize)
	for i, id := range ids {
		if i >= indirectEntries {
			break
		}
		byteOrder.PutUint32(raw[i*4:i*4+4], uint32(id))
	}
	img.writeBlock(indirect, raw, 0)
}

// resize reconciles an inode's block allocation to match newSize,
// growing or shrinking the direct+indirect block chain as needed, and
// updates the stored size. Grounded on original_source/storage.c's
// change_inode_size/get_blocks/free_blocks.
func (img *image) resize(id int32, newSize int64) error {
	rec := img.hdr.getInode(id)
	oldSize := int64(rec.Size)
	cur := blockCountForSize(oldSize)
	want := blockCountForSize(newSize)

	if want > cur {
		if err := img.growBlocks(&rec, cur, want); err != nil {
			return err
		}
	} else if want < cur {
		img.shrinkBlocks(&rec, cur, want)
	}

	rec.Size = uint64(newSize)
	img.hdr.putInode(id, rec)

	if newSize > oldSize {
		img.zeroGrowthGap(rec, oldSize, newSize, cur)
	}
	return nil
}

// zeroGrowthGap zeros bytes [oldSize, newSize) that land inside blocks
// that already existed before this grow (the first oldBlockCount
// entries of rec's block list). Newly allocated blocks need no extra
// work, since takeBlock already zeroes them; what zero-on-allocate
// alone misses is the stale tail of a block that was kept across a
// truncate-down-then-up (spec.md §8 scenario 3).
func (img *image) zeroGrowthGap(rec inodeRecord, oldSize, newSize int64, oldBlockCount int) {
	end := newSize
	if boundary := int64(oldBlockCount) * BlockSize; end > boundary {
		end = boundary
	}
	if oldSize >= end {
		return
	}

	ids := img.blockList(rec)
	pos := oldSize
	for pos < end {
		blkIdx := int(pos / BlockSize)
		if blkIdx >= oldBlockCount || blkIdx >= len(ids) {
			break
		}
		intra := int(pos % BlockSize)
		n := BlockSize - intra
		if remaining := end - pos; int64(n) > remaining {
			n = int(remaining)
		}
		img.writeBlock(ids[blkIdx], make([]byte, n), intra)
		pos += int64(n)
	}
}

func (img *image) growBlocks(rec *inodeRecord, cur, want int) error {
	if want >= 1 && rec.Direct == 0 {
		b, err := img.takeBlock()
		if err != nil {
			return err
		}
		rec.Direct = uint32(b)
		if cur < 1 {
			cur = 1
		}
	}
	if want <= 1 {
		return nil
	}
	if rec.Indirect == 0 {
		b, err := img.takeBlock()
		if err != nil {
			return err
		}
		rec.Indirect = uint32(b)
	}

	ids := img.readIndirect(int32(rec.Indirect))
	indirectCur := cur - 1
	if indirectCur < 0 {
		indirectCur = 0
	}
	indirectWant := want - 1
	for i := indirectCur; i < indirectWant; i++ {
		b, err := img.takeBlock()
		if err != nil {
			img.writeIndirect(int32(rec.Indirect), ids)
			return err
		}
		ids[i] = b
	}
	img.writeIndirect(int32(rec.Indirect), ids)
	return nil
}

func (img *image) shrinkBlocks(rec *inodeRecord, cur, want int) {
	if rec.Indirect != 0 {
		ids := img.readIndirect(int32(rec.Indirect))
		indirectCur := cur - 1
		indirectWant := want - 1
		if indirectWant < 0 {
			indirectWant = 0
		}
		for i := indirectCur - 1; i >= indirectWant; i-- {
			img.releaseBlock(ids[i])
			ids[i] = 0
		}
		if want <= 1 {
			img.releaseBlock(int32(rec.Indirect))
			rec.Indirect = 0
		} else {
			img.writeIndirect(int32(rec.Indirect), ids)
		}
	}
	if want == 0 && rec.Direct != 0 {
		img.releaseBlock(int32(rec.Direct))
		rec.Direct = 0
	}
}

// blockList returns the ordered block ids backing an inode's data, up
// to blockCountForSize(rec.Size) entries.
func (img *image) blockList(rec inodeRecord) []int32 {
	n := blockCountForSize(int64(rec.Size))
	if n == 0 {
		return nil
	}
	ids := make([]int32, 0, n)
	ids = append(ids, int32(rec.Direct))
	if n > 1 {
		all := img.readIndirect(int32(rec.Indirect))
		ids = append(ids, all[:n-1]...)
	}
	return ids
}

// readResult is the transient {mode, size, bytes} tuple spec.md §3
// calls the "Read-result handle", owned by the caller.
type readResult struct {
	Mode uint32
	Size int64
	Data []byte
}

// readAllInode materializes an inode's full content. Grounded on
// original_source/storage.c:read_inode.
func (img *image) readAllInode(id int32) readResult {
	rec := img.hdr.getInode(id)
	size := int64(rec.Size)
	data := make([]byte, size)
	if size == 0 {
		return readResult{Mode: rec.Mode, Size: 0, Data: data}
	}

	ids := img.blockList(rec)
	var copied int64
	for _, blk := range ids {
		remaining := size - copied
		want := int64(BlockSize)
		if remaining < want {
			want = remaining
		}
		chunk := img.readBlock(blk, int(want))
		copy(data[copied:copied+want], chunk)
		copied += want
		if copied >= size {
			break
		}
	}
	return readResult{Mode: rec.Mode, Size: size, Data: data}
}

// writeAtInode writes src at offset into an inode's data, growing it
// first if the write extends past the current size. Grounded on
// original_source/storage.c:write_to_inode/write_to_blocks.
func (img *image) writeAtInode(id int32, src []byte, offset int64) (int, error) {
	rec := img.hdr.getInode(id)
	needed := offset + int64(len(src))
	if needed > int64(rec.Size) {
		if err := img.resize(id, needed); err != nil {
			return 0, err
		}
		rec = img.hdr.getInode(id)
	}

	ids := img.blockList(rec)
	if len(ids) == 0 {
		return 0, nil
	}

	blockIdx := int(offset / BlockSize)
	if blockIdx >= len(ids) {
		return 0, nil
	}
	intraOff := int(offset % BlockSize)

	written := 0
	for written < len(src) && blockIdx < len(ids) {
		n := img.writeBlock(ids[blockIdx], src[written:], intraOff)
		written += n
		blockIdx++
		intraOff = 0
	}
	return written, nil
}
