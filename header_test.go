package imgfs

import "testing"

func TestHeaderSizeMatchesLayout(t *testing.T) {
	h := newHeader(make([]byte, headerSize()+BlockSize))
	if h.dataStartAt+4 != headerSize() {
		t.Fatalf("header layout ends at %d, headerSize() = %d", h.dataStartAt+4, headerSize())
	}
}

func TestDataStartBlockFormula(t *testing.T) {
	want := ceilDiv(headerSize(), BlockSize) + 1
	if got := dataStartBlock(); got != want {
		t.Fatalf("dataStartBlock() = %d, want %d", got, want)
	}
}

func TestHeaderRootInodeRoundTrip(t *testing.T) {
	h := newHeader(make([]byte, headerSize()+BlockSize))

	rec := inodeRecord{Mode: S_IFDIR | 0o755, Nlink: 2, Size: 128, Direct: 44}
	h.setRootInode(rec)

	got := h.rootInode()
	if got.Mode != rec.Mode || got.Nlink != rec.Nlink || got.Size != rec.Size || got.Direct != rec.Direct {
		t.Fatalf("rootInode() round trip = %+v, want %+v", got, rec)
	}

	// id 0 is an alias for the root.
	if alias := h.getInode(0); alias.Size != rec.Size {
		t.Fatalf("getInode(0) = %+v, want root %+v", alias, rec)
	}
}

func TestHeaderTableInodeRoundTrip(t *testing.T) {
	h := newHeader(make([]byte, headerSize()+BlockSize))

	rec := inodeRecord{Mode: S_IFREG | 0o644, Nlink: 1, Size: 4096, Direct: 50}
	h.putInode(7, rec)

	got := h.getInode(7)
	if got.Mode != rec.Mode || got.Size != rec.Size || got.Direct != rec.Direct {
		t.Fatalf("getInode(7) = %+v, want %+v", got, rec)
	}

	// an untouched slot stays zeroed.
	if blank := h.getInode(8); blank.Mode != 0 {
		t.Fatalf("getInode(8) = %+v, want zero value", blank)
	}
}

func TestHeaderBitmapViews(t *testing.T) {
	h := newHeader(make([]byte, headerSize()+BlockSize))

	bm := h.blockBitmap()
	bm.set(3)
	if !h.blockBitmap().test(3) {
		t.Fatalf("blockBitmap() should alias the same backing bytes across calls")
	}

	ibm := h.inodeBitmap()
	ibm.set(10)
	if !h.inodeBitmap().test(10) {
		t.Fatalf("inodeBitmap() should alias the same backing bytes across calls")
	}
}
