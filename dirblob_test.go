package imgfs

import "testing"

func TestDirectoryAddGetRemove(t *testing.T) {
	dir := newDirectory(1, 0)

	if err := dir.addFile("foo.txt", 5); err != nil {
		t.Fatalf("addFile: %v", err)
	}
	if err := dir.addFile("bar.txt", 6); err != nil {
		t.Fatalf("addFile: %v", err)
	}

	if !dir.hasFile("foo.txt") {
		t.Fatalf("hasFile(foo.txt) = false, want true")
	}
	if id, err := dir.getFileInode("bar.txt"); err != nil || id != 6 {
		t.Fatalf("getFileInode(bar.txt) = (%d, %v), want (6, nil)", id, err)
	}
	if dir.numFiles() != 2 {
		t.Fatalf("numFiles() = %d, want 2", dir.numFiles())
	}

	dir.removeFile("foo.txt")
	if dir.hasFile("foo.txt") {
		t.Fatalf("foo.txt should be gone after removeFile")
	}
	if dir.numFiles() != 1 {
		t.Fatalf("numFiles() after remove = %d, want 1", dir.numFiles())
	}
}

func TestDirectoryRejectsDigitLeadingNames(t *testing.T) {
	dir := newDirectory(1, 0)
	if err := dir.addFile("2fast.txt", 9); err != ErrInvalidName {
		t.Fatalf("addFile(2fast.txt) = %v, want ErrInvalidName", err)
	}
}

func TestDirectorySerializeRoundTrip(t *testing.T) {
	dir := newDirectory(3, 1)
	if err := dir.addFile("alpha", 10); err != nil {
		t.Fatalf("addFile: %v", err)
	}
	if err := dir.addFile("beta", 20); err != nil {
		t.Fatalf("addFile: %v", err)
	}

	blob := dir.serialize()
	if len(blob) != dir.sizeOnDisk() {
		t.Fatalf("sizeOnDisk() = %d, len(serialize()) = %d", dir.sizeOnDisk(), len(blob))
	}

	got, err := deserializeDirectory(blob)
	if err != nil {
		t.Fatalf("deserializeDirectory: %v", err)
	}
	if got.parent != dir.parent || got.self != dir.self {
		t.Fatalf("round trip parent/self = (%d,%d), want (%d,%d)", got.parent, got.self, dir.parent, dir.self)
	}
	for _, name := range []string{"alpha", "beta"} {
		wantID, _ := dir.getFileInode(name)
		gotID, err := got.getFileInode(name)
		if err != nil || gotID != wantID {
			t.Fatalf("round trip entry %q = (%d, %v), want %d", name, gotID, err, wantID)
		}
	}
}

func TestDeserializeDirectoryRejectsTruncated(t *testing.T) {
	if _, err := deserializeDirectory([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected an error decoding a truncated blob")
	}
}
