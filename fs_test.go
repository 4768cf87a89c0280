package imgfs_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/KarpelesLab/imgfs"
	"github.com/kylelemons/godebug/pretty"
)

func mountTemp(t *testing.T) *imgfs.FS {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.img")
	fs, err := imgfs.Mount(path)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	t.Cleanup(func() { fs.Close() })
	return fs
}

func TestMountInitializesRoot(t *testing.T) {
	fs := mountTemp(t)

	st, err := fs.Stat("/")
	if err != nil {
		t.Fatalf("Stat(/): %v", err)
	}
	if st.Mode&imgfs.S_IFDIR == 0 {
		t.Fatalf("root mode %#o is not a directory", st.Mode)
	}

	entries, err := fs.Readdir("/")
	if err != nil {
		t.Fatalf("Readdir(/): %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "." {
		t.Fatalf("fresh root listing = %v, want only \".\"", entries)
	}
}

func TestCreateWriteReadRoundTrip(t *testing.T) {
	fs := mountTemp(t)

	payload := []byte("the quick brown fox")
	if _, err := fs.Write("/hello.txt", payload, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	buf := make([]byte, len(payload))
	n, err := fs.Read("/hello.txt", buf, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != len(payload) || !bytes.Equal(buf[:n], payload) {
		t.Fatalf("Read = %q (%d bytes), want %q", buf[:n], n, payload)
	}

	st, err := fs.Stat("/hello.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if st.Size != int64(len(payload)) {
		t.Fatalf("Stat.Size = %d, want %d", st.Size, len(payload))
	}
}

func TestWriteAcrossIndirectBlocks(t *testing.T) {
	fs := mountTemp(t)

	// One direct block (4096 bytes) is not enough; this forces the
	// indirect block chain in inode.go's growBlocks to engage.
	size := imgfs.BlockSize*3 + 17
	payload := bytes.Repeat([]byte{0xAB}, size)

	if _, err := fs.Write("/big.bin", payload, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	buf := make([]byte, size)
	n, err := fs.Read("/big.bin", buf, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != size {
		t.Fatalf("Read returned %d bytes, want %d", n, size)
	}
	if diff := pretty.Compare(buf, payload); diff != "" {
		t.Fatalf("content mismatch (-got +want):\n%s", diff)
	}
}

func TestTruncateDownThenUpReadsZero(t *testing.T) {
	fs := mountTemp(t)

	if _, err := fs.Write("/shrink.bin", bytes.Repeat([]byte{0x7F}, imgfs.BlockSize*2), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := fs.Truncate("/shrink.bin", 10); err != nil {
		t.Fatalf("Truncate down: %v", err)
	}
	if err := fs.Truncate("/shrink.bin", imgfs.BlockSize+50); err != nil {
		t.Fatalf("Truncate up: %v", err)
	}

	st, err := fs.Stat("/shrink.bin")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if st.Size != imgfs.BlockSize+50 {
		t.Fatalf("Size after grow = %d, want %d", st.Size, imgfs.BlockSize+50)
	}

	buf := make([]byte, st.Size)
	if _, err := fs.Read("/shrink.bin", buf, 0); err != nil {
		t.Fatalf("Read: %v", err)
	}
	// bytes beyond the truncated-down length must read back as zero:
	// the kept first block's stale tail is cleared by zeroGrowthGap, and
	// growBlocks only ever hands out freshly zeroed blocks.
	for i := 10; i < len(buf); i++ {
		if buf[i] != 0 {
			t.Fatalf("byte %d = %#x after truncate-down-then-up, want 0", i, buf[i])
		}
	}
}

func TestLinkUnlinkNlinkTracking(t *testing.T) {
	fs := mountTemp(t)

	if _, err := fs.Write("/orig.txt", []byte("shared"), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := fs.Link("/orig.txt", "/alias.txt"); err != nil {
		t.Fatalf("Link: %v", err)
	}

	st, err := fs.Stat("/orig.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if st.Nlink != 2 {
		t.Fatalf("Nlink after Link = %d, want 2", st.Nlink)
	}

	if err := fs.Unlink("/alias.txt"); err != nil {
		t.Fatalf("Unlink(/alias.txt): %v", err)
	}
	st, err = fs.Stat("/orig.txt")
	if err != nil {
		t.Fatalf("Stat after unlinking alias: %v", err)
	}
	if st.Nlink != 1 {
		t.Fatalf("Nlink after unlinking alias = %d, want 1", st.Nlink)
	}

	if err := fs.Unlink("/orig.txt"); err != nil {
		t.Fatalf("Unlink(/orig.txt): %v", err)
	}
	if _, err := fs.Stat("/orig.txt"); !errors.Is(err, imgfs.ErrNotFound) {
		t.Fatalf("Stat after final unlink = %v, want ErrNotFound", err)
	}
}

func TestReaddirAfterMixedOps(t *testing.T) {
	fs := mountTemp(t)

	if err := fs.Mkdir("/dir", 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if _, err := fs.Write("/dir/a.txt", []byte("a"), 0); err != nil {
		t.Fatalf("Write a.txt: %v", err)
	}
	if _, err := fs.Write("/dir/b.txt", []byte("b"), 0); err != nil {
		t.Fatalf("Write b.txt: %v", err)
	}
	if err := fs.Unlink("/dir/a.txt"); err != nil {
		t.Fatalf("Unlink a.txt: %v", err)
	}

	entries, err := fs.Readdir("/dir")
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}

	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name] = true
	}
	if !names["."] || !names["b.txt"] || names["a.txt"] {
		t.Fatalf("Readdir(/dir) = %v, want {., b.txt}", entries)
	}
}

func TestWriteUntilNoSpace(t *testing.T) {
	fs := mountTemp(t)

	// Large enough to outrun every block the 1MiB image can offer for
	// file data once the fixed header is accounted for.
	huge := make([]byte, imgfs.DiskSize)
	_, err := fs.Write("/fill.bin", huge, 0)
	if !errors.Is(err, imgfs.ErrNoSpace) {
		t.Fatalf("Write huge payload = %v, want ErrNoSpace", err)
	}
}

func TestRmdirRemovesSubtree(t *testing.T) {
	fs := mountTemp(t)

	if err := fs.Mkdir("/tree", 0o755); err != nil {
		t.Fatalf("Mkdir /tree: %v", err)
	}
	if err := fs.Mkdir("/tree/child", 0o755); err != nil {
		t.Fatalf("Mkdir /tree/child: %v", err)
	}
	if _, err := fs.Write("/tree/child/leaf.txt", []byte("x"), 0); err != nil {
		t.Fatalf("Write leaf.txt: %v", err)
	}

	if err := fs.Rmdir("/tree"); err != nil {
		t.Fatalf("Rmdir: %v", err)
	}
	if _, err := fs.Stat("/tree"); !errors.Is(err, imgfs.ErrNotFound) {
		t.Fatalf("Stat(/tree) after Rmdir = %v, want ErrNotFound", err)
	}
}

func TestRenameReplacesExisting(t *testing.T) {
	fs := mountTemp(t)

	if _, err := fs.Write("/a.txt", []byte("A"), 0); err != nil {
		t.Fatalf("Write a.txt: %v", err)
	}
	if _, err := fs.Write("/b.txt", []byte("B"), 0); err != nil {
		t.Fatalf("Write b.txt: %v", err)
	}

	if err := fs.Rename("/a.txt", "/b.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	buf := make([]byte, 1)
	if _, err := fs.Read("/b.txt", buf, 0); err != nil {
		t.Fatalf("Read b.txt after rename: %v", err)
	}
	if buf[0] != 'A' {
		t.Fatalf("b.txt content after rename = %q, want \"A\"", buf)
	}
	if _, err := fs.Stat("/a.txt"); !errors.Is(err, imgfs.ErrNotFound) {
		t.Fatalf("Stat(/a.txt) after rename = %v, want ErrNotFound", err)
	}
}
