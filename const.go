package imgfs

// Compile-time parameters. These are fixed per build, matching the
// reference configuration: a 1MiB image cut into 4KiB blocks with a
// 2048-entry inode table.
const (
	DiskSize   = 1 << 20 // 1 048 576 bytes
	BlockSize  = 4096
	InodeCount = 2048
	BlockCount = DiskSize / BlockSize
)
