package main

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
	"github.com/ulikunitz/xz"
)

var snapshotXz bool

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <image> <output>",
	Short: "Write a compressed backup of an image file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return snapshotImage(args[0], args[1], snapshotXz)
	},
}

func init() {
	snapshotCmd.Flags().BoolVar(&snapshotXz, "xz", false, "use xz instead of the default zstd")
	rootCmd.AddCommand(snapshotCmd)
}

// snapshotImage streams imagePath into outPath through a compressing
// writer. github.com/klauspost/compress and github.com/ulikunitz/xz are
// both teacher indirect dependencies used there only to decompress
// squashfs metadata blocks (comp_zstd.go, comp_xz.go); here the same
// libraries run in the write direction, since imgfs's on-disk format is
// never compressed in place.
func snapshotImage(imagePath, outPath string, useXz bool) error {
	src, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("open %q: %w", imagePath, err)
	}
	defer src.Close()

	dst, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %q: %w", outPath, err)
	}
	defer dst.Close()

	if useXz {
		w, err := xz.NewWriter(dst)
		if err != nil {
			return fmt.Errorf("xz writer: %w", err)
		}
		if _, err := io.Copy(w, src); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	}

	w, err := zstd.NewWriter(dst)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
