package main

import (
	"fmt"

	"github.com/KarpelesLab/imgfs"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <image>",
	Short: "Show image layout and root inode metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showInfo(args[0])
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func showInfo(imagePath string) error {
	fsys, err := imgfs.Mount(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer fsys.Close()

	root, err := fsys.Stat("/")
	if err != nil {
		return err
	}

	fmt.Printf("disk size:    %d bytes\n", imgfs.DiskSize)
	fmt.Printf("block size:   %d bytes\n", imgfs.BlockSize)
	fmt.Printf("block count:  %d\n", imgfs.BlockCount)
	fmt.Printf("inode count:  %d\n", imgfs.InodeCount)
	fmt.Printf("root inode:   %d (mode %#o, nlink %d)\n", root.Ino, root.Mode, root.Nlink)
	return nil
}
