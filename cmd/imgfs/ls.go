package main

import (
	"fmt"
	"os"

	"github.com/KarpelesLab/imgfs"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls <image> [path]",
	Short: "List files in a single-image filesystem",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/"
		if len(args) > 1 {
			path = args[1]
		}
		return listFiles(args[0], path)
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

func listFiles(imagePath, dirPath string) error {
	fsys, err := imgfs.Mount(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer fsys.Close()

	entries, err := fsys.Readdir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read directory %q: %w", dirPath, err)
	}

	for _, e := range entries {
		if e.Name == "." {
			continue
		}
		printEntry(e)
	}
	return nil
}

func printEntry(e imgfs.DirEntry) {
	mode := imgfs.UnixToMode(e.Stat.Mode)
	typeChar := "-"
	if e.Stat.Mode&imgfs.S_IFDIR == imgfs.S_IFDIR {
		typeChar = "d"
	}
	size := fmt.Sprintf("%8d", e.Stat.Size)
	if typeChar == "d" {
		size = "       -"
	}
	timeStr := e.Stat.Mtime.Format("Jan 02 15:04")
	fmt.Fprintf(os.Stdout, "%s%s %s %s %s\n", typeChar, mode.String()[1:], size, timeStr, e.Name)
}
