package main

import (
	"fmt"
	"os"

	"github.com/KarpelesLab/imgfs"
	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat <image> <path>",
	Short: "Print a file's contents",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return catFile(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}

func catFile(imagePath, filePath string) error {
	fsys, err := imgfs.Mount(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer fsys.Close()

	st, err := fsys.Stat(filePath)
	if err != nil {
		return fmt.Errorf("%q not found: %w", filePath, err)
	}
	if st.Mode&imgfs.S_IFDIR == imgfs.S_IFDIR {
		return fmt.Errorf("%q is a directory", filePath)
	}

	buf := make([]byte, st.Size)
	if _, err := fsys.Read(filePath, buf, 0); err != nil {
		return fmt.Errorf("failed to read %q: %w", filePath, err)
	}
	_, err = os.Stdout.Write(buf)
	return err
}
