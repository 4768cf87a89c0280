//go:build !fuse

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mountCmd = &cobra.Command{
	Use:   "mount <image> <mountpoint>",
	Short: "Check a mountpoint and open an image for FUSE (requires the fuse build tag; does not start a mount)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("imgfs: built without FUSE support, rebuild with -tags fuse")
	},
}

func init() {
	rootCmd.AddCommand(mountCmd)
}
