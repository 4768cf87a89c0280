package main

import (
	"github.com/KarpelesLab/imgfs"
	"github.com/spf13/cobra"
)

var mkimageCmd = &cobra.Command{
	Use:   "mkimage <path>",
	Short: "Create (or re-open) a single-image filesystem file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := imgfs.Mount(args[0])
		if err != nil {
			return err
		}
		return fs.Close()
	},
}

func init() {
	rootCmd.AddCommand(mkimageCmd)
}
