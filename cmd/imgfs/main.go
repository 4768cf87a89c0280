// Command imgfs is a CLI around the github.com/KarpelesLab/imgfs package,
// replacing the teacher's hand-rolled os.Args switch (cmd/sqfs/main.go)
// with a github.com/spf13/cobra command tree, the same library the
// GoogleCloudPlatform/gcsfuse CLI in the retrieval pack is built on.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "imgfs",
	Short: "Inspect and mount single-image filesystems",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "imgfs:", err)
		os.Exit(1)
	}
}
