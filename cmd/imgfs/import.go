package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/KarpelesLab/imgfs"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var importCmd = &cobra.Command{
	Use:   "import <image> <host-dir>",
	Short: "Copy a host directory tree into an image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return importTree(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// importTree walks hostDir, reading regular files concurrently
// (golang.org/x/sync/errgroup runs one goroutine per file, with no
// limit on the fan-out, and collects the first error) while the actual
// image writes happen serially afterward, since the image's single
// mmap'd region has no internal locking of its own.
func importTree(imagePath, hostDir string) error {
	fsys, err := imgfs.Mount(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer fsys.Close()

	var paths []string
	var dirs []string
	if err := filepath.WalkDir(hostDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == hostDir {
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, p)
		} else if d.Type().IsRegular() {
			paths = append(paths, p)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("failed to walk %q: %w", hostDir, err)
	}

	sort.Strings(dirs)
	for _, d := range dirs {
		if err := fsys.Mkdir(imagePathFor(hostDir, d), 0o755); err != nil && err != imgfs.ErrExists {
			return fmt.Errorf("mkdir %q: %w", d, err)
		}
	}

	var mu sync.Mutex
	contents := make(map[string][]byte, len(paths))

	g := new(errgroup.Group)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			data, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("read %q: %w", p, err)
			}
			mu.Lock()
			contents[p] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Strings(paths)
	for _, p := range paths {
		dst := imagePathFor(hostDir, p)
		if _, err := fsys.Write(dst, contents[p], 0); err != nil {
			return fmt.Errorf("write %q: %w", dst, err)
		}
	}
	return nil
}

func imagePathFor(hostDir, p string) string {
	rel, err := filepath.Rel(hostDir, p)
	if err != nil {
		rel = p
	}
	return "/" + strings.ReplaceAll(rel, string(filepath.Separator), "/")
}
