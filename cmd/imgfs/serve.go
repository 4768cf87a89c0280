package main

import (
	"fmt"
	"net/http"

	"github.com/KarpelesLab/imgfs"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve <image>",
	Short: "Mount an image and expose its operation counters over HTTP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveMetrics(args[0], serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":9090", "address to serve /metrics on")
	rootCmd.AddCommand(serveCmd)
}

func serveMetrics(imagePath, addr string) error {
	m := imgfs.NewMetrics()
	fsys, err := imgfs.Mount(imagePath, imgfs.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer fsys.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/sample", func(w http.ResponseWriter, r *http.Request) {
		fsys.Sample()
		w.WriteHeader(http.StatusNoContent)
	})

	fmt.Printf("serving metrics for %s on %s\n", imagePath, addr)
	return http.ListenAndServe(addr, mux)
}
