// Command metad is the meta service entrypoint: it loads
// configuration, opens the catalog, wires the membership tracker and
// placement engine into internal/metaapi, and serves the Catalog and
// Heartbeat APIs over HTTP until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/distrofs/meta/internal/catalog"
	"github.com/distrofs/meta/internal/config"
	"github.com/distrofs/meta/internal/membership"
	"github.com/distrofs/meta/internal/metaapi"
	"github.com/distrofs/meta/internal/placement"
	"github.com/distrofs/meta/pkg/httpserver"
	"github.com/distrofs/meta/pkg/logging"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "metad",
		Short: "DistroFS meta service: catalog, membership, and placement",
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the meta service",
		RunE:  runServe,
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("metad %s\n", version)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadMeta()
	if err != nil {
		return fmt.Errorf("metad: load config: %w", err)
	}

	log := logging.Init("metad", logging.ParseLevel(cfg.LogLevel))

	store, err := catalog.Open(cfg.MetadataPath())
	if err != nil {
		return fmt.Errorf("metad: open catalog: %w", err)
	}

	tracker := membership.NewTracker(cfg.StorageNodes, cfg.HeartbeatTimeout)
	engine := placement.NewEngine()
	svc := metaapi.NewService(store, tracker, engine, cfg.ReplicationFactor, cfg.NodeID, nil)

	handler := metaapi.Handler(svc, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.WithFields(map[string]any{
		"node_id":            cfg.NodeID,
		"listen_addr":        cfg.ListenAddr,
		"replication_factor": cfg.ReplicationFactor,
		"storage_nodes":      cfg.StorageNodes,
	}).Info("meta service starting")

	return httpserver.Serve(ctx, cfg.ListenAddr, handler, log)
}
