// Command storaged is the reference storage node described in
// SPEC_FULL.md §4.6: a minimal content-addressed blob server plus a
// heartbeat loop to the meta service. It exists only so the meta
// service's storage-node wire contract has a real counterpart to run
// locally; it is not itself part of this module's scope.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/distrofs/meta/internal/config"
	"github.com/distrofs/meta/internal/storage"
	"github.com/distrofs/meta/pkg/httpserver"
	"github.com/distrofs/meta/pkg/logging"
)

func main() {
	root := &cobra.Command{
		Use:   "storaged",
		Short: "Reference content-addressed storage node",
		RunE:  runServe,
	}
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("storaged dev")
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadStorageNode()
	if err != nil {
		return fmt.Errorf("storaged: load config: %w", err)
	}

	log := logging.Init("storaged", logging.ParseLevel(cfg.LogLevel))

	blobs, err := storage.NewLocalBlobs(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("storaged: init blob store: %w", err)
	}

	handler := newBlobHandler(blobs, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go runHeartbeatLoop(ctx, cfg, log)

	return httpserver.Serve(ctx, cfg.ListenAddr, handler, log)
}

func newBlobHandler(blobs storage.Blobs, log *logrus.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"role": "storage", "ok": true})
	})

	mux.HandleFunc("/chunk/", func(w http.ResponseWriter, r *http.Request) {
		fingerprint := strings.TrimPrefix(r.URL.Path, "/chunk/")
		if fingerprint == "" {
			http.Error(w, "fingerprint required", http.StatusBadRequest)
			return
		}

		switch r.Method {
		case http.MethodPut:
			defer r.Body.Close()
			if err := blobs.Put(fingerprint, r.Body); err != nil {
				log.WithError(err).WithField("fingerprint", fingerprint).Warn("chunk rejected")
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			rc, err := blobs.Get(fingerprint)
			if err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			defer rc.Close()
			w.Header().Set("Content-Type", "application/octet-stream")
			if _, err := io.Copy(w, rc); err != nil {
				log.WithError(err).Warn("failed writing chunk response")
			}
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return mux
}

// runHeartbeatLoop POSTs this node's liveness to the meta service on a
// fixed cadence, adapted from the teacher's peer ping/monitor idiom:
// this is the only ticker-driven background loop in the module, since
// it drives the storage node's own outbound heartbeat rather than the
// meta's membership sweep (which is request-driven, never timer
// driven).
func runHeartbeatLoop(ctx context.Context, cfg config.StorageNode, log *logrus.Logger) {
	ticker := time.NewTicker(cfg.HeartbeatInterval)
	defer ticker.Stop()

	client := &http.Client{Timeout: 5 * time.Second}

	send := func() {
		body, _ := json.Marshal(map[string]string{"node_id": cfg.NodeID})
		resp, err := client.Post(strings.TrimRight(cfg.MetaAddr, "/")+"/internal/storage_heartbeat", "application/json", bytes.NewReader(body))
		if err != nil {
			log.WithError(err).Warn("heartbeat failed")
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			log.WithField("status", resp.StatusCode).Warn("heartbeat rejected by meta")
		}
	}

	send()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			send()
		}
	}
}
