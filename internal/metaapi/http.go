package metaapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/distrofs/meta/internal/metrics"
)

// Handler builds the meta service's HTTP surface: the Catalog API, the
// Heartbeat API, and the debug/health/metrics endpoints of spec.md §6.1
// plus SPEC_FULL.md's additive operational endpoints.
func Handler(svc *Service, log *logrus.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/debug/version", handleVersion)
	mux.HandleFunc("/debug/leader", handleLeader(svc))
	mux.HandleFunc("/debug/membership", handleMembership(svc))
	mux.HandleFunc("/chunk/check", handleChunkCheck(svc))
	mux.HandleFunc("/chunk/register", handleChunkRegister(svc))
	mux.HandleFunc("/file/commit", handleFileCommit(svc))
	mux.HandleFunc("/file/", handleFileGet(svc))
	mux.HandleFunc("/internal/storage_heartbeat", handleStorageHeartbeat(svc))

	return withRequestLog(mux, svc, log)
}

// withRequestLog stamps every request with a correlation ID (the way
// the teacher's distributor tagged chunk/file transfers with a
// google/uuid-generated identifier), logs method/path/status/outcome,
// and refreshes the catalog-size gauges from svc's current counts.
func withRequestLog(next http.Handler, svc *Service, log *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		outcome := "ok"
		if rw.status >= 400 {
			outcome = "error"
		}
		metrics.ObserveRequest(r.URL.Path, outcome)

		files, chunks := svc.CatalogCounts()
		metrics.SetCatalogSize(files, chunks)

		if log != nil {
			log.WithFields(logrus.Fields{
				"request_id": reqID,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rw.status,
			}).Info("handled request")
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"role": "meta", "ok": true})
}

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
)

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"version": buildVersion, "commit": buildCommit})
}

func handleLeader(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"leader": svc.DebugLeader()})
	}
}

func handleMembership(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, summary := svc.DebugMembership()
		metrics.SetMembership(summary.Alive, summary.Suspected, summary.Dead)
		writeJSON(w, http.StatusOK, map[string]any{
			"membership": snapshot,
			"summary":    summary,
		})
	}
}

type chunkCheckReq struct {
	Fingerprint string `json:"fingerprint"`
}

func handleChunkCheck(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chunkCheckReq
		if !decodeJSON(w, r, &req) {
			return
		}

		result, err := svc.ChunkCheck(req.Fingerprint)
		if err != nil {
			writeAPIErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"exists":    result.Exists,
			"locations": result.Locations,
		})
	}
}

type chunkRegisterReq struct {
	Fingerprint string `json:"fingerprint"`
}

func handleChunkRegister(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chunkRegisterReq
		if !decodeJSON(w, r, &req) {
			return
		}

		assigned, err := svc.ChunkRegister(req.Fingerprint)
		if err != nil {
			writeAPIErr(w, err)
			return
		}
		// assigned_nodes is canonical; assigned_node is a compatibility
		// alias carrying the same list, per spec.md §6.1.
		writeJSON(w, http.StatusOK, map[string]any{
			"assigned_nodes": assigned,
			"assigned_node":  assigned,
		})
	}
}

type fileCommitReq struct {
	FileName string   `json:"file_name"`
	Chunks   []string `json:"chunks"`
}

func handleFileCommit(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req fileCommitReq
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := svc.FileCommit(FileCommitRequest{FileName: req.FileName, Chunks: req.Chunks}); err != nil {
			writeAPIErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}

func handleFileGet(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/file/")
		if name == "" {
			writeAPIErr(w, validation("file name must not be empty"))
			return
		}

		items, err := svc.FileGet(name)
		if err != nil {
			writeAPIErr(w, err)
			return
		}

		out := make([]map[string]any, 0, len(items))
		for _, item := range items {
			out = append(out, map[string]any{
				"fingerprint": item.Fingerprint,
				"locations":   item.Locations,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"chunks": out})
	}
}

type storageHeartbeatReq struct {
	NodeID string `json:"node_id"`
}

func handleStorageHeartbeat(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req storageHeartbeatReq
		if !decodeJSON(w, r, &req) {
			return
		}

		observedAt, err := svc.StorageHeartbeat(req.NodeID)
		if err != nil {
			writeAPIErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "alive",
			"node_id":     req.NodeID,
			"observed_at": observedAt,
		})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		writeAPIErr(w, validation("request body required"))
		return false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeAPIErr(w, validation("malformed request body: "+err.Error()))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeAPIErr(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*apiError)
	if !ok {
		apiErr = &apiError{Status: http.StatusInternalServerError, Detail: err.Error()}
	}
	writeJSON(w, apiErr.Status, map[string]any{"detail": apiErr.Detail})
}
