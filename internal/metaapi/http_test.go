package metaapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/distrofs/meta/internal/catalog"
	"github.com/distrofs/meta/internal/membership"
	"github.com/distrofs/meta/internal/placement"
)

func newTestHandler(t *testing.T, configured []string, replicas int, now func() time.Time) http.Handler {
	t.Helper()
	store, err := catalog.Open(t.TempDir() + "/metadata.json")
	require.NoError(t, err)

	tracker := membership.NewTracker(configured, time.Minute)
	engine := placement.NewEngine()
	svc := NewService(store, tracker, engine, replicas, "meta-01", now)

	return Handler(svc, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func heartbeatAll(t *testing.T, h http.Handler, nodes []string) {
	t.Helper()
	for _, n := range nodes {
		rec := doJSON(t, h, http.MethodPost, "/internal/storage_heartbeat", map[string]string{"node_id": n})
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestHandler(t, []string{"storage-01"}, 1, nil)
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestChunkCheckUnknownFingerprintDoesNotExist(t *testing.T) {
	h := newTestHandler(t, []string{"storage-01", "storage-02"}, 2, nil)
	heartbeatAll(t, h, []string{"storage-01", "storage-02"})

	rec := doJSON(t, h, http.MethodPost, "/chunk/check", map[string]string{"fingerprint": "deadbeef"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["exists"])
}

func TestChunkRegisterThenCheckExists(t *testing.T) {
	h := newTestHandler(t, []string{"storage-01", "storage-02"}, 2, nil)
	heartbeatAll(t, h, []string{"storage-01", "storage-02"})

	rec := doJSON(t, h, http.MethodPost, "/chunk/register", map[string]string{"fingerprint": "abc123"})
	require.Equal(t, http.StatusOK, rec.Code)

	var registerBody map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registerBody))
	assignedNodes, ok := registerBody["assigned_nodes"].([]any)
	require.True(t, ok)
	require.Len(t, assignedNodes, 2)
	require.Equal(t, registerBody["assigned_node"], registerBody["assigned_nodes"])

	rec = doJSON(t, h, http.MethodPost, "/chunk/check", map[string]string{"fingerprint": "abc123"})
	var checkBody map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &checkBody))
	require.Equal(t, true, checkBody["exists"])
}

func TestChunkRegisterInsufficientReplicasReturns500(t *testing.T) {
	h := newTestHandler(t, []string{"storage-01"}, 2, nil)
	heartbeatAll(t, h, []string{"storage-01"})

	rec := doJSON(t, h, http.MethodPost, "/chunk/register", map[string]string{"fingerprint": "abc123"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChunkCheckEmptyFingerprintIsValidationError(t *testing.T) {
	h := newTestHandler(t, []string{"storage-01"}, 1, nil)
	rec := doJSON(t, h, http.MethodPost, "/chunk/check", map[string]string{"fingerprint": ""})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFileCommitAndGetRoundTrip(t *testing.T) {
	h := newTestHandler(t, []string{"storage-01", "storage-02"}, 2, nil)
	heartbeatAll(t, h, []string{"storage-01", "storage-02"})

	for _, fp := range []string{"chunk-a", "chunk-b"} {
		rec := doJSON(t, h, http.MethodPost, "/chunk/register", map[string]string{"fingerprint": fp})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, h, http.MethodPost, "/file/commit", map[string]any{
		"file_name": "report.pdf",
		"chunks":    []string{"chunk-a", "chunk-b", "chunk-a"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/file/report.pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	chunks, ok := body["chunks"].([]any)
	require.True(t, ok)
	require.Len(t, chunks, 3)
}

func TestFileCommitWithUnregisteredChunkIsBadRequest(t *testing.T) {
	h := newTestHandler(t, []string{"storage-01"}, 1, nil)
	heartbeatAll(t, h, []string{"storage-01"})

	rec := doJSON(t, h, http.MethodPost, "/file/commit", map[string]any{
		"file_name": "x.bin",
		"chunks":    []string{"never-registered"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFileGetMissingFileIsNotFound(t *testing.T) {
	h := newTestHandler(t, []string{"storage-01"}, 1, nil)
	rec := doJSON(t, h, http.MethodGet, "/file/nope.bin", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStorageHeartbeatFromUnconfiguredNodeIsBadRequest(t *testing.T) {
	h := newTestHandler(t, []string{"storage-01"}, 1, nil)
	rec := doJSON(t, h, http.MethodPost, "/internal/storage_heartbeat", map[string]string{"node_id": "ghost-node"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDebugLeaderAndMembership(t *testing.T) {
	h := newTestHandler(t, []string{"storage-01", "storage-02"}, 1, nil)

	rec := doJSON(t, h, http.MethodGet, "/debug/leader", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var leaderBody map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leaderBody))
	require.Equal(t, "meta-01", leaderBody["leader"])

	rec = doJSON(t, h, http.MethodGet, "/debug/membership", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsAndVersionEndpointsServe(t *testing.T) {
	h := newTestHandler(t, []string{"storage-01"}, 1, nil)

	rec := doJSON(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/debug/version", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
