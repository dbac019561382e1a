// Package catalog holds the meta service's single source of truth: the
// file/chunk/membership document and its crash-safe persistence.
package catalog

import (
	"encoding/json"
	"time"
)

// NodeStatus is a storage node's liveness as tracked by the membership
// tracker. Only alive and dead are ever produced by this core; suspected
// is part of the wire taxonomy but reserved for a future probe-based
// tracker (see DESIGN.md open questions) and is only ever read, never
// written, here.
type NodeStatus string

const (
	StatusAlive     NodeStatus = "alive"
	StatusSuspected NodeStatus = "suspected"
	StatusDead      NodeStatus = "dead"
)

// FileRecord is the ordered sequence of chunk fingerprints that make up a
// file. Duplicates are legal: a file may repeat a chunk.
type FileRecord struct {
	Chunks []string `json:"chunks"`
}

// ChunkRecord is a chunk's believed replica set: an ordered,
// duplicate-free list of storage-node identifiers.
type ChunkRecord struct {
	Replicas []string `json:"replicas"`
}

// MembershipEntry is one storage node's liveness state.
type MembershipEntry struct {
	Status          NodeStatus `json:"status"`
	LastHeartbeatTS float64    `json:"last_heartbeat_ts"`
	LastHeartbeatAt string     `json:"last_heartbeat_at"`
}

// Document is the entire persisted catalog: one JSON object with four
// top-level sections plus a schema version. Its meaning beyond the
// literal value 1 is undefined by design; callers must not branch on it.
type Document struct {
	Version    int                        `json:"version"`
	Files      map[string]FileRecord      `json:"files"`
	Chunks     map[string]ChunkRecord     `json:"chunks"`
	Membership map[string]MembershipEntry `json:"membership"`
}

// NewDocument returns an empty, schema-initialized document.
func NewDocument() *Document {
	return &Document{
		Version:    1,
		Files:      map[string]FileRecord{},
		Chunks:     map[string]ChunkRecord{},
		Membership: map[string]MembershipEntry{},
	}
}

// rawMembershipEntry is the structured wire shape, decoded by
// UnmarshalJSON below only after the raw bytes failed to decode as the
// legacy bare string ("alive"). Keeping the string-vs-object decision
// inside UnmarshalJSON localizes the tagged-variant coercion to parse
// time; every other part of the code only ever sees the structured
// MembershipEntry.
type rawMembershipEntry struct {
	Status          string  `json:"status"`
	LastHeartbeatTS float64 `json:"last_heartbeat_ts"`
	LastHeartbeatAt string  `json:"last_heartbeat_at"`
}

// UnmarshalJSON accepts both the legacy bare-string membership form and
// the structured form, normalizing to the latter. The legacy form is
// stamped with now since it carries no timestamp of its own; Store.load
// compares the re-encoded document against the raw bytes it read and
// only persists the normalized form if something actually changed.
func (m *MembershipEntry) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		m.Status = normalizeStatus(asString)
		now := nowFunc()
		m.LastHeartbeatTS = timestamp(now)
		m.LastHeartbeatAt = isoUTC(now)
		return nil
	}

	var raw rawMembershipEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Status = normalizeStatus(raw.Status)
	m.LastHeartbeatTS = raw.LastHeartbeatTS
	m.LastHeartbeatAt = raw.LastHeartbeatAt
	if m.LastHeartbeatAt == "" {
		m.LastHeartbeatAt = isoUTC(TimeFromSeconds(raw.LastHeartbeatTS))
	}
	return nil
}

func normalizeStatus(raw string) NodeStatus {
	switch NodeStatus(raw) {
	case StatusAlive, StatusSuspected, StatusDead:
		return NodeStatus(raw)
	default:
		return StatusDead
	}
}

// nowFunc is indirected only so tests can pin "now" when exercising the
// legacy-string decode path; production code always calls time.Now.
var nowFunc = time.Now

func timestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// TimeFromSeconds converts a Unix-epoch-seconds float (as stored in
// MembershipEntry.LastHeartbeatTS) back into a time.Time.
func TimeFromSeconds(sec float64) time.Time {
	return time.Unix(0, int64(sec*float64(time.Second)))
}

func isoUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999999Z")
}

// NewMembershipEntry builds a structured membership entry stamped at now.
func NewMembershipEntry(now time.Time, status NodeStatus) MembershipEntry {
	return MembershipEntry{
		Status:          status,
		LastHeartbeatTS: timestamp(now),
		LastHeartbeatAt: isoUTC(now),
	}
}
