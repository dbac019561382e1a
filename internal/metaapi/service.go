// Package metaapi implements the meta service's Catalog API and
// Heartbeat API (spec.md §4.4, §4.5, §6.1): the HTTP-facing layer that
// wires catalog.Store, membership.Tracker, and placement.Engine
// together. Every handler begins with load (via Store.WithWrite) ->
// sweep -> act, and writing handlers persist before
// returning success, per spec.md §4 and §5.
package metaapi

import (
	"errors"
	"time"

	"github.com/distrofs/meta/internal/catalog"
	"github.com/distrofs/meta/internal/membership"
	"github.com/distrofs/meta/internal/placement"
)

// Service holds the three component collaborators and the replication
// factor R, and exposes one method per Catalog/Heartbeat API operation.
// It has no HTTP awareness; Handler (in http.go) adapts it to the wire
// format.
type Service struct {
	Store     *catalog.Store
	Tracker   *membership.Tracker
	Placement *placement.Engine
	Replicas  int
	Now       func() time.Time
	LeaderID  string
}

// NewService builds a Service. now defaults to time.Now when nil.
func NewService(store *catalog.Store, tracker *membership.Tracker, engine *placement.Engine, replicas int, leaderID string, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{Store: store, Tracker: tracker, Placement: engine, Replicas: replicas, LeaderID: leaderID, Now: now}
}

// ChunkCheckResult is the chunk_check response.
type ChunkCheckResult struct {
	Exists    bool
	Locations []string
}

// ChunkCheck reports whether fingerprint is registered with at least R
// alive replicas. Nothing is persisted, matching spec.md's "no
// persistence; pure read" note. Sweep still runs so the alive set
// reflects current liveness; since it updates membership in memory it
// runs under the store's exclusive lock, and its changes are not
// written back by this call.
func (s *Service) ChunkCheck(fingerprint string) (ChunkCheckResult, error) {
	if fingerprint == "" {
		return ChunkCheckResult{}, validation("fingerprint must not be empty")
	}

	var result ChunkCheckResult
	_ = s.Store.WithWrite(func(doc *catalog.Document) error {
		now := s.Now()
		s.Tracker.Sweep(doc, now)
		alive := s.Tracker.Alive(doc)
		aliveSet := toSet(alive)

		chunk, ok := doc.Chunks[fingerprint]
		if !ok {
			result = ChunkCheckResult{Exists: false, Locations: []string{}}
			return errSkipPersist
		}

		locations := filterToSet(dedup(chunk.Replicas), aliveSet)
		result = ChunkCheckResult{
			Exists:    len(locations) >= s.Replicas,
			Locations: locations,
		}
		return errSkipPersist
	})
	return result, nil
}

// ChunkRegister registers fingerprint if unknown (assigning R fresh
// replicas), or repairs its existing replica set if known, persisting
// only when the set changes.
func (s *Service) ChunkRegister(fingerprint string) ([]string, error) {
	if fingerprint == "" {
		return nil, validation("fingerprint must not be empty")
	}

	var assigned []string
	var svcErr error

	err := s.Store.WithWrite(func(doc *catalog.Document) error {
		now := s.Now()
		s.Tracker.Sweep(doc, now)
		alive := s.Tracker.Alive(doc)

		existing, known := doc.Chunks[fingerprint]
		if !known {
			chosen, err := s.Placement.ChooseReplicas(alive, s.Replicas)
			if err != nil {
				svcErr = translatePlacementErr(err)
				return errSkipPersist
			}
			doc.Chunks[fingerprint] = catalog.ChunkRecord{Replicas: chosen}
			assigned = chosen
			return nil
		}

		repaired, err := s.Placement.Repair(existing.Replicas, alive, s.Replicas)
		if err != nil {
			svcErr = translatePlacementErr(err)
			return errSkipPersist
		}
		assigned = repaired
		if equalStrings(existing.Replicas, repaired) {
			return errSkipPersist
		}
		doc.Chunks[fingerprint] = catalog.ChunkRecord{Replicas: repaired}
		return nil
	})

	if errors.Is(err, errSkipPersist) {
		if svcErr != nil {
			return nil, svcErr
		}
		return assigned, nil
	}
	if err != nil {
		return nil, err
	}
	return assigned, nil
}

// FileCommitRequest is the file_commit request body.
type FileCommitRequest struct {
	FileName string
	Chunks   []string
}

// FileCommit validates that every referenced chunk is registered,
// repairs each distinct chunk's replica set against the current alive
// set, records the file, and persists.
func (s *Service) FileCommit(req FileCommitRequest) error {
	if req.FileName == "" {
		return validation("file_name must not be empty")
	}

	var svcErr error
	err := s.Store.WithWrite(func(doc *catalog.Document) error {
		now := s.Now()
		s.Tracker.Sweep(doc, now)

		var missing []string
		for _, fp := range req.Chunks {
			if _, ok := doc.Chunks[fp]; !ok {
				missing = append(missing, fp)
			}
		}
		if len(missing) > 0 {
			svcErr = badRequest("chunks not registered: " + joinStrings(missing, ", "))
			return errSkipPersist
		}

		alive := s.Tracker.Alive(doc)
		if len(alive) < s.Replicas {
			svcErr = insufficient("not enough replicas (storage nodes) available")
			return errSkipPersist
		}

		for _, fp := range distinct(req.Chunks) {
			existing := doc.Chunks[fp]
			repaired, err := s.Placement.Repair(existing.Replicas, alive, s.Replicas)
			if err != nil {
				svcErr = translatePlacementErr(err)
				return errSkipPersist
			}
			doc.Chunks[fp] = catalog.ChunkRecord{Replicas: repaired}
		}

		doc.Files[req.FileName] = catalog.FileRecord{Chunks: append([]string(nil), req.Chunks...)}
		return nil
	})

	if errors.Is(err, errSkipPersist) {
		return svcErr
	}
	return err
}

// FileGetItem is one chunk of a file_get response.
type FileGetItem struct {
	Fingerprint string
	Locations   []string
}

// FileGet returns the stored chunk order for name, with each chunk's
// replica set filtered to currently alive nodes.
func (s *Service) FileGet(name string) ([]FileGetItem, error) {
	var items []FileGetItem
	var svcErr error

	_ = s.Store.WithWrite(func(doc *catalog.Document) error {
		now := s.Now()
		s.Tracker.Sweep(doc, now)
		aliveSet := toSet(s.Tracker.Alive(doc))

		file, ok := doc.Files[name]
		if !ok {
			svcErr = notFound("file not found")
			return errSkipPersist
		}

		items = make([]FileGetItem, 0, len(file.Chunks))
		for _, fp := range file.Chunks {
			chunk := doc.Chunks[fp]
			items = append(items, FileGetItem{
				Fingerprint: fp,
				Locations:   filterToSet(dedup(chunk.Replicas), aliveSet),
			})
		}
		return errSkipPersist
	})

	if svcErr != nil {
		return nil, svcErr
	}
	return items, nil
}

// DebugLeader sweeps membership, persisting only if the sweep changed
// anything, and returns the fixed leader identifier.
func (s *Service) DebugLeader() string {
	_ = s.Store.WithWrite(func(doc *catalog.Document) error {
		if !s.Tracker.Sweep(doc, s.Now()) {
			return errSkipPersist
		}
		return nil
	})
	return s.LeaderID
}

// DebugMembership returns a membership snapshot and status summary,
// persisting only if the sweep changed anything.
func (s *Service) DebugMembership() (map[string]catalog.MembershipEntry, membership.Summary) {
	var snapshot map[string]catalog.MembershipEntry
	_ = s.Store.WithWrite(func(doc *catalog.Document) error {
		now := s.Now()
		changed := s.Tracker.Sweep(doc, now)
		snapshot = s.Tracker.Snapshot(doc, now)
		if !changed {
			return errSkipPersist
		}
		return nil
	})
	return snapshot, membership.Summarize(snapshot)
}

// StorageHeartbeat records a liveness pulse from nodeID. The tracker's
// Heartbeat does not sweep (it only materializes missing entries via
// EnsureSchema), so the explicit Sweep call here runs first and demotes
// every timed-out node, so a long-absent node's prior dead transition
// is observed in the same request, per spec.md §4.5's ordering note.
func (s *Service) StorageHeartbeat(nodeID string) (observedAt string, err error) {
	if nodeID == "" || !s.Tracker.Known(nodeID) {
		return "", badRequest("unknown or empty storage node")
	}

	var at string
	writeErr := s.Store.WithWrite(func(doc *catalog.Document) error {
		now := s.Now()
		s.Tracker.Sweep(doc, now)
		changed := s.Tracker.Heartbeat(doc, nodeID, now)
		at = doc.Membership[nodeID].LastHeartbeatAt
		if !changed {
			return errSkipPersist
		}
		return nil
	})

	if errors.Is(writeErr, errSkipPersist) {
		return at, nil
	}
	if writeErr != nil {
		return "", writeErr
	}
	return at, nil
}

// CatalogCounts returns the current file/chunk counts, for metrics.
func (s *Service) CatalogCounts() (files, chunks int) {
	s.Store.WithRead(func(doc *catalog.Document) {
		files = len(doc.Files)
		chunks = len(doc.Chunks)
	})
	return
}

func translatePlacementErr(err error) error {
	if errors.Is(err, placement.ErrInsufficient) {
		return insufficient("not enough replicas available")
	}
	return err
}

// errSkipPersist is a sentinel WithWrite mutators return to signal
// "nothing to persist, but this isn't a failure" — WithWrite treats any
// non-nil return as an abort-before-persist, so genuine validation
// errors and this no-op sentinel both skip the write; callers
// distinguish the two via svcErr.
var errSkipPersist = errors.New("metaapi: no-op, skip persist")
