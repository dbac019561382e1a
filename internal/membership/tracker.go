// Package membership implements the meta service's node liveness state
// machine: heartbeat ingestion and the timeout sweep that demotes
// silent nodes to dead. It never runs a background goroutine of its
// own — spec.md's design is request-driven: Sweep is called once at
// the top of every handler that reads the catalog, the way the
// teacher's peer package polled on a ticker, but synchronously instead
// of off a timer.
package membership

import (
	"time"

	"github.com/distrofs/meta/internal/catalog"
)

// Tracker applies the membership state machine to a catalog.Document.
// It holds no state of its own beyond its configuration: the document
// is the single source of truth, consistent with spec.md's "no
// process-wide singletons" design note.
type Tracker struct {
	// Configured is the immutable set of known storage node identifiers
	// (N_cfg). Membership entries outside this set are ignored for
	// liveness purposes but preserved on disk.
	Configured []string
	// Timeout is T_timeout: how long a node may go without a heartbeat
	// before it is swept to dead.
	Timeout time.Duration
}

// NewTracker builds a Tracker over a fixed configured node set.
func NewTracker(configured []string, timeout time.Duration) *Tracker {
	return &Tracker{Configured: configured, Timeout: timeout}
}

// EnsureSchema materializes a membership entry for every configured node
// that doesn't have one yet, defaulting to alive as of now. It returns
// true if it changed the document. This is the lazy-materialization
// half of spec.md's "every n in N_cfg has a membership entry at rest"
// invariant; the legacy-string coercion half happens in
// catalog.MembershipEntry's JSON decode.
func (t *Tracker) EnsureSchema(doc *catalog.Document, now time.Time) bool {
	changed := false
	if doc.Membership == nil {
		doc.Membership = map[string]catalog.MembershipEntry{}
		changed = true
	}
	for _, node := range t.Configured {
		if _, ok := doc.Membership[node]; !ok {
			doc.Membership[node] = catalog.NewMembershipEntry(now, catalog.StatusAlive)
			changed = true
		}
	}
	return changed
}

// Sweep demotes any configured node whose last heartbeat is older than
// Timeout to dead. alive and suspected nodes are both subject to the
// timeout; dead stays dead (idempotent). It returns true if it changed
// the document.
func (t *Tracker) Sweep(doc *catalog.Document, now time.Time) bool {
	changed := t.EnsureSchema(doc, now)

	for _, node := range t.Configured {
		entry := doc.Membership[node]
		elapsed := now.Sub(catalog.TimeFromSeconds(entry.LastHeartbeatTS))

		if (entry.Status == catalog.StatusAlive || entry.Status == catalog.StatusSuspected) && elapsed > t.Timeout {
			entry.Status = catalog.StatusDead
			doc.Membership[node] = entry
			changed = true
		}
	}

	return changed
}

// Heartbeat records a liveness pulse for node, marking it alive with a
// fresh timestamp regardless of its prior status. The caller is
// expected to have already run Sweep so that a long-absent node's
// prior dead status is observed before this transition, making the
// alive/dead flap explainable in logs. It returns true if anything
// changed.
func (t *Tracker) Heartbeat(doc *catalog.Document, node string, now time.Time) bool {
	changed := t.EnsureSchema(doc, now)

	next := catalog.NewMembershipEntry(now, catalog.StatusAlive)
	prev, ok := doc.Membership[node]
	if !ok || prev != next {
		changed = true
	}
	doc.Membership[node] = next
	return changed
}

// Known reports whether node is part of the configured node set.
func (t *Tracker) Known(node string) bool {
	for _, n := range t.Configured {
		if n == node {
			return true
		}
	}
	return false
}

// Alive returns the configured nodes currently marked alive, in
// configuration order. Callers must Sweep before calling Alive if they
// need an up-to-date view; Alive itself does no sweeping so that pure
// reads (chunk_check, file_get) stay side-effect free where the caller
// has already converged liveness once per request.
func (t *Tracker) Alive(doc *catalog.Document) []string {
	alive := make([]string, 0, len(t.Configured))
	for _, node := range t.Configured {
		if entry, ok := doc.Membership[node]; ok && entry.Status == catalog.StatusAlive {
			alive = append(alive, node)
		}
	}
	return alive
}

// Snapshot returns every configured node's current membership entry,
// materializing schema defaults first (but not sweeping), for debug
// introspection.
func (t *Tracker) Snapshot(doc *catalog.Document, now time.Time) map[string]catalog.MembershipEntry {
	t.EnsureSchema(doc, now)
	out := make(map[string]catalog.MembershipEntry, len(doc.Membership))
	for node, entry := range doc.Membership {
		out[node] = entry
	}
	return out
}

// Summary counts configured+preserved membership entries by status.
type Summary struct {
	Alive     int `json:"alive"`
	Suspected int `json:"suspected"`
	Dead      int `json:"dead"`
	Total     int `json:"total"`
}

// Summarize tallies a membership snapshot by status.
func Summarize(snapshot map[string]catalog.MembershipEntry) Summary {
	var s Summary
	for _, entry := range snapshot {
		s.Total++
		switch entry.Status {
		case catalog.StatusAlive:
			s.Alive++
		case catalog.StatusSuspected:
			s.Suspected++
		default:
			s.Dead++
		}
	}
	return s
}
