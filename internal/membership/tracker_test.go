package membership

import (
	"testing"
	"time"

	"github.com/distrofs/meta/internal/catalog"
	"github.com/stretchr/testify/require"
)

func TestEnsureSchemaMaterializesConfiguredNodes(t *testing.T) {
	doc := catalog.NewDocument()
	tr := NewTracker([]string{"s1", "s2"}, 9*time.Second)
	now := time.Now()

	changed := tr.EnsureSchema(doc, now)
	require.True(t, changed)
	require.Len(t, doc.Membership, 2)
	require.Equal(t, catalog.StatusAlive, doc.Membership["s1"].Status)

	// idempotent: second call changes nothing
	require.False(t, tr.EnsureSchema(doc, now))
}

func TestSweepDemotesTimedOutNodes(t *testing.T) {
	doc := catalog.NewDocument()
	tr := NewTracker([]string{"s1"}, 9*time.Second)

	past := time.Now().Add(-20 * time.Second)
	tr.EnsureSchema(doc, past)

	changed := tr.Sweep(doc, past.Add(20*time.Second))
	require.True(t, changed)
	require.Equal(t, catalog.StatusDead, doc.Membership["s1"].Status)

	// idempotent once dead
	require.False(t, tr.Sweep(doc, past.Add(21*time.Second)))
}

func TestHeartbeatMonotonicity(t *testing.T) {
	doc := catalog.NewDocument()
	tr := NewTracker([]string{"s1"}, 9*time.Second)

	t0 := time.Now()
	tr.Heartbeat(doc, "s1", t0)

	// A sweep any time before timeout elapses must leave s1 alive.
	before := t0.Add(8 * time.Second)
	tr.Sweep(doc, before)
	require.Equal(t, catalog.StatusAlive, doc.Membership["s1"].Status)
}

func TestHeartbeatRevivesDeadNode(t *testing.T) {
	doc := catalog.NewDocument()
	tr := NewTracker([]string{"s1"}, 9*time.Second)

	past := time.Now().Add(-30 * time.Second)
	tr.EnsureSchema(doc, past)
	tr.Sweep(doc, past.Add(30*time.Second))
	require.Equal(t, catalog.StatusDead, doc.Membership["s1"].Status)

	now := past.Add(30 * time.Second)
	changed := tr.Heartbeat(doc, "s1", now)
	require.True(t, changed)
	require.Equal(t, catalog.StatusAlive, doc.Membership["s1"].Status)
}

func TestAliveFiltersToConfiguredAndAliveOnly(t *testing.T) {
	doc := catalog.NewDocument()
	tr := NewTracker([]string{"s1", "s2"}, 9*time.Second)
	now := time.Now()
	tr.EnsureSchema(doc, now)

	entry := doc.Membership["s2"]
	entry.Status = catalog.StatusDead
	doc.Membership["s2"] = entry
	doc.Membership["unconfigured"] = catalog.NewMembershipEntry(now, catalog.StatusAlive)

	alive := tr.Alive(doc)
	require.Equal(t, []string{"s1"}, alive)
}

func TestSummarize(t *testing.T) {
	snap := map[string]catalog.MembershipEntry{
		"s1": {Status: catalog.StatusAlive},
		"s2": {Status: catalog.StatusDead},
		"s3": {Status: catalog.StatusSuspected},
	}
	sum := Summarize(snap)
	require.Equal(t, Summary{Alive: 1, Suspected: 1, Dead: 1, Total: 3}, sum)
}
