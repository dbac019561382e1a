// Package placement implements replica selection and repair: which
// alive storage nodes a chunk's bytes should live on. It never touches
// the catalog or performs I/O — repair only updates the meta's belief
// about where replicas should live; moving the actual bytes is the
// client's responsibility (spec.md §4.3, §9).
package placement

import (
	"errors"
	"math/rand/v2"
)

// ErrInsufficient is returned when fewer alive nodes exist than the
// requested replica count.
var ErrInsufficient = errors.New("placement: not enough alive nodes")

// Engine selects and repairs replica sets. It is stateless and safe for
// concurrent use; callers supply the alive set computed by the
// membership tracker for the current request.
type Engine struct{}

// NewEngine returns a ready Engine.
func NewEngine() *Engine { return &Engine{} }

// ChooseReplicas picks k distinct nodes from alive uniformly at random.
// k<=0 returns an empty (non-nil) slice. Randomness, not round-robin,
// is required so concurrent registrations spread load and a partition
// doesn't systematically starve a subset of nodes.
func (e *Engine) ChooseReplicas(alive []string, k int) ([]string, error) {
	if k <= 0 {
		return []string{}, nil
	}
	if len(alive) < k {
		return nil, ErrInsufficient
	}

	pool := append([]string(nil), alive...)
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	chosen := make([]string, k)
	copy(chosen, pool[:k])
	return chosen, nil
}

// Repair produces a replica set of size min(k, |alive|) that keeps as
// many currently-alive members of current as possible, in their
// original relative order, then fills any remaining slots with
// uniformly random new nodes from alive. It fails with ErrInsufficient
// if there aren't enough live candidates (kept + new) to reach k.
func (e *Engine) Repair(current []string, alive []string, k int) ([]string, error) {
	if k <= 0 {
		return []string{}, nil
	}

	aliveSet := make(map[string]struct{}, len(alive))
	for _, n := range alive {
		aliveSet[n] = struct{}{}
	}

	kept := dedupOrderPreserving(current, aliveSet)
	if len(kept) >= k {
		return kept[:k], nil
	}

	needed := k - len(kept)
	keptSet := make(map[string]struct{}, len(kept))
	for _, n := range kept {
		keptSet[n] = struct{}{}
	}

	candidates := make([]string, 0, len(alive))
	for _, n := range alive {
		if _, already := keptSet[n]; !already {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) < needed {
		return nil, ErrInsufficient
	}

	rand.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	out := make([]string, 0, k)
	out = append(out, kept...)
	out = append(out, candidates[:needed]...)
	return out, nil
}

// dedupOrderPreserving returns the distinct members of nodes that are
// also present in keep, preserving nodes' original relative order.
func dedupOrderPreserving(nodes []string, keep map[string]struct{}) []string {
	seen := make(map[string]struct{}, len(nodes))
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := keep[n]; !ok {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
