package placement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChooseReplicasDistinctAndSized(t *testing.T) {
	e := NewEngine()
	chosen, err := e.ChooseReplicas([]string{"s1", "s2", "s3"}, 2)
	require.NoError(t, err)
	require.Len(t, chosen, 2)
	require.NotEqual(t, chosen[0], chosen[1])
}

func TestChooseReplicasZero(t *testing.T) {
	e := NewEngine()
	chosen, err := e.ChooseReplicas([]string{"s1"}, 0)
	require.NoError(t, err)
	require.Empty(t, chosen)
}

func TestChooseReplicasInsufficient(t *testing.T) {
	e := NewEngine()
	_, err := e.ChooseReplicas([]string{"s1"}, 2)
	require.ErrorIs(t, err, ErrInsufficient)
}

func TestRepairKeepsAliveMembers(t *testing.T) {
	e := NewEngine()
	out, err := e.Repair([]string{"dead1", "s1"}, []string{"s1", "s2"}, 2)
	require.NoError(t, err)
	require.Contains(t, out, "s1")
	require.Len(t, out, 2)
}

func TestRepairTruncatesWhenOverReplicated(t *testing.T) {
	e := NewEngine()
	out, err := e.Repair([]string{"s1", "s2", "s3"}, []string{"s1", "s2", "s3"}, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"s1", "s2"}, out)
}

func TestRepairInsufficientCandidates(t *testing.T) {
	e := NewEngine()
	_, err := e.Repair([]string{"dead"}, []string{"s1"}, 2)
	require.ErrorIs(t, err, ErrInsufficient)
}

func TestRepairIdempotent(t *testing.T) {
	e := NewEngine()
	alive := []string{"s1", "s2", "s3"}
	first, err := e.Repair([]string{}, alive, 2)
	require.NoError(t, err)

	second, err := e.Repair(first, alive, 2)
	require.NoError(t, err)
	require.ElementsMatch(t, first, second)

	third, err := e.Repair(second, alive, 2)
	require.NoError(t, err)
	require.Equal(t, second, third)
}

func TestRepairNeverDropsDuplicatesIncorrectly(t *testing.T) {
	e := NewEngine()
	out, err := e.Repair([]string{"s1", "s1", "s2"}, []string{"s1", "s2"}, 2)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"s1", "s2"}, out)
}
