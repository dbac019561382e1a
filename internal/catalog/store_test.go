package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenInitializesMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")

	store, err := Open(path)
	require.NoError(t, err)

	require.FileExists(t, path)
	store.WithRead(func(doc *Document) {
		require.Equal(t, 1, doc.Version)
		require.Empty(t, doc.Files)
		require.Empty(t, doc.Chunks)
		require.Empty(t, doc.Membership)
	})
}

func TestWithWritePersistsAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")

	store, err := Open(path)
	require.NoError(t, err)

	err = store.WithWrite(func(doc *Document) error {
		doc.Files["f1"] = FileRecord{Chunks: []string{"fp1"}}
		doc.Chunks["fp1"] = ChunkRecord{Replicas: []string{"s1"}}
		return nil
	})
	require.NoError(t, err)

	_, statErr := os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(statErr), "temp file must not survive a successful persist")

	reopened, err := Open(path)
	require.NoError(t, err)
	reopened.WithRead(func(doc *Document) {
		require.Equal(t, []string{"fp1"}, doc.Files["f1"].Chunks)
		require.Equal(t, []string{"s1"}, doc.Chunks["fp1"].Replicas)
	})
}

func TestWithWriteLeavesStateUnchangedOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")

	store, err := Open(path)
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = store.WithWrite(func(doc *Document) error {
		doc.Files["should-not-persist"] = FileRecord{Chunks: []string{"x"}}
		return errCanary
	})
	require.ErrorIs(t, err, errCanary)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestOpenRejectsCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path)
	require.ErrorIs(t, err, ErrCorruption)
}

func TestLegacyStringMembershipIsNormalizedAndPersisted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")
	legacy := `{"version":1,"files":{},"chunks":{},"membership":{"s1":"alive"}}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	store, err := Open(path)
	require.NoError(t, err)

	store.WithRead(func(doc *Document) {
		entry := doc.Membership["s1"]
		require.Equal(t, StatusAlive, entry.Status)
		require.NotZero(t, entry.LastHeartbeatTS)
		require.NotEmpty(t, entry.LastHeartbeatAt)
	})

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(onDisk), `"s1":"alive"`)
}

var errCanary = canaryErr("canary")

type canaryErr string

func (e canaryErr) Error() string { return string(e) }
