package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitFileReassemblesByConcatenation(t *testing.T) {
	data := bytes.Repeat([]byte("ab"), 2000)

	chunks := splitFile(data)
	require.NotEmpty(t, chunks)

	var reassembled []byte
	for _, c := range chunks {
		sum := sha256.Sum256(c.data)
		require.Equal(t, hex.EncodeToString(sum[:]), c.fingerprint)
		reassembled = append(reassembled, c.data...)
	}
	require.Equal(t, data, reassembled)
}

func TestSplitFileEmptyInputYieldsSingleChunk(t *testing.T) {
	chunks := splitFile(nil)
	require.Len(t, chunks, 1)
	require.Empty(t, chunks[0].data)
}

func TestDetermineChunkSizeTiers(t *testing.T) {
	require.Equal(t, int64(256*1024), determineChunkSize(1024))
	require.Equal(t, int64(512*1024), determineChunkSize(5*1024*1024))
	require.Equal(t, int64(8*1024*1024), determineChunkSize(2*1024*1024*1024))
}
