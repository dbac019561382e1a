package main

import (
	"crypto/sha256"
	"encoding/hex"
)

// chunk is one fixed-size slice of a file plus its SHA-256
// fingerprint, computed up front so check/register/upload can all key
// off the same digest.
type chunk struct {
	fingerprint string
	data        []byte
}

// splitFile divides data into chunks sized by determineChunkSize,
// adapted from the teacher's chunker.determineChunkSize tiering (no
// compression or encryption: both remain non-goals of this module).
func splitFile(data []byte) []chunk {
	size := determineChunkSize(int64(len(data)))
	if size <= 0 {
		size = int64(len(data))
	}

	var chunks []chunk
	for offset := int64(0); offset < int64(len(data)); offset += size {
		end := offset + size
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		slice := data[offset:end]
		sum := sha256.Sum256(slice)
		chunks = append(chunks, chunk{
			fingerprint: hex.EncodeToString(sum[:]),
			data:        slice,
		})
	}
	if len(chunks) == 0 {
		sum := sha256.Sum256(nil)
		chunks = append(chunks, chunk{fingerprint: hex.EncodeToString(sum[:]), data: nil})
	}
	return chunks
}

func determineChunkSize(fileSize int64) int64 {
	switch {
	case fileSize <= 1*1024*1024:
		return 256 * 1024
	case fileSize <= 10*1024*1024:
		return 512 * 1024
	case fileSize <= 100*1024*1024:
		return 1 * 1024 * 1024
	case fileSize <= 1024*1024*1024:
		return 4 * 1024 * 1024
	default:
		return 8 * 1024 * 1024
	}
}
