// Package idhash derives deterministic identifiers from scan output.
package idhash

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"

	"solana-copurchase/internal/domain"
)

// ComputeSnapshotID returns base58(SHA256(JSON(candidates))).
// encoding/json sorts map keys, so equal candidate lists hash equally.
// A nil list hashes like an empty one.
func ComputeSnapshotID(candidates []domain.TokenCandidate) (string, error) {
	if candidates == nil {
		candidates = []domain.TokenCandidate{}
	}
	data, err := json.Marshal(candidates)
	if err != nil {
		return "", fmt.Errorf("encode candidates: %w", err)
	}
	hash := sha256.Sum256(data)
	return base58.Encode(hash[:]), nil
}
