// Package kv provides a string-keyed persisted store for client state.
//
// Values are JSON documents written one file per key with a CRC64-NVME
// checksum. Reads are best-effort: a missing, unreadable, or corrupt value
// behaves exactly like an absent one, so callers never have to distinguish
// "no cache" from "bad cache".
package kv

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
)

// Well-known keys used by the client core.
const (
	KeyTokens       = "tokens"
	KeyOAuthPending = "oauth_pending"
	KeyAuthz        = "authz"
	KeySettings     = "settings"
)

// envelope wraps a persisted value with its integrity checksum.
type envelope struct {
	Checksum uint64          `json:"checksum"`
	Payload  json.RawMessage `json:"payload"`
}

// Store manages persisted client state on the local filesystem.
type Store struct {
	baseDir string
}

// Open creates a store rooted at baseDir.
// If baseDir is empty, uses ~/.vision/state/
func Open(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".vision", "state")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("kv store opened")

	return &Store{baseDir: baseDir}, nil
}

// Get reads the value stored under key into out.
// Returns false if the key is absent or the stored value is corrupt.
func (s *Store) Get(key string, out any) bool {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Debug().Str("key", key).Msg("discarding unparseable value")
		return false
	}

	if checksum(env.Payload) != env.Checksum {
		log.Warn().Str("key", key).Msg("discarding value with checksum mismatch")
		return false
	}

	if err := json.Unmarshal(env.Payload, out); err != nil {
		log.Debug().Str("key", key).Msg("discarding value with unexpected shape")
		return false
	}

	return true
}

// Put persists v under key, replacing any previous value.
func (s *Store) Put(key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %q: %w", key, err)
	}

	data, err := json.Marshal(envelope{Checksum: checksum(payload), Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope for %q: %w", key, err)
	}

	// Write to temp file first, then rename for atomicity.
	path := s.path(key)
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save %q: %w", key, err)
	}

	return nil
}

// Delete removes the value stored under key. Deleting an absent key is not
// an error.
func (s *Store) Delete(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// InstallID returns a stable identifier for this installation, generating
// one on first use. The identifier is a Base58-encoded SHA256 of a random
// seed and carries no user information.
func (s *Store) InstallID() (string, error) {
	path := filepath.Join(s.baseDir, "install_id")

	if data, err := os.ReadFile(path); err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			return id, nil
		}
	}

	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return "", fmt.Errorf("failed to generate install id: %w", err)
	}

	hash := sha256.Sum256(seed)
	id := base58.Encode(hash[:])

	if err := os.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("failed to write install id: %w", err)
	}

	log.Debug().Str("installID", id).Msg("generated install id")

	return id, nil
}

func (s *Store) path(key string) string {
	// Keys are fixed strings chosen by the client; dots are allowed for
	// namespacing (e.g. "cache.projects") but path separators are not.
	name := strings.ReplaceAll(key, string(os.PathSeparator), "_")
	return filepath.Join(s.baseDir, name+".json")
}

func checksum(data []byte) uint64 {
	h := crc64nvme.New()
	h.Write(data)
	return h.Sum64()
}
