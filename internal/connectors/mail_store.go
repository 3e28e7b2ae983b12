package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
)

// MailStore archives raw messages by content hash so fetched mail can be
// replayed as parser fixtures.
type MailStore struct {
	rawMailDir string
}

func NewMailStore(rawMailDir string) *MailStore {
	return &MailStore{rawMailDir: rawMailDir}
}

// Store writes raw once and returns its path.
func (s *MailStore) Store(raw []byte) (string, error) {
	hashBytes := sha256.Sum256(raw)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return "", err
	}

	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, raw, 0o644); err != nil {
			return "", err
		}
	}
	return rawPath, nil
}
