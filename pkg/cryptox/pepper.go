package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	pepperMu sync.RWMutex
	pepper   string
)

// GetPepper returns the loaded pepper, or "" when LoadPepper was never called.
func GetPepper() string {
	pepperMu.RLock()
	defer pepperMu.RUnlock()
	return pepper
}

// LoadPepper reads the pepper at path, generating and writing a new one when
// the file does not exist yet. Hashes created under one pepper only verify
// under the same pepper, so every process sharing a database must point at
// the same file.
func LoadPepper(path string) error {
	if path == "" {
		return errors.New("cryptox: pepper path is empty")
	}

	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	raw, err := os.ReadFile(path) // #nosec G304 - operator supplied path
	switch {
	case err == nil:
		setPepper(strings.TrimSpace(string(raw)))
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return err
	}

	buf := make([]byte, keyLength)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	generated := base64.RawURLEncoding.EncodeToString(buf)
	if err := os.WriteFile(path, []byte(generated), 0o600); err != nil {
		return err
	}

	setPepper(generated)
	return nil
}

func setPepper(p string) {
	pepperMu.Lock()
	pepper = p
	pepperMu.Unlock()
}
