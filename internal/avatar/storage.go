package avatar

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirStore persists generated avatar images as PNG files in a directory.
// Writing happens once per new identity, at onboarding; the avatar route
// reads the stored file back on every request.
type DirStore struct {
	dir string
}

// NewDirStore creates the directory if needed and returns the store.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("avatar: creating directory %s: %w", dir, err)
	}
	return &DirStore{dir: dir}, nil
}

// Save writes the image bytes under the user's ID and returns the reference
// recorded in the identity store.
func (s *DirStore) Save(userID string, data []byte) (string, error) {
	ref := filepath.Join(s.dir, userID+".png")
	if err := os.WriteFile(ref, data, 0o644); err != nil {
		return "", fmt.Errorf("avatar: writing %s: %w", ref, err)
	}
	return ref, nil
}

// Read returns the stored image bytes for a previously saved reference.
func (s *DirStore) Read(ref string) ([]byte, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("avatar: reading %s: %w", ref, err)
	}
	return data, nil
}
