package ticket

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps rendered tickets on local disk so they can be served
// again without re-rendering.
type FileStore struct {
	dir string
}

// NewFileStore returns a store writing below dir.
func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

// Save writes doc.PDF atomically and returns the file path.  Saving the
// same booking again replaces the previous file.
func (s *FileStore) Save(doc Document) (string, error) {
	if len(doc.PDF) == 0 {
		return "", fmt.Errorf("ticket %s has no PDF", doc.Code)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", s.dir, err)
	}
	path := filepath.Join(s.dir, doc.FileName)
	tmp, err := os.CreateTemp(s.dir, ".ticket-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(doc.PDF); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}
