package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lueurxax/impact-brief/internal/core/domain"
)

const (
	archiveSubdir = "archive"
	todayFile     = "today.json"
	dirPerm       = 0o755
	filePerm      = 0o644
)

// Archive writes payload snapshots to a directory: the latest one as
// today.json and one file per date under archive/.
type Archive struct {
	dir string
}

func NewArchive(dir string) *Archive {
	return &Archive{dir: dir}
}

// Save writes payload to today.json and archive/<date>.json. Both files are
// written through a temporary file and renamed into place.
func (a *Archive) Save(payload domain.Payload) error {
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archive payload: %w", err)
	}

	archiveDir := filepath.Join(a.dir, archiveSubdir)
	if err := os.MkdirAll(archiveDir, dirPerm); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	if err := writeAtomic(filepath.Join(a.dir, todayFile), body); err != nil {
		return err
	}

	return writeAtomic(filepath.Join(archiveDir, payload.Date+".json"), body)
}

func writeAtomic(path string, body []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".brief-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("close %s: %w", path, err)
	}

	if err := os.Chmod(tmpName, filePerm); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("chmod %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("rename %s: %w", path, err)
	}

	return nil
}
