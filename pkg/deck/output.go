package deck

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/benjaminschreck/go-deck/pkg/deck/opc"
)

// WriteFile finalizes the document and writes it to dest. Nothing is written
// to dest unless the whole document was built, saved and read back.
func (c *Composer) WriteFile(dest string) error {
	doc, err := c.Document()
	if err != nil {
		return err
	}
	data, err := doc.Save()
	if err != nil {
		return err
	}
	if err := WriteArchive(dest, data); err != nil {
		return err
	}
	c.logger.WithFields(Fields{"output": dest, "slides": c.pages, "bytes": len(data)}).Info("wrote composed document")
	return nil
}

// WriteArchive writes container bytes to dest through a temporary file in the
// same directory. It holds an exclusive lock on dest+".lock" while writing,
// checks that the temporary file loads as a package, and only then renames it
// into place.
func WriteArchive(dest string, data []byte) (err error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %q: %w", dir, err)
	}

	lockPath := dest + ".lock"
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("output %s is being written by another process", dest)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lockPath)
	}()

	tmp := filepath.Join(dir, "."+filepath.Base(dest)+"."+uuid.NewString()+".tmp")
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if _, err = opc.LoadFile(tmp); err != nil {
		return fmt.Errorf("%w: written archive does not load back: %v", ErrCompositionInvariantViolation, err)
	}
	if err = os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
