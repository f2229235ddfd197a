package rhscache

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
)

// snapshotVersion is written ahead of every encoded snapshot.
const snapshotVersion = 1

// SaveToFile atomically saves s to the given filePath.
//
// The data is serialized using [gob] and compressed with [snappy]. Workers of
// a distributed run each save their own snapshot; the saved files may be
// loaded with [LoadSnapshotFromFile] and combined with [MergeSnapshots].
func (s Snapshot) SaveToFile(filePath string) error {
	dir := filepath.Dir(filePath)
	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("cannot stat %q: %w", dir, err)
		}

		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create dir %q: %w", dir, err)
		}
	}

	// Save snapshot data into a temporary file.
	tmpFile, err := os.CreateTemp(dir, "rhscache.tmp.*")
	if err != nil {
		return fmt.Errorf("cannot create temporary file in %q: %w", dir, err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if err := s.SaveTo(tmpFile); err != nil {
		_ = tmpFile.Close()

		return fmt.Errorf("cannot save snapshot to %q: %w", tmpPath, err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("cannot close temporary file %q: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		return fmt.Errorf("cannot rename %q to %q: %w", tmpPath, filePath, err)
	}

	return nil
}

// SaveTo saves s to the given writer.
//
// The saved data may be loaded with [LoadSnapshotFrom].
func (s Snapshot) SaveTo(w io.Writer) error {
	zw := snappy.NewBufferedWriter(w)
	enc := gob.NewEncoder(zw)

	if err := enc.Encode(snapshotVersion); err != nil {
		return fmt.Errorf("cannot encode version: %w", err)
	}
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("cannot encode snapshot: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("cannot close snappy writer: %w", err)
	}

	return nil
}

// LoadSnapshotFromFile loads a snapshot from the given filePath.
//
// Returns an error if the file does not exist or is corrupted.
func LoadSnapshotFromFile(filePath string) (Snapshot, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return Snapshot{}, err
	}
	defer func() {
		_ = f.Close()
	}()

	return LoadSnapshotFrom(f)
}

// LoadSnapshotFrom loads a snapshot from the given reader.
func LoadSnapshotFrom(r io.Reader) (Snapshot, error) {
	dec := gob.NewDecoder(snappy.NewReader(r))

	var version int
	if err := dec.Decode(&version); err != nil {
		return Snapshot{}, fmt.Errorf("cannot decode version: %w", err)
	}
	if version != snapshotVersion {
		return Snapshot{}, fmt.Errorf("unsupported snapshot version %d", version)
	}

	var s Snapshot
	if err := dec.Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("cannot decode snapshot: %w", err)
	}
	s.sort()

	return s, nil
}
