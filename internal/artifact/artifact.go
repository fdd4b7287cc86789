// Package artifact persists and loads the champion bundle: the fitted
// transform pipeline, the selected estimator, and its metadata.
//
// The on-disk format is a small header (magic, version, payload checksum)
// followed by a gob-encoded Champion. Writes go to a temporary file that is
// renamed over the target, so a crash mid-write never leaves a corrupt
// champion behind. Loads verify the checksum before decoding and fail with
// an artifact error on any mismatch.
package artifact

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/paveg/incomeclf/internal/errors"
	"github.com/paveg/incomeclf/internal/model"
	"github.com/paveg/incomeclf/internal/transform"
)

// magic identifies champion artifact files.
var magic = [4]byte{'i', 'c', 'l', 'f'}

// formatVersion is bumped on incompatible layout changes.
const formatVersion uint32 = 1

// Champion is the persisted selection outcome. It is replaced wholesale on
// retraining, never patched.
type Champion struct {
	SchemaVersion string
	FeatureOrder  []string
	Pipeline      *transform.Pipeline
	Estimator     model.Classifier
	FamilyName    string
	Accuracy      float64
	Importance    []float64
	CreatedAt     time.Time
}

func init() {
	model.RegisterGob()
}

// Encode serializes the champion to bytes (header + checksummed payload).
func Encode(c *Champion) ([]byte, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(c); err != nil {
		return nil, errors.NewArtifactError("Encode", "encoding champion", err)
	}

	var out bytes.Buffer
	out.Write(magic[:])
	header := make([]byte, 12)
	binary.LittleEndian.PutUint32(header[0:4], formatVersion)
	binary.LittleEndian.PutUint64(header[4:12], xxhash.Sum64(payload.Bytes()))
	out.Write(header)
	out.Write(payload.Bytes())
	return out.Bytes(), nil
}

// Decode parses bytes produced by Encode, verifying magic, version and
// checksum before touching the gob payload.
func Decode(data []byte) (*Champion, error) {
	if len(data) < 16 {
		return nil, errors.NewArtifactError("Decode", "artifact truncated", nil)
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return nil, errors.NewArtifactError("Decode", "not a champion artifact", nil)
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != formatVersion {
		return nil, errors.NewArtifactError("Decode",
			fmt.Sprintf("unsupported artifact format version %d", version), nil)
	}
	sum := binary.LittleEndian.Uint64(data[8:16])
	payload := data[16:]
	if xxhash.Sum64(payload) != sum {
		return nil, errors.NewArtifactError("Decode", "checksum mismatch, artifact is corrupt", nil)
	}

	var c Champion
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&c); err != nil {
		return nil, errors.NewArtifactError("Decode", "decoding champion", err)
	}
	return &c, nil
}

// Save writes the champion to path atomically (write to temp, then rename).
func Save(c *Champion, path string) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewArtifactError("Save", "creating artifact directory", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.NewArtifactError("Save", "creating temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.NewArtifactError("Save", "writing artifact", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.NewArtifactError("Save", "syncing artifact", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.NewArtifactError("Save", "closing artifact", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.NewArtifactError("Save", "renaming artifact into place", err)
	}
	return nil
}

// Load reads and verifies a champion from path. The artifact carries
// everything inference needs; no training state is required.
func Load(path string) (*Champion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewArtifactError("Load", "reading artifact", err)
	}
	return Decode(data)
}
