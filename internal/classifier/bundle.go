package classifier

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

// bundleVersion is bumped whenever the serialized layout changes.
const bundleVersion = 1

// Bundle is the matched triple of trained artifacts. The three objects are
// only valid together: the forest is fitted against this vectorizer's
// feature space and this encoder's label space, so they are persisted and
// loaded as one unit.
type Bundle struct {
	Version    int
	TrainedAt  time.Time
	Vectorizer *Vectorizer
	Encoder    *LabelEncoder
	Forest     *Forest
}

// envelope wraps the gob-encoded bundle payload with a checksum so a
// partial or corrupted write is detected at load time instead of producing
// a silently mismatched artifact set.
type envelope struct {
	Version  int
	Checksum [sha256.Size]byte
	Payload  []byte
}

// Save writes the bundle to path atomically: the envelope is written to a
// temp file in the same directory and renamed into place, so a concurrent
// loader observes either the old complete bundle or the new one, never a
// partial write.
func (b *Bundle) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "bundle: create directory")
	}

	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(b); err != nil {
		return eris.Wrap(err, "bundle: encode payload")
	}

	env := envelope{
		Version:  bundleVersion,
		Checksum: sha256.Sum256(payload.Bytes()),
		Payload:  payload.Bytes(),
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".bundle-*")
	if err != nil {
		return eris.Wrap(err, "bundle: create temp file")
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(env); err != nil {
		tmp.Close()
		return eris.Wrap(err, "bundle: write envelope")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "bundle: close temp file")
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrap(err, "bundle: rename into place")
	}
	return nil
}

// LoadBundle reads and verifies a bundle from path. Any mismatch (missing
// file, bad checksum, wrong version) is an error; callers treat that as
// "artifacts unavailable", not a fatal condition.
func LoadBundle(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "bundle: open")
	}
	defer f.Close()

	var env envelope
	if err := gob.NewDecoder(f).Decode(&env); err != nil {
		return nil, eris.Wrap(err, "bundle: decode envelope")
	}
	if env.Version != bundleVersion {
		return nil, eris.Errorf("bundle: unsupported version %d", env.Version)
	}
	if sha256.Sum256(env.Payload) != env.Checksum {
		return nil, eris.New("bundle: checksum mismatch")
	}

	var b Bundle
	if err := gob.NewDecoder(bytes.NewReader(env.Payload)).Decode(&b); err != nil {
		return nil, eris.Wrap(err, "bundle: decode payload")
	}
	if b.Vectorizer == nil || b.Encoder == nil || b.Forest == nil {
		return nil, eris.New("bundle: incomplete artifact set")
	}
	return &b, nil
}
