package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/MarkUsProject/markusmoss/internal/errors"
)

// Marker records the durable completion of one action. Markers live as
// individual JSON files so a crash between actions loses at most the
// in-flight action's progress, never the record of earlier completions.
type Marker struct {
	Action      string    `json:"action"`
	RunID       string    `json:"run_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// MarkerStore reads and writes completion markers under a single directory.
type MarkerStore struct {
	dir string
}

// NewMarkerStore returns a store rooted at dir. The directory is created
// lazily on first write.
func NewMarkerStore(dir string) *MarkerStore {
	return &MarkerStore{dir: dir}
}

func (s *MarkerStore) path(action string) string {
	return filepath.Join(s.dir, action+".json")
}

// Load returns the marker for an action, reporting whether one exists.
// A marker that exists but cannot be parsed is treated as absent, so a
// corrupted file causes a re-run rather than a wedged pipeline.
func (s *MarkerStore) Load(action string) (Marker, bool, error) {
	data, err := os.ReadFile(s.path(action))
	if os.IsNotExist(err) {
		return Marker{}, false, nil
	}
	if err != nil {
		return Marker{}, false, errors.Wrapf(err, "reading marker for %s", action)
	}

	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return Marker{}, false, nil
	}
	return m, true, nil
}

// Write persists a marker atomically: the JSON is written to a temp file
// in the marker directory and renamed into place.
func (s *MarkerStore) Write(m Marker) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.Wrap(err, "creating marker directory")
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encoding marker for %s", m.Action)
	}

	tmp, err := os.CreateTemp(s.dir, m.Action+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating marker temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "writing marker for %s", m.Action)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "closing marker for %s", m.Action)
	}
	if err := os.Rename(tmp.Name(), s.path(m.Action)); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "committing marker for %s", m.Action)
	}
	return nil
}

// Clear removes the marker for an action. Missing markers are not an error.
func (s *MarkerStore) Clear(action string) error {
	err := os.Remove(s.path(action))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "clearing marker for %s", action)
	}
	return nil
}
