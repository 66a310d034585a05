package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DiskStore writes each sweep as a JSON file in a directory that is
// created on the first Save.
type DiskStore struct {
	mu  sync.Mutex
	dir string
}

// NewDiskStore returns a store rooted at dir.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Save writes s to <dir>/<id>.json, replacing an earlier copy.
func (s *DiskStore) Save(sw *Sweep) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling sweep %s: %w", sw.ID, err)
	}
	tmp := s.path(sw.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing sweep %s: %w", sw.ID, err)
	}
	if err := os.Rename(tmp, s.path(sw.ID)); err != nil {
		return fmt.Errorf("writing sweep %s: %w", sw.ID, err)
	}
	return nil
}

// Load reads the sweep with the given ID.
func (s *DiskStore) Load(id string) (*Sweep, error) {
	if strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("invalid sweep id %q", id)
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("reading sweep %s: %w", id, err)
	}
	var sw Sweep
	if err := json.Unmarshal(data, &sw); err != nil {
		return nil, fmt.Errorf("unmarshalling sweep %s: %w", id, err)
	}
	return &sw, nil
}

// List summarises every stored sweep, newest first. A missing directory
// is an empty store.
func (s *DiskStore) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing sweeps: %w", err)
	}

	var out []Summary
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok {
			continue
		}
		sw, err := s.Load(id)
		if err != nil {
			return nil, err
		}
		out = append(out, sw.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (s *DiskStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *DiskStore) ensureDir() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating sweep directory: %w", err)
	}
	return nil
}
