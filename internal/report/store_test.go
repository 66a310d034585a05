package report

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// checkRoundTrip saves a sweep, loads it back and compares what the CSV
// export would see.
func checkRoundTrip(t *testing.T, st Store) {
	t.Helper()
	s := testSweep(t)
	s.Finish(errors.New("launching target: cargo: not found"))

	if err := st.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := st.Load(s.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.ID != s.ID || got.Aborted != s.Aborted || len(got.Rows) != len(s.Rows) {
		t.Fatalf("Load = %+v, want %+v", got.Summary(), s.Summary())
	}
	if diff := cmp.Diff(Header(s), Header(got)); diff != "" {
		t.Errorf("Header mismatch (-want +got):\n%s", diff)
	}
	for i := range s.Rows {
		if diff := cmp.Diff(s.Rows[i].Flat().Keys(), got.Rows[i].Flat().Keys()); diff != "" {
			t.Errorf("row %d keys mismatch (-want +got):\n%s", i, diff)
		}
		if got.Rows[i].Status != s.Rows[i].Status {
			t.Errorf("row %d status = %s, want %s", i, got.Rows[i].Status, s.Rows[i].Status)
		}
	}
	if got.Rows[1].Result != nil {
		t.Errorf("row 1 result = %v, want nil", got.Rows[1].Result)
	}

	if _, err := st.Load("missing"); err == nil {
		t.Error("Load(missing) returned nil error")
	}
}

func checkList(t *testing.T, st Store) {
	t.Helper()
	older := testSweep(t)
	older.StartedAt = time.Now().UTC().Add(-time.Hour)
	newer := testSweep(t)

	for _, s := range []*Sweep{older, newer} {
		if err := st.Save(s); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	list, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(List) = %d, want 2", len(list))
	}
	if list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Errorf("List order = %s, %s; want newest first", list[0].ID, list[1].ID)
	}
	if list[0].OK != 2 || list[0].Rows != 3 {
		t.Errorf("List[0] = %+v", list[0])
	}
}

func TestDiskStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs")
	st := NewDiskStore(dir)

	if list, err := st.List(); err != nil || len(list) != 0 {
		t.Fatalf("List on missing dir = %v, %v", list, err)
	}
	checkRoundTrip(t, st)
	if _, err := st.Load("../x"); err == nil {
		t.Error("Load(../x) returned nil error")
	}
}

func TestDiskStore_List(t *testing.T) {
	checkList(t, NewDiskStore(t.TempDir()))
}

func TestSQLiteStore(t *testing.T) {
	st, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "db", "runs.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	defer st.Close()

	checkRoundTrip(t, st)
}

func TestSQLiteStore_List(t *testing.T) {
	st, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	defer st.Close()

	checkList(t, st)
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	st, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	defer st.Close()

	s := testSweep(t)
	if err := st.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Append(Row{Variant: variant(20, false), Status: NoResult})
	if err := st.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	list, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Rows != 4 {
		t.Errorf("List = %+v, want one sweep with 4 rows", list)
	}
}

// countingStore records calls that reach the backing store.
type countingStore struct {
	saved map[string]*Sweep
	loads int
}

func (c *countingStore) Save(s *Sweep) error {
	if c.saved == nil {
		c.saved = make(map[string]*Sweep)
	}
	c.saved[s.ID] = s
	return nil
}

func (c *countingStore) Load(id string) (*Sweep, error) {
	c.loads++
	if s, ok := c.saved[id]; ok {
		return s, nil
	}
	return nil, errors.New("not found")
}

func (c *countingStore) List() ([]Summary, error) { return nil, nil }

func TestLRUStore(t *testing.T) {
	back := &countingStore{}
	st := NewLRUStore(2, back)

	a, b, c := testSweep(t), testSweep(t), testSweep(t)
	for _, s := range []*Sweep{a, b, c} {
		if err := st.Save(s); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if len(back.saved) != 3 {
		t.Errorf("backing store has %d sweeps, want 3", len(back.saved))
	}

	// b and c are cached; a was evicted.
	if _, err := st.Load(c.ID); err != nil {
		t.Fatalf("Load(c): %v", err)
	}
	if back.loads != 0 {
		t.Errorf("backing loads = %d, want 0", back.loads)
	}
	if _, err := st.Load(a.ID); err != nil {
		t.Fatalf("Load(a): %v", err)
	}
	if back.loads != 1 {
		t.Errorf("backing loads = %d, want 1", back.loads)
	}

	// Loading a evicted b (least recently used).
	if _, err := st.Load(b.ID); err != nil {
		t.Fatalf("Load(b): %v", err)
	}
	if back.loads != 2 {
		t.Errorf("backing loads = %d, want 2", back.loads)
	}

	if _, err := st.Load("missing"); err == nil {
		t.Error("Load(missing) returned nil error")
	}
}
