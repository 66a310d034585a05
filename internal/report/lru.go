package report

import (
	"container/list"
	"sync"
)

// LRUStore keeps the most recently used sweeps in memory and delegates
// to a backing Store on a miss.
type LRUStore struct {
	mu    sync.Mutex
	cap   int
	back  Store
	order *list.List // of *Sweep, most recent at the front
	items map[string]*list.Element
}

// NewLRUStore returns a cache of at most cap sweeps (minimum 1) in front
// of back.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{
		cap:   cap,
		back:  back,
		order: list.New(),
		items: make(map[string]*list.Element, cap),
	}
}

// Save caches s and writes it through to the backing store.
func (s *LRUStore) Save(sw *Sweep) error {
	s.put(sw)
	return s.back.Save(sw)
}

// Load serves from memory when possible and caches backing-store hits.
func (s *LRUStore) Load(id string) (*Sweep, error) {
	s.mu.Lock()
	if e, ok := s.items[id]; ok {
		s.order.MoveToFront(e)
		sw := e.Value.(*Sweep)
		s.mu.Unlock()
		return sw, nil
	}
	s.mu.Unlock()

	sw, err := s.back.Load(id)
	if err != nil {
		return nil, err
	}
	s.put(sw)
	return sw, nil
}

// List always asks the backing store.
func (s *LRUStore) List() ([]Summary, error) {
	return s.back.List()
}

func (s *LRUStore) put(sw *Sweep) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.items[sw.ID]; ok {
		e.Value = sw
		s.order.MoveToFront(e)
		return
	}
	s.items[sw.ID] = s.order.PushFront(sw)
	for s.order.Len() > s.cap {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*Sweep).ID)
	}
}
