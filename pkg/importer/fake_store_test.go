package importer

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/David-Botos/crm-import/pkg/model"
)

type link struct {
	kind     model.Kind
	entityID int64
	tagID    int64
}

// fakeStore is an in-memory Store recording every call in order
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	entities map[int64]*model.Entity
	tags     map[string]int64
	links    map[link]bool
	calls    []string

	insertErr  func(e *model.Entity) error
	tagErr     map[string]error
	linkErr    map[string]error
	lookupErr  error
	tagCreates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entities: make(map[int64]*model.Entity),
		tags:     make(map[string]int64),
		links:    make(map[link]bool),
		tagErr:   make(map[string]error),
		linkErr:  make(map[string]error),
	}
}

func (s *fakeStore) InsertEntity(_ context.Context, e *model.Entity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, "insert "+e.Name())
	if s.insertErr != nil {
		if err := s.insertErr(e); err != nil {
			return 0, err
		}
	}
	if e.Name() == "" {
		return 0, errors.New("name is required")
	}
	s.nextID++
	copied := *e
	s.entities[s.nextID] = &copied
	return s.nextID, nil
}

func (s *fakeStore) GetOrCreateTag(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, "tag "+name)
	if err := s.tagErr[name]; err != nil {
		return 0, err
	}
	if id, ok := s.tags[name]; ok {
		return id, nil
	}
	s.nextID++
	s.tagCreates++
	s.tags[name] = s.nextID
	return s.nextID, nil
}

func (s *fakeStore) LinkEntityTag(_ context.Context, kind model.Kind, entityID, tagID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := ""
	for n, id := range s.tags {
		if id == tagID {
			name = n
		}
	}
	s.calls = append(s.calls, "link "+name)
	if err := s.linkErr[name]; err != nil {
		return err
	}
	s.links[link{kind: kind, entityID: entityID, tagID: tagID}] = true
	return nil
}

func (s *fakeStore) FindEntityByName(_ context.Context, kind model.Kind, name string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, "lookup "+name)
	if s.lookupErr != nil {
		return 0, false, s.lookupErr
	}
	var best int64
	for id, e := range s.entities {
		if e.Kind == kind && e.Name() == name && (best == 0 || id < best) {
			best = id
		}
	}
	return best, best != 0, nil
}

func (s *fakeStore) entitiesOf(kind model.Kind) []*model.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Entity
	for id := int64(1); id <= s.nextID; id++ {
		if e, ok := s.entities[id]; ok && e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
