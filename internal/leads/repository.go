package leads

import (
	"context"
	"sort"
	"sync"
)

// Store persists dispatched leads.
type Store interface {
	Create(ctx context.Context, lead *Lead) error
	GetByID(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context, filter ListFilter) ([]*Lead, error)
}

// InMemoryStore keeps leads in process memory. Used when no database is
// configured.
type InMemoryStore struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{leads: make(map[string]*Lead)}
}

func (s *InMemoryStore) Create(ctx context.Context, lead *Lead) error {
	copied := *lead
	s.mu.Lock()
	s.leads[lead.ID] = &copied
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) GetByID(ctx context.Context, id string) (*Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	copied := *lead
	return &copied, nil
}

func (s *InMemoryStore) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	s.mu.RLock()
	all := make([]*Lead, 0, len(s.leads))
	for _, l := range s.leads {
		copied := *l
		all = append(all, &copied)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if filter.Offset >= len(all) {
		return []*Lead{}, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, nil
}
