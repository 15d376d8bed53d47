// Package storage persists drafts, plans, friend statuses and the broadcast
// delta log.
package storage

import (
	"context"
	"sync"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// MemoryStore keeps every record in process memory. Reads and writes copy
// records so callers never share state with the store.
type MemoryStore struct {
	mu           sync.RWMutex
	drafts       map[string]*outing.Draft
	plans        map[string]*outing.Plan
	plansByDraft map[string]string
	statuses     map[string]map[string]outing.FriendStatus
}

var (
	_ outing.Store               = (*MemoryStore)(nil)
	_ outing.ConversionCommitter = (*MemoryStore)(nil)
	_ outing.PresenceIndex       = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drafts:       make(map[string]*outing.Draft),
		plans:        make(map[string]*outing.Plan),
		plansByDraft: make(map[string]string),
		statuses:     make(map[string]map[string]outing.FriendStatus),
	}
}

func (s *MemoryStore) GetDraft(_ context.Context, id string) (*outing.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, outing.DraftNotFound(id)
	}
	return d.Clone(), nil
}

func (s *MemoryStore) SaveDraft(_ context.Context, d *outing.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[d.ID] = d.Clone()
	return nil
}

func (s *MemoryStore) DeleteDraft(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[id]; !ok {
		return outing.DraftNotFound(id)
	}
	delete(s.drafts, id)
	return nil
}

func (s *MemoryStore) GetPlan(_ context.Context, id string) (*outing.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, outing.PlanNotFound(id)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) SavePlan(_ context.Context, p *outing.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putPlan(p)
	return nil
}

func (s *MemoryStore) FindPlanBySourceDraft(_ context.Context, draftID string) (*outing.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	planID, ok := s.plansByDraft[draftID]
	if !ok {
		return nil, outing.PlanNotFound("from draft " + draftID)
	}
	return s.plans[planID].Clone(), nil
}

// CommitConversion stores the plan and deletes its draft under one lock.
func (s *MemoryStore) CommitConversion(_ context.Context, p *outing.Plan, draftID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[draftID]; !ok {
		return outing.DraftNotFound(draftID)
	}
	s.putPlan(p)
	delete(s.drafts, draftID)
	return nil
}

func (s *MemoryStore) putPlan(p *outing.Plan) {
	s.plans[p.ID] = p.Clone()
	if p.SourceDraftID != "" {
		s.plansByDraft[p.SourceDraftID] = p.ID
	}
}

func (s *MemoryStore) GetFriendStatuses(_ context.Context, planID string) (map[string]outing.FriendStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]outing.FriendStatus, len(s.statuses[planID]))
	for id, fs := range s.statuses[planID] {
		out[id] = fs
	}
	return out, nil
}

func (s *MemoryStore) PutFriendStatus(_ context.Context, fs outing.FriendStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byParticipant, ok := s.statuses[fs.PlanID]
	if !ok {
		byParticipant = make(map[string]outing.FriendStatus)
		s.statuses[fs.PlanID] = byParticipant
	}
	byParticipant[fs.ParticipantID] = fs
	return nil
}

func (s *MemoryStore) DraftsWithOnlinePresence(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, d := range s.drafts {
		for _, e := range d.Presence {
			if e.IsOnline {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids, nil
}
