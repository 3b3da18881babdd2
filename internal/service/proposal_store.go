package service

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
)

const proposalCachePrefix = "proposal"

// timetableProposal is a solved, unsaved timetable awaiting confirmation.
type timetableProposal struct {
	ProposalID      string                      `json:"proposalId"`
	TermID          string                      `json:"termId"`
	ClassID         string                      `json:"classId"`
	Days            []string                    `json:"days"`
	Hours           []string                    `json:"hours"`
	HoursPerSubject map[string]int              `json:"hoursPerSubject"`
	MaxHoursPerDay  int                         `json:"maxHoursPerDay"`
	Grid            [][]string                  `json:"grid"`
	Slots           []dto.TimetableSlotProposal `json:"slots"`
	Stats           dto.SolveStats              `json:"stats"`
	CreatedAt       time.Time                   `json:"createdAt"`
}

func (p timetableProposal) response(cached bool, expiresAt time.Time) *dto.GenerateTimetableResponse {
	return &dto.GenerateTimetableResponse{
		ProposalID: p.ProposalID,
		TermID:     p.TermID,
		ClassID:    p.ClassID,
		Days:       p.Days,
		Hours:      p.Hours,
		Grid:       p.Grid,
		Slots:      p.Slots,
		Stats:      p.Stats,
		Cached:     cached,
		ExpiresAt:  expiresAt,
	}
}

// proposalStore keeps proposals in memory and mirrors them to the shared cache so that any API
// instance can save a proposal generated by another one.
type proposalStore struct {
	ttl   time.Duration
	cache *CacheService
	now   func() time.Time

	mu    sync.RWMutex
	items map[string]timetableProposal
}

func newProposalStore(ttl time.Duration, cache *CacheService) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		cache: cache,
		now:   time.Now,
		items: make(map[string]timetableProposal),
	}
}

func (s *proposalStore) Save(ctx context.Context, proposal timetableProposal) {
	s.mu.Lock()
	s.evictExpiredLocked()
	s.items[proposal.ProposalID] = proposal
	s.mu.Unlock()
	s.cache.Set(ctx, CacheKey(proposalCachePrefix, proposal.ProposalID), proposal, s.ttl)
}

func (s *proposalStore) Get(ctx context.Context, id string) (timetableProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		if !s.cache.Get(ctx, CacheKey(proposalCachePrefix, id), &proposal) {
			return timetableProposal{}, false
		}
	}
	if s.expired(proposal) {
		s.Delete(ctx, id)
		return timetableProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	s.cache.Delete(ctx, CacheKey(proposalCachePrefix, id))
}

func (s *proposalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *proposalStore) expired(p timetableProposal) bool {
	return s.now().Sub(p.CreatedAt) > s.ttl
}

func (s *proposalStore) evictExpiredLocked() {
	for id, p := range s.items {
		if s.expired(p) {
			delete(s.items, id)
		}
	}
}
