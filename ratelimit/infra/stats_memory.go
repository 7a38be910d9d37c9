package infra

import (
	"context"
	"maps"
	"strconv"
	"sync"

	"mini-httpd/ratelimit/domain"
)

type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

// StatsSnapshot é a cópia servida em /stats.
type StatsSnapshot struct {
	Total    Counters            `json:"total"`
	ByRoute  map[string]Counters `json:"by_route"`
	ByStatus map[string]int64    `json:"by_status"`
	ByKey    map[string]Counters `json:"by_key,omitempty"`
}

// MemoryStatsStore é uma implementação simples em memória.
//
// Não faz expiração; com trackKeys ligado cresce com o número de clientes.
type MemoryStatsStore struct {
	mu       sync.Mutex
	total    Counters
	byRoute  map[string]Counters
	byStatus map[int]int64
	byKey    map[string]Counters

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byRoute:  make(map[string]Counters),
		byStatus: make(map[int]int64),
		byKey:    make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	route := ev.Method + " " + ev.Path
	if ev.Method == "" && ev.Path == "" {
		route = "-"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Status != 0 {
		s.byStatus[ev.Status]++
	}
	bump(&s.total, ev.Allowed)

	c := s.byRoute[route]
	bump(&c, ev.Allowed)
	s.byRoute[route] = c

	if s.trackKeys {
		k := s.byKey[string(ev.Key)]
		bump(&k, ev.Allowed)
		s.byKey[string(ev.Key)] = k
	}
	return nil
}

func bump(c *Counters, allowed bool) {
	if allowed {
		c.Allowed++
		return
	}
	c.Denied++
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByStatus(code int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byStatus[code]
}

func (s *MemoryStatsStore) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := StatsSnapshot{
		Total:    s.total,
		ByRoute:  maps.Clone(s.byRoute),
		ByStatus: make(map[string]int64, len(s.byStatus)),
	}
	for code, n := range s.byStatus {
		out.ByStatus[strconv.Itoa(code)] = n
	}
	if s.trackKeys {
		out.ByKey = maps.Clone(s.byKey)
	}
	return out
}
