package infra

import (
	"sync"
	"sync/atomic"
	"time"

	"mini-httpd/ratelimit/domain"

	"github.com/cespare/xxhash/v2"
)

// SlidingWindow guarda, por chave, os instantes das requisições admitidas e
// rejeita quando há maxRequests dentro da janela [now-window, now).
//
// O mapa é dividido em shards escolhidos por xxhash da chave, cada um com seu
// próprio mutex: chaves diferentes raramente disputam o mesmo lock, e a
// operação continua atômica por chave.
type SlidingWindow struct {
	shards      []*windowShard
	maxRequests int
	window      time.Duration

	idleTTL      time.Duration
	cleanupEvery time.Duration
	maxKeys      int
	now          func() time.Time

	keys     atomic.Int64
	sweeping atomic.Bool
}

type windowShard struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
}

// windowEntry mantém times em ordem crescente: os instantes são lidos com o
// lock do shard já adquirido.
type windowEntry struct {
	times    []time.Time
	lastSeen time.Time
}

type WindowOption func(*SlidingWindow)

// WithShards define o número de partições (mínimo 1).
func WithShards(n int) WindowOption {
	return func(s *SlidingWindow) {
		if n < 1 {
			n = 1
		}
		s.shards = newShards(n)
	}
}

// WithIdleTTL define após quanto tempo sem acesso uma chave inteira é removida
// pela limpeza. Valores menores que a janela são elevados para a janela.
func WithIdleTTL(d time.Duration) WindowOption {
	return func(s *SlidingWindow) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) WindowOption {
	return func(s *SlidingWindow) { s.cleanupEvery = d }
}

// WithMaxKeys dispara uma limpeza imediata quando o número de chaves passa de n.
// Não rejeita clientes novos; 0 desliga.
func WithMaxKeys(n int) WindowOption {
	return func(s *SlidingWindow) { s.maxKeys = n }
}

// WithClock troca a fonte de tempo (testes).
func WithClock(now func() time.Time) WindowOption {
	return func(s *SlidingWindow) { s.now = now }
}

func NewSlidingWindow(maxRequests int, window time.Duration, opts ...WindowOption) *SlidingWindow {
	s := &SlidingWindow{
		shards:       newShards(32),
		maxRequests:  maxRequests,
		window:       window,
		idleTTL:      2 * window,
		cleanupEvery: time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.idleTTL < s.window {
		s.idleTTL = s.window
	}
	return s
}

func newShards(n int) []*windowShard {
	shards := make([]*windowShard, n)
	for i := range shards {
		shards[i] = &windowShard{entries: make(map[string]*windowEntry)}
	}
	return shards
}

func (s *SlidingWindow) MaxRequests() int            { return s.maxRequests }
func (s *SlidingWindow) Window() time.Duration       { return s.window }
func (s *SlidingWindow) Shards() int                 { return len(s.shards) }
func (s *SlidingWindow) CleanupEvery() time.Duration { return s.cleanupEvery }

// Keys devolve quantas chaves estão em memória.
func (s *SlidingWindow) Keys() int { return int(s.keys.Load()) }

func (s *SlidingWindow) shardFor(key string) *windowShard {
	return s.shards[xxhash.Sum64String(key)%uint64(len(s.shards))]
}

// CheckAndRecord implementa domain.Limiter.
//
// Remove os instantes com idade >= window, rejeita (sem registrar) se ainda
// restarem maxRequests, e caso contrário registra o instante atual.
func (s *SlidingWindow) CheckAndRecord(key domain.Key) bool {
	k := string(key)
	sh := s.shardFor(k)

	sh.mu.Lock()
	now := s.now()
	ent, ok := sh.entries[k]
	if !ok {
		ent = &windowEntry{}
		sh.entries[k] = ent
	}
	ent.lastSeen = now
	ent.evict(now, s.window)

	limited := len(ent.times) >= s.maxRequests
	if !limited {
		ent.times = append(ent.times, now)
	}
	sh.mu.Unlock()

	if !ok {
		if n := s.keys.Add(1); s.maxKeys > 0 && n > int64(s.maxKeys) {
			s.sweep()
		}
	}
	return limited
}

// RetryIn implementa domain.RetryHinter: quanto falta para o instante mais
// antigo sair da janela, quando a chave está saturada.
func (s *SlidingWindow) RetryIn(key domain.Key) time.Duration {
	k := string(key)
	sh := s.shardFor(k)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	ent, ok := sh.entries[k]
	if !ok {
		return 0
	}
	now := s.now()
	ent.evict(now, s.window)
	if len(ent.times) < s.maxRequests {
		return 0
	}
	return ent.times[0].Add(s.window).Sub(now)
}

// Len devolve o tamanho do log da chave após a remoção dos expirados.
func (s *SlidingWindow) Len(key domain.Key) int {
	k := string(key)
	sh := s.shardFor(k)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	ent, ok := sh.entries[k]
	if !ok {
		return 0
	}
	ent.evict(s.now(), s.window)
	return len(ent.times)
}

func (e *windowEntry) evict(now time.Time, window time.Duration) {
	i := 0
	for i < len(e.times) && now.Sub(e.times[i]) >= window {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(e.times, e.times[i:])
	e.times = e.times[:n]
}

// Cleanup remove chaves sem acesso há pelo menos idleTTL. Como idleTTL >= window,
// todo instante dessas chaves já expirou.
func (s *SlidingWindow) Cleanup() int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		now := s.now()
		for k, ent := range sh.entries {
			if now.Sub(ent.lastSeen) >= s.idleTTL {
				delete(sh.entries, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	s.keys.Add(int64(-removed))
	return removed
}

func (s *SlidingWindow) sweep() {
	if !s.sweeping.CompareAndSwap(false, true) {
		return
	}
	defer s.sweeping.Store(false)
	s.Cleanup()
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *SlidingWindow) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.sweep()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar context aqui.
type DoneContext interface {
	Done() <-chan struct{}
}
