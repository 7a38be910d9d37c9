package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mini-httpd/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava contadores de decisão em hashes do Redis.
//
// Layout (prefixo padrão "ratelimit:stats"):
//
//	<prefix>:total                 allowed|denied
//	<prefix>:minute:200601021504   allowed|denied        (TTL)
//	<prefix>:route                 "<METHOD> <path>:allowed|denied"
//	<prefix>:status                "<code>"
//	<prefix>:key:<key>             allowed|denied        (TTL, opcional)
//
// Só estatística: o estado do limiter continua em memória.
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	// ttl aplica apenas em chaves de série temporal / por key.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "ratelimit:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// hincr é um HINCRBY planejado; expire aplica o TTL do store na chave.
type hincr struct {
	key    string
	field  string
	expire bool
}

// plan lista os incrementos de um evento, na ordem em que vão para o pipeline.
func (s *RedisStatsStore) plan(ev domain.StatsEvent) []hincr {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	outcome := "denied"
	if ev.Allowed {
		outcome = "allowed"
	}

	out := []hincr{{key: s.prefix + ":total", field: outcome}}
	if s.bucket == "minute" {
		out = append(out, hincr{key: s.prefix + ":minute:" + at.UTC().Format("200601021504"), field: outcome, expire: true})
	}
	if route := strings.TrimSpace(ev.Method + " " + ev.Path); route != "" {
		out = append(out, hincr{key: s.prefix + ":route", field: route + ":" + outcome})
	}
	if ev.Status != 0 {
		out = append(out, hincr{key: s.prefix + ":status", field: strconv.Itoa(ev.Status)})
	}
	if k := strings.TrimSpace(string(ev.Key)); s.trackKeys && k != "" {
		out = append(out, hincr{key: s.prefix + ":key:" + k, field: outcome, expire: true})
	}
	return out
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range s.plan(ev) {
			pipe.HIncrBy(ctx, op.key, op.field, 1)
			if op.expire && s.ttl > 0 {
				pipe.Expire(ctx, op.key, s.ttl)
			}
		}
		return nil
	})
	return err
}

// Totals lê os contadores acumulados (<prefix>:total). Útil para saber, ao subir,
// o que instâncias anteriores já registraram.
func (s *RedisStatsStore) Totals(ctx context.Context) (Counters, error) {
	vals, err := s.rdb.HGetAll(ctx, s.prefix+":total").Result()
	if err != nil {
		return Counters{}, err
	}
	var c Counters
	for field, dst := range map[string]*int64{"allowed": &c.Allowed, "denied": &c.Denied} {
		v, ok := vals[field]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Counters{}, fmt.Errorf("stats field %s: %w", field, err)
		}
		*dst = n
	}
	return c, nil
}
