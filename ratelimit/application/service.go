package application

import (
	"time"

	"mini-httpd/ratelimit/domain"
)

// Service traduz a resposta do limiter numa Decision.
//
// Ele não sabe nada sobre conexões ou status HTTP.
type Service struct {
	Limiter domain.Limiter
	// RetryAfter é usado quando o limiter não informa quando a próxima vaga abre.
	RetryAfter time.Duration
}

func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Limiter == nil {
		return domain.Decision{Allowed: true}
	}
	if !s.Limiter.CheckAndRecord(key) {
		return domain.Decision{Allowed: true}
	}

	retry := s.RetryAfter
	if retry <= 0 {
		retry = 1 * time.Second
	}
	if h, ok := s.Limiter.(domain.RetryHinter); ok {
		if d := h.RetryIn(key); d > 0 {
			retry = d
		}
	}
	return domain.Decision{Allowed: false, RetryAfter: retry}
}
