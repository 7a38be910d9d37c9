package infra

import (
	"context"

	"mini-httpd/ratelimit/domain"
)

type chanPool struct {
	sem chan struct{}
}

// NewChanPool cria um pool de vagas baseado em channel com capacidade `max`.
// Com max <= 0 retorna nil: o chamador trata pool nil como "sem limite".
func NewChanPool(max int) domain.SlotPool {
	if max <= 0 {
		return nil
	}
	return &chanPool{sem: make(chan struct{}, max)}
}

func (p *chanPool) Acquire(ctx context.Context) (func(), bool) {
	// vaga livre tem prioridade sobre um ctx já encerrado
	select {
	case p.sem <- struct{}{}:
		return p.releaseFunc(), true
	default:
	}

	select {
	case p.sem <- struct{}{}:
		return p.releaseFunc(), true
	case <-ctx.Done():
		return nil, false
	}
}

func (p *chanPool) releaseFunc() func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true
		<-p.sem
	}
}

func (p *chanPool) InUse() int    { return len(p.sem) }
func (p *chanPool) Capacity() int { return cap(p.sem) }
