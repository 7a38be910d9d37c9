package application

import (
	"context"
	"errors"
	"time"

	"mini-httpd/ratelimit/domain"
)

// ErrNoSlot indica que nenhuma vaga abriu dentro do AcquireTimeout.
var ErrNoSlot = errors.New("no worker slot available")

// ConcurrencyService concentra a regra de aquisição de vagas de worker com timeout.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta reservar uma vaga para uma conexão nova.
//   - Sem Pool, não há limite: retorna um release vazio.
//   - Com AcquireTimeout <= 0, espera até o ctx encerrar.
//   - Com AcquireTimeout > 0, desiste após o timeout com ErrNoSlot.
//
// Se o ctx do chamador encerrar primeiro, o erro é ctx.Err().
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if ok {
		return release, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoSlot
}

// InUse devolve as vagas ocupadas (0 sem Pool).
func (s ConcurrencyService) InUse() int {
	if s.Pool == nil {
		return 0
	}
	return s.Pool.InUse()
}
