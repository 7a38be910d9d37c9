package domain

import (
	"context"
	"time"
)

// StatsEvent é registrado uma vez por requisição respondida ou por rejeição do
// rate limit. Em rejeições antes do parse, Method e Path ficam vazios.
//
// Observação: cuidado com cardinalidade ao persistir Key/Path.
type StatsEvent struct {
	Key     Key
	Allowed bool

	Method string
	Path   string
	Status int

	At time.Time
}

// StatsStore persiste estatísticas de decisão. Erros são best-effort: o
// handler registra em log e segue.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
