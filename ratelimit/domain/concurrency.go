package domain

import "context"

// SlotPool limita quantas conexões são atendidas ao mesmo tempo.
//
// Acquire bloqueia até haver vaga ou até o ctx encerrar. A função de release
// devolvida deve ser chamada exatamente uma vez, quando o handler da conexão termina.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
	// InUse e Capacity alimentam métricas; Capacity <= 0 significa sem limite.
	InUse() int
	Capacity() int
}
