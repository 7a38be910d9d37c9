package domain

import "time"

// Key identifica o cliente (tipicamente o IP de origem). É só chave de busca.
type Key string

// Limiter decide e registra, numa operação atômica por chave, se uma nova
// requisição do cliente deve ser rejeitada.
//
// CheckAndRecord retorna true quando a chave está limitada. Uma tentativa
// rejeitada nunca é registrada.
type Limiter interface {
	CheckAndRecord(Key) bool
}

// RetryHinter é implementado por limiters que sabem quando a próxima vaga abre.
type RetryHinter interface {
	RetryIn(Key) time.Duration
}

type Decision struct {
	Allowed bool
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
