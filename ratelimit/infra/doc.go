// Package infra contém implementações concretas para os contratos definidos
// no pacote domain.
//
// Exemplos:
//   - SlidingWindow: log de timestamps por chave, particionado por hash (xxhash)
//   - ChanPool: semáforo simples para limite de conexões simultâneas
//   - MemoryStatsStore / RedisStatsStore: contadores de decisões (NewMultiStatsStore junta os dois)
package infra
