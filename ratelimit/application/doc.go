// Package application contém os casos de uso do rate limit e do limite de
// conexões simultâneas.
//
// Depende apenas do pacote domain. Ex.: Service.Decide(key) retorna uma
// Decision (allow/deny + retry-after) e ConcurrencyService.Acquire reserva
// uma vaga de worker para uma conexão.
package application
