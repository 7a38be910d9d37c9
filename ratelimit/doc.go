// Package ratelimit agrupa o rate limit por cliente usado pelo servidor.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos (chave, decisão, vagas, estatísticas), sem I/O
//   - application: casos de uso (decidir allow/deny, adquirir vaga com timeout)
//   - infra: implementações concretas (janela deslizante particionada, semáforo,
//     estatísticas em memória e em Redis)
//
// Fluxo no servidor:
//
//  1. Deriva a chave do cliente a partir do endereço remoto da conexão
//  2. Chama application.Service.Decide, que consulta a janela deslizante
//  3. Se bloqueado, o handler responde 429 com Retry-After e fecha a conexão
//  4. Se permitido, segue para o parse e o dispatch da requisição
package ratelimit
