// Package server implementa o loop por conexão (Handler) e o acceptor (Server).
//
// O Handler é dono de uma conexão aceita: lê a linha de requisição, valida a
// versão, lê os cabeçalhos, decide keep-alive, despacha pelo método e escreve a
// resposta, repetindo na mesma conexão enquanto o cliente pedir keep-alive.
// Antes de cada requisição (ou só uma vez por conexão, conforme o Scope) o
// Handler consulta o rate limit compartilhado.
//
// O Server aceita conexões, respeita o limite de vagas (ConcurrencyService) e o
// ritmo de accept opcional (golang.org/x/time/rate), e dispara um Handler por
// conexão.
package server
