// Package domain define contratos e tipos de domínio para rate limit e limite
// de conexões simultâneas.
//
// Este pacote não depende de rede nem de implementações concretas.
package domain
