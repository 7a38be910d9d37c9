package server

import "time"

// Observer recebe os eventos do acceptor e dos handlers (métricas).
// Implementações precisam ser seguras para uso concorrente.
type Observer interface {
	ConnOpened()
	ConnClosed(lifetime time.Duration, reason string)
	ConnRefused(reason string)
	Decision(allowed bool)
	Request(method string, status int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ConnOpened()                        {}
func (nopObserver) ConnClosed(time.Duration, string)   {}
func (nopObserver) ConnRefused(string)                 {}
func (nopObserver) Decision(bool)                      {}
func (nopObserver) Request(string, int, time.Duration) {}
