package server

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"mini-httpd/protocol"
	"mini-httpd/ratelimit/application"

	"golang.org/x/time/rate"
)

// Server aceita conexões TCP e dispara um Handler por conexão.
//
// Concurrency limita quantas conexões são atendidas ao mesmo tempo; sem Pool não
// há limite. AcceptLimiter (opcional) controla o ritmo de accept.
type Server struct {
	Addr          string
	Handler       *Handler
	Concurrency   application.ConcurrencyService
	AcceptLimiter *rate.Limiter
	Observer      Observer
	Logger        *log.Logger
	// WriteTimeout vale para a resposta 503 de conexões recusadas por falta de vaga.
	WriteTimeout time.Duration

	mu      sync.Mutex
	ln      net.Listener
	cancel  context.CancelFunc
	conns   map[net.Conn]struct{}
	closed  bool
	wg      sync.WaitGroup
	closing atomic.Bool
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve aceita conexões em ln até Shutdown ou até ctx encerrar; nesses casos
// retorna ErrServerClosed. ln é fechado ao sair.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	baseCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.cancel = cancel
	s.mu.Unlock()

	stop := context.AfterFunc(baseCtx, func() {
		s.closing.Store(true)
		_ = ln.Close()
	})
	defer stop()
	defer ln.Close()

	var tempDelay time.Duration
	for {
		if s.AcceptLimiter != nil {
			if err := s.AcceptLimiter.Wait(baseCtx); err != nil {
				if baseCtx.Err() != nil {
					return ErrServerClosed
				}
				return err
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() || baseCtx.Err() != nil {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				tempDelay = nextDelay(tempDelay)
				s.logf("accept error: %v; retrying in %s", err, tempDelay)
				time.Sleep(tempDelay)
				continue
			}
			return err
		}
		tempDelay = 0

		release, err := s.Concurrency.Acquire(baseCtx)
		if err != nil {
			s.refuse(conn, err)
			if baseCtx.Err() != nil {
				return ErrServerClosed
			}
			continue
		}

		if !s.track(conn) {
			release()
			s.refuse(conn, ErrServerClosed)
			return ErrServerClosed
		}
		go func() {
			defer s.untrack(conn)
			defer release()
			_ = s.Handler.ServeConn(baseCtx, conn)
		}()
	}
}

// Shutdown para de aceitar, interrompe leituras pendentes dos handlers e espera
// que terminem. Se ctx encerrar antes, fecha as conexões restantes e devolve ctx.Err().
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.closing.Store(true)
	if s.cancel != nil {
		s.cancel()
	}
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		for c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()
		<-done
		return ctx.Err()
	}
}

// ActiveConns devolve quantas conexões estão sendo atendidas agora.
func (s *Server) ActiveConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// track registra a conexão; depois de Shutdown nenhuma conexão nova entra no
// WaitGroup.
func (s *Server) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if s.conns == nil {
		s.conns = make(map[net.Conn]struct{})
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.wg.Done()
}

// refuse fecha uma conexão que não vai ganhar Handler. Sem vaga, o cliente
// recebe 503 antes do fechamento.
func (s *Server) refuse(conn net.Conn, reason error) {
	defer conn.Close()

	label := "shutdown"
	if errors.Is(reason, application.ErrNoSlot) {
		label = "capacity"
		if s.WriteTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
		}
		if _, err := conn.Write(protocol.BuildResponse(http.StatusServiceUnavailable, "", false)); err != nil {
			s.logf("refuse %s: write error: %v", conn.RemoteAddr(), err)
		}
	}
	s.observer().ConnRefused(label)
	s.logf("refused connection from %s: %v", conn.RemoteAddr(), reason)
}

func nextDelay(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

func (s *Server) observer() Observer {
	if s.Observer != nil {
		return s.Observer
	}
	return nopObserver{}
}

func (s *Server) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
