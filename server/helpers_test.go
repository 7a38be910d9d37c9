package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"mini-httpd/ratelimit/domain"
)

// serve roda o handler numa ponta de um net.Pipe, escreve input de uma vez e
// devolve tudo que o servidor respondeu até fechar.
func serve(t *testing.T, h *Handler, input string) (string, error) {
	t.Helper()
	client, srv := net.Pipe()

	errc := make(chan error, 1)
	go func() { errc <- h.ServeConn(context.Background(), srv) }()
	go func() { _, _ = client.Write([]byte(input)) }()

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	out, _ := io.ReadAll(client)
	_ = client.Close()

	select {
	case err := <-errc:
		return string(out), err
	case <-time.After(2 * time.Second):
		t.Fatalf("handler did not return")
	}
	return "", nil
}

type response struct {
	status    int
	body      string
	close     bool
	keepAlive bool
	header    http.Header
}

func readResponse(t *testing.T, br *bufio.Reader) response {
	t.Helper()
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return response{
		status:    resp.StatusCode,
		body:      string(body),
		close:     resp.Close,
		keepAlive: resp.Header.Get("Connection") == "keep-alive",
		header:    resp.Header,
	}
}

type fakeDecider struct {
	mu      sync.Mutex
	allowed bool
	calls   int
}

func (f *fakeDecider) Decide(domain.Key) domain.Decision {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.allowed {
		return domain.Decision{Allowed: true}
	}
	return domain.Decision{Allowed: false, RetryAfter: 2500 * time.Millisecond}
}

func (f *fakeDecider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type countingObserver struct {
	mu       sync.Mutex
	opened   int
	closed   map[string]int
	refused  map[string]int
	allowed  int
	denied   int
	statuses map[int]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{closed: map[string]int{}, refused: map[string]int{}, statuses: map[int]int{}}
}

func (o *countingObserver) ConnOpened() {
	o.mu.Lock()
	o.opened++
	o.mu.Unlock()
}

func (o *countingObserver) ConnClosed(_ time.Duration, reason string) {
	o.mu.Lock()
	o.closed[reason]++
	o.mu.Unlock()
}

func (o *countingObserver) ConnRefused(reason string) {
	o.mu.Lock()
	o.refused[reason]++
	o.mu.Unlock()
}

func (o *countingObserver) Decision(allowed bool) {
	o.mu.Lock()
	if allowed {
		o.allowed++
	} else {
		o.denied++
	}
	o.mu.Unlock()
}

func (o *countingObserver) Request(_ string, status int, _ time.Duration) {
	o.mu.Lock()
	o.statuses[status]++
	o.mu.Unlock()
}

func (o *countingObserver) Refused(reason string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refused[reason]
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}

// startServer sobe s em 127.0.0.1:0 e registra o Shutdown no cleanup.
func startServer(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(context.Background(), ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
		select {
		case err := <-errc:
			if !errors.Is(err, ErrServerClosed) {
				t.Errorf("expected ErrServerClosed from Serve, got %v", err)
			}
		case <-time.After(time.Second):
			t.Errorf("Serve did not return after Shutdown")
		}
	})
	return ln.Addr().String()
}
