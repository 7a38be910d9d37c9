// Comando loadgen abre conexões keep-alive concorrentes contra o servidor e
// imprime um histograma dos status recebidos.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"
)

type options struct {
	addr     string
	method   string
	path     string
	conns    int
	requests int
	timeout  time.Duration
}

// result agrega as respostas de todos os workers. Status 0 conta falhas de transporte.
type result struct {
	mu       sync.Mutex
	statuses map[int]int
	dials    int
	elapsed  time.Duration
}

func (r *result) add(status int) {
	r.mu.Lock()
	r.statuses[status]++
	r.mu.Unlock()
}

func (r *result) dialed() {
	r.mu.Lock()
	r.dials++
	r.mu.Unlock()
}

func main() {
	opts := options{}
	flag.StringVar(&opts.addr, "addr", "127.0.0.1:8080", "server address")
	flag.StringVar(&opts.method, "method", "GET", "request method")
	flag.StringVar(&opts.path, "path", "/", "request target")
	flag.IntVar(&opts.conns, "c", 10, "concurrent connections")
	flag.IntVar(&opts.requests, "n", 10, "requests per connection")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	if opts.conns <= 0 || opts.requests <= 0 {
		log.Fatalf("-c and -n must be > 0")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res := run(ctx, opts)
	res.print(os.Stdout)
}

func run(ctx context.Context, opts options) *result {
	res := &result{statuses: make(map[int]int)}
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < opts.conns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(ctx, opts, res)
		}()
	}
	wg.Wait()

	res.elapsed = time.Since(start)
	return res
}

// worker envia opts.requests requisições, reaproveitando a conexão enquanto o
// servidor mantiver keep-alive e reconectando quando ele fechar.
func worker(ctx context.Context, opts options, res *result) {
	var (
		conn net.Conn
		br   *bufio.Reader
	)
	defer func() {
		if conn != nil {
			_ = conn.Close()
		}
	}()

	for i := 0; i < opts.requests; i++ {
		if ctx.Err() != nil {
			return
		}
		if conn == nil {
			c, err := net.DialTimeout("tcp", opts.addr, opts.timeout)
			if err != nil {
				res.add(0)
				continue
			}
			res.dialed()
			conn, br = c, bufio.NewReader(c)
		}

		last := i == opts.requests-1
		status, keepAlive, err := roundTrip(conn, br, opts, !last)
		if err != nil {
			res.add(0)
			_ = conn.Close()
			conn = nil
			continue
		}
		res.add(status)
		if !keepAlive {
			_ = conn.Close()
			conn = nil
		}
	}
}

func roundTrip(conn net.Conn, br *bufio.Reader, opts options, keepAlive bool) (int, bool, error) {
	_ = conn.SetDeadline(time.Now().Add(opts.timeout))

	req := fmt.Sprintf("%s %s HTTP/1.1\r\nHost: %s\r\n", opts.method, opts.path, opts.addr)
	if keepAlive {
		req += "Connection: keep-alive\r\n"
	}
	req += "\r\n"
	if _, err := io.WriteString(conn, req); err != nil {
		return 0, false, err
	}

	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil && !errors.Is(err, io.EOF) {
		return 0, false, err
	}
	return resp.StatusCode, keepAlive && !resp.Close, nil
}

func (r *result) print(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	codes := make([]int, 0, len(r.statuses))
	total := 0
	for code, n := range r.statuses {
		codes = append(codes, code)
		total += n
	}
	sort.Ints(codes)

	fmt.Fprintf(w, "requests=%d dials=%d elapsed=%s\n", total, r.dials, r.elapsed.Round(time.Millisecond))
	for _, code := range codes {
		label := http.StatusText(code)
		if code == 0 {
			label = "transport error"
		}
		fmt.Fprintf(w, "  %d %-24s %d\n", code, label, r.statuses[code])
	}
}
