package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"mini-httpd/protocol"
	"mini-httpd/ratelimit/domain"

	"github.com/google/uuid"
)

// Scope define quando o rate limit é consultado numa conexão.
type Scope int

const (
	// ScopeRequest consulta antes de cada requisição, inclusive nas iterações keep-alive.
	ScopeRequest Scope = iota
	// ScopeConnection consulta uma única vez, logo após o accept.
	ScopeConnection
)

func ParseScope(v string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "request":
		return ScopeRequest, nil
	case "connection":
		return ScopeConnection, nil
	}
	return 0, fmt.Errorf("invalid rate limit scope %q (want request or connection)", v)
}

func (s Scope) String() string {
	if s == ScopeConnection {
		return "connection"
	}
	return "request"
}

// Decider é a decisão de admissão (application.Service).
type Decider interface {
	Decide(domain.Key) domain.Decision
}

const (
	defaultMaxLineBytes = 8 << 10
	lingerTimeout       = 500 * time.Millisecond
)

// Handler atende uma conexão por chamada de ServeConn. Um único Handler é
// compartilhado por todas as conexões; o estado por conexão fica em connState.
type Handler struct {
	// Decider nil desliga o rate limit.
	Decider Decider
	Scope   Scope
	KeyFn   KeyFunc

	Stats    domain.StatsStore
	Observer Observer
	Logger   *log.Logger
	// LogRequests registra método, path, versão, cabeçalhos, query e keep-alive de cada requisição.
	LogRequests bool

	// ReadTimeout limita a leitura de uma requisição (linha + cabeçalhos).
	ReadTimeout time.Duration
	// IdleTimeout limita a espera pela próxima requisição numa conexão keep-alive.
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
	MaxLineBytes int
}

type connState struct {
	id     string
	key    domain.Key
	conn   net.Conn
	reader *bufio.Reader
	opened time.Time
	served int
}

// ServeConn executa o loop da conexão até ela fechar e fecha conn ao sair.
//
// Retorna nil quando o cliente encerra normalmente (sem keep-alive ou fechando o
// stream); caso contrário retorna um erro classificável com errors.Is
// (ErrRateLimited, ErrMalformedRequestLine, ErrTransportRead, ...).
// Cancelar ctx interrompe leituras pendentes e impede novas iterações.
func (h *Handler) ServeConn(ctx context.Context, conn net.Conn) error {
	c := &connState{
		id:     uuid.NewString(),
		key:    h.keyFn()(conn.RemoteAddr()),
		conn:   conn,
		reader: bufio.NewReader(conn),
		opened: time.Now(),
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	obs := h.observer()
	obs.ConnOpened()

	err := h.loop(ctx, c)
	if errors.Is(err, errPeerClosed) {
		err = nil
	}

	if !errors.Is(err, ErrTransportRead) && !errors.Is(err, ErrTransportWrite) {
		closeWriteAndDrain(conn)
	}

	obs.ConnClosed(time.Since(c.opened), Reason(err))
	if err != nil {
		h.logf("conn=%s client=%s served=%d closed: %v", c.id, c.key, c.served, err)
	}
	return err
}

func (h *Handler) loop(ctx context.Context, c *connState) error {
	for {
		if c.served > 0 {
			if ctx.Err() != nil {
				return nil
			}
			if err := h.awaitRequest(ctx, c); err != nil {
				return err
			}
		}

		if h.Decider != nil && (h.Scope == ScopeRequest || c.served == 0) {
			if err := h.admit(ctx, c); err != nil {
				return err
			}
		}

		keepAlive, err := h.serveRequest(ctx, c)
		if err != nil {
			return err
		}
		c.served++
		if !keepAlive {
			return nil
		}
	}
}

// awaitRequest bloqueia até chegar o primeiro byte da próxima requisição, para
// que uma conexão keep-alive ociosa não consuma cota do rate limit.
func (h *Handler) awaitRequest(ctx context.Context, c *connState) error {
	h.setReadDeadline(ctx, c, h.IdleTimeout)
	if _, err := c.reader.Peek(1); err != nil {
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return errPeerClosed
		}
		return readError(err)
	}
	return nil
}

func (h *Handler) admit(ctx context.Context, c *connState) error {
	start := time.Now()
	dec := h.Decider.Decide(c.key)
	h.observer().Decision(dec.Allowed)
	if dec.Allowed {
		return nil
	}

	resp := protocol.BuildResponse(http.StatusTooManyRequests, "", false, protocol.HeaderField{
		Name:  "Retry-After",
		Value: protocol.FormatRetryAfter(dec.RetryAfter),
	})
	if err := h.write(c, resp); err != nil {
		return err
	}
	h.finish(ctx, c, protocol.Request{}, false, http.StatusTooManyRequests, start)
	return ErrRateLimited
}

// serveRequest percorre uma iteração: linha de requisição, versão, cabeçalhos,
// keep-alive, query, dispatch e escrita. Retorna se a conexão deve continuar.
func (h *Handler) serveRequest(ctx context.Context, c *connState) (bool, error) {
	start := time.Now()
	h.setReadDeadline(ctx, c, h.ReadTimeout)

	line, err := protocol.ReadLine(c.reader, h.maxLine())
	switch {
	case errors.Is(err, protocol.ErrLineTooLong):
		return false, h.refuse(ctx, c, protocol.Request{}, http.StatusBadRequest, ErrMalformedRequestLine, start)
	case line == "":
		if err == nil || errors.Is(err, io.EOF) || ctx.Err() != nil {
			return false, errPeerClosed
		}
		return false, readError(err)
	case err != nil && !errors.Is(err, io.EOF):
		return false, readError(err)
	}

	req, err := protocol.ParseRequestLine(line)
	if err != nil {
		return false, h.refuse(ctx, c, req, http.StatusBadRequest, ErrMalformedRequestLine, start)
	}
	if req.Version != protocol.Version11 {
		return false, h.refuse(ctx, c, req, http.StatusHTTPVersionNotSupported, ErrUnsupportedVersion, start)
	}

	req.Header, err = protocol.ReadHeaders(c.reader, h.maxLine())
	if err != nil {
		return false, readError(err)
	}
	keepAlive := req.Header.KeepAlive()

	var rawQuery string
	req.Path, rawQuery = protocol.SplitTarget(req.Target)
	req.Query = protocol.ParseQuery(rawQuery)

	if h.LogRequests {
		h.logf("conn=%s client=%s method=%s path=%s version=%s headers=%v query=%v keepAlive=%v",
			c.id, c.key, req.Method, req.Path, req.Version, req.Header, req.Query, keepAlive)
	}

	status, body, ok := dispatch(req)
	if !ok {
		return false, h.refuse(ctx, c, req, status, ErrUnsupportedMethod, start)
	}

	if err := h.write(c, protocol.BuildResponse(status, body, keepAlive)); err != nil {
		return false, err
	}
	h.finish(ctx, c, req, true, status, start)
	return keepAlive, nil
}

// refuse responde status sem body com Connection: close e devolve kind.
func (h *Handler) refuse(ctx context.Context, c *connState, req protocol.Request, status int, kind error, start time.Time) error {
	if err := h.write(c, protocol.BuildResponse(status, "", false)); err != nil {
		return err
	}
	req.Path, _ = protocol.SplitTarget(req.Target)
	h.finish(ctx, c, req, true, status, start)
	return kind
}

func (h *Handler) write(c *connState, b []byte) error {
	if h.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(h.WriteTimeout))
	}
	if _, err := c.conn.Write(b); err != nil {
		return writeError(err)
	}
	return nil
}

func (h *Handler) finish(ctx context.Context, c *connState, req protocol.Request, allowed bool, status int, start time.Time) {
	h.observer().Request(string(req.Method), status, time.Since(start))
	if h.Stats == nil {
		return
	}
	err := h.Stats.Record(ctx, domain.StatsEvent{
		Key:     c.key,
		Allowed: allowed,
		Method:  string(req.Method),
		Path:    req.Path,
		Status:  status,
		At:      time.Now(),
	})
	if err != nil {
		h.logf("conn=%s stats error: %v", c.id, err)
	}
}

// closeWriteAndDrain envia FIN e descarta o que o cliente ainda mandar por um
// tempo curto; fechar com dados não lidos gera RST e a resposta pode se perder.
func closeWriteAndDrain(conn net.Conn) {
	cw, ok := conn.(interface{ CloseWrite() error })
	if !ok {
		return
	}
	if err := cw.CloseWrite(); err != nil {
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(lingerTimeout))
	_, _ = io.Copy(io.Discard, io.LimitReader(conn, 64<<10))
}

func (h *Handler) setReadDeadline(ctx context.Context, c *connState, d time.Duration) {
	switch {
	case ctx.Err() != nil:
		_ = c.conn.SetReadDeadline(time.Now())
	case d > 0:
		_ = c.conn.SetReadDeadline(time.Now().Add(d))
	default:
		_ = c.conn.SetReadDeadline(time.Time{})
	}
}

func (h *Handler) maxLine() int {
	if h.MaxLineBytes > 0 {
		return h.MaxLineBytes
	}
	return defaultMaxLineBytes
}

func (h *Handler) keyFn() KeyFunc {
	if h.KeyFn != nil {
		return h.KeyFn
	}
	return RemoteHostKey
}

func (h *Handler) observer() Observer {
	if h.Observer != nil {
		return h.Observer
	}
	return nopObserver{}
}

func (h *Handler) logf(format string, args ...any) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
