package server

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// Tipos de término de uma conexão. Use errors.Is para classificar o erro
// devolvido por Handler.ServeConn.
var (
	ErrTransportRead    = errors.New("transport read error")
	ErrTransportWrite   = errors.New("transport write error")
	ErrTransportTimeout = errors.New("transport timeout")

	ErrMalformedRequestLine = errors.New("malformed request line")
	ErrUnsupportedVersion   = errors.New("unsupported http version")
	ErrUnsupportedMethod    = errors.New("unsupported method")
	ErrRateLimited          = errors.New("rate limited")

	ErrServerClosed = errors.New("server closed")
)

// errPeerClosed marca o fim normal: o cliente fechou entre requisições.
var errPeerClosed = errors.New("peer closed")

// Timeout de leitura também é erro de leitura (mesmo caminho de tratamento).
func readError(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %w: %w", ErrTransportRead, ErrTransportTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrTransportRead, err)
}

func writeError(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %w: %w", ErrTransportWrite, ErrTransportTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrTransportWrite, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func IsTimeout(err error) bool { return errors.Is(err, ErrTransportTimeout) }

// Reason resume o erro final de uma conexão num rótulo curto (logs e métricas).
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrMalformedRequestLine):
		return "bad_request"
	case errors.Is(err, ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, ErrUnsupportedMethod):
		return "unsupported_method"
	case errors.Is(err, ErrTransportTimeout):
		return "timeout"
	case errors.Is(err, ErrTransportRead):
		return "read_error"
	case errors.Is(err, ErrTransportWrite):
		return "write_error"
	}
	return "error"
}
