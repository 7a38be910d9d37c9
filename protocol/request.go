package protocol

import (
	"errors"
	"strings"
)

// Version11 é a única versão aceita na linha de requisição.
const Version11 = "HTTP/1.1"

type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
)

// Supported informa se o método faz parte do conjunto atendido pelo servidor.
func (m Method) Supported() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return true
	}
	return false
}

var ErrMalformedRequestLine = errors.New("protocol: malformed request line")

// Request é a requisição de uma iteração do loop da conexão.
//
// Target guarda o alvo como veio na linha (com query); Path é a parte antes do '?'.
type Request struct {
	Method  Method
	Target  string
	Path    string
	Version string
	Header  Header
	Query   Query
}

// ParseRequestLine separa a linha em exatamente três tokens (método, alvo, versão).
// Qualquer outra contagem é erro de framing.
func ParseRequestLine(line string) (Request, error) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return Request{}, ErrMalformedRequestLine
	}
	return Request{
		Method:  Method(parts[0]),
		Target:  parts[1],
		Path:    parts[1],
		Version: parts[2],
	}, nil
}
