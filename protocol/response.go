package protocol

import (
	"net/http"
	"strings"
)

// HeaderField é um cabeçalho extra anexado à resposta (ex.: Retry-After).
type HeaderField struct {
	Name  string
	Value string
}

// StatusLine devolve "<código> <texto>", ex.: "201 Created".
func StatusLine(code int) string {
	return formatInt(code) + " " + http.StatusText(code)
}

// BuildResponse monta a resposta completa. Content-Length é sempre o tamanho
// exato do body em bytes e o body vem logo após a linha em branco.
func BuildResponse(code int, body string, keepAlive bool, extra ...HeaderField) []byte {
	connection := "close"
	if keepAlive {
		connection = "keep-alive"
	}

	var b strings.Builder
	b.Grow(128 + len(body))
	b.WriteString(Version11 + " " + StatusLine(code) + "\r\n")
	b.WriteString("Content-Length: " + formatInt(len(body)) + "\r\n")
	b.WriteString("Content-Type: text/plain\r\n")
	b.WriteString("Connection: " + connection + "\r\n")
	for _, f := range extra {
		b.WriteString(f.Name + ": " + f.Value + "\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
