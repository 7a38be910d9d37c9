package protocol

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Header mapeia nome -> valor. As chaves são sensíveis a maiúsculas/minúsculas;
// em nomes repetidos vale o último.
type Header map[string]string

// KeepAlive é true quando "Connection" (chave exata) vale keep-alive, sem
// diferenciar maiúsculas no valor.
func (h Header) KeepAlive() bool {
	return strings.ToLower(h["Connection"]) == "keep-alive"
}

// ReadHeaders consome linhas "Nome: Valor" até uma linha em branco ou o fim do stream.
//
// Linhas sem o separador ": " e linhas acima de maxLine são ignoradas.
// Só retorna erro para falhas de leitura que não sejam io.EOF; nesse caso os
// cabeçalhos lidos até ali acompanham o erro.
func ReadHeaders(r *bufio.Reader, maxLine int) (Header, error) {
	h := make(Header)
	for {
		line, err := ReadLine(r, maxLine)
		if errors.Is(err, ErrLineTooLong) {
			continue
		}
		if line == "\r\n" || line == "\n" {
			return h, nil
		}
		if name, value, ok := strings.Cut(strings.TrimSpace(line), ": "); ok {
			h[name] = value
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return h, nil
			}
			return h, err
		}
	}
}
