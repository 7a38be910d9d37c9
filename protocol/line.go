package protocol

import (
	"bufio"
	"errors"
	"io"
)

// ErrLineTooLong indica uma linha maior que o limite configurado.
// O restante da linha já foi consumido do reader quando o erro é retornado.
var ErrLineTooLong = errors.New("protocol: line too long")

// ReadLine lê até (e incluindo) o próximo '\n'.
//
// Com max > 0, linhas maiores que max bytes são descartadas e ErrLineTooLong é
// retornado. No fim do stream a linha parcial é devolvida junto com io.EOF.
func ReadLine(r *bufio.Reader, max int) (string, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		if max > 0 && len(buf)+len(frag) > max {
			if errors.Is(err, bufio.ErrBufferFull) {
				err = discardLine(r)
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return "", err
			}
			return "", ErrLineTooLong
		}
		buf = append(buf, frag...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return string(buf), err
	}
}

func discardLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}
