// formatação numérica para cabeçalhos sem passar por fmt.

package protocol

import (
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

// FormatRetryAfter converte d para segundos inteiros (arredondando para cima),
// com mínimo de 1: um Retry-After de 0 faria o cliente tentar na hora.
func FormatRetryAfter(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return formatInt(secs)
}
