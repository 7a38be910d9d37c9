package protocol

import "strings"

type Query map[string]string

// SplitTarget separa o alvo no primeiro '?'. Sem '?', rawQuery é vazio.
func SplitTarget(target string) (path, rawQuery string) {
	path, rawQuery, _ = strings.Cut(target, "?")
	return path, rawQuery
}

// ParseQuery quebra "a=1&b=2" em pares. Pares sem '=' são descartados e os
// valores não são decodificados (ficam como vieram na linha).
func ParseQuery(raw string) Query {
	q := make(Query)
	if raw == "" {
		return q
	}
	for _, pair := range strings.Split(raw, "&") {
		if k, v, ok := strings.Cut(pair, "="); ok {
			q[k] = v
		}
	}
	return q
}
