package server

import (
	"net"
	"strings"

	"mini-httpd/ratelimit/domain"
)

// KeyFunc deriva a identidade do cliente a partir do endereço remoto.
type KeyFunc func(addr net.Addr) domain.Key

// RemoteHostKey usa o host do endereço remoto (sem a porta), de modo que várias
// conexões do mesmo IP dividem a mesma cota.
func RemoteHostKey(addr net.Addr) domain.Key {
	if addr == nil {
		return "unknown"
	}
	raw := strings.TrimSpace(addr.String())

	host, _, err := net.SplitHostPort(raw)
	if err == nil && host != "" {
		return domain.Key(host)
	}
	if raw != "" {
		return domain.Key(raw)
	}
	return "unknown"
}
