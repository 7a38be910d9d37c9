package server

import (
	"net/http"

	"mini-httpd/protocol"
)

// dispatch escolhe status e body pelo método. ok=false para métodos fora do
// conjunto atendido (405, sem body).
func dispatch(req protocol.Request) (status int, body string, ok bool) {
	switch req.Method {
	case protocol.MethodGet:
		return http.StatusOK, "Hello! You requested: " + req.Path, true
	case protocol.MethodPost:
		return http.StatusCreated, "Created: " + req.Path, true
	case protocol.MethodPut:
		return http.StatusOK, "Updated: " + req.Path, true
	case protocol.MethodDelete:
		return http.StatusOK, "Deleted: " + req.Path, true
	}
	return http.StatusMethodNotAllowed, "", false
}
