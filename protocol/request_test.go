package protocol

import (
	"errors"
	"testing"
)

func TestParseRequestLine_ThreeTokens(t *testing.T) {
	req, err := ParseRequestLine("GET /search?q=go HTTP/1.1\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Method != MethodGet || req.Target != "/search?q=go" || req.Version != Version11 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestParseRequestLine_WrongTokenCount(t *testing.T) {
	for _, line := range []string{"", "\r\n", "GET /\r\n", "GET / HTTP/1.1 extra\r\n"} {
		if _, err := ParseRequestLine(line); !errors.Is(err, ErrMalformedRequestLine) {
			t.Fatalf("line %q: expected ErrMalformedRequestLine, got %v", line, err)
		}
	}
}

func TestMethod_Supported(t *testing.T) {
	for _, m := range []Method{MethodGet, MethodPost, MethodPut, MethodDelete} {
		if !m.Supported() {
			t.Fatalf("expected %s to be supported", m)
		}
	}
	for _, m := range []Method{"PATCH", "get", "OPTIONS", ""} {
		if m.Supported() {
			t.Fatalf("expected %q to be unsupported", m)
		}
	}
}
