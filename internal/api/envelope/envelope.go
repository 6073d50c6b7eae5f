// Package envelope writes the uniform JSON response envelope used by
// every API endpoint: {"status": "success" | "failed: ..."} plus an
// optional payload key.
package envelope

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

const StatusSuccess = "success"

// Success writes a 200 envelope with no payload.
func Success(w http.ResponseWriter) {
	write(w, http.StatusOK, map[string]any{"status": StatusSuccess})
}

// SuccessWith writes a 200 envelope carrying one payload key, e.g.
// {"status":"success","events":[...]} or {"status":"success","id":"..."}.
func SuccessWith(w http.ResponseWriter, key string, value any) {
	write(w, http.StatusOK, map[string]any{"status": StatusSuccess, key: value})
}

// Failed writes a failure envelope with the underlying cause embedded
// in the status string: {"status":"failed: <err>"}. Server errors are
// logged through the request-scoped logger.
func Failed(w http.ResponseWriter, r *http.Request, status int, err error) {
	logFailure(r, status, err, "")
	write(w, status, map[string]any{"status": fmt.Sprintf("failed: %v", err)})
}

// Explain writes a failure envelope whose status string is a fixed
// human-readable explanation rather than a wrapped error, e.g.
// {"status":"event parameter is required"}.
func Explain(w http.ResponseWriter, r *http.Request, status int, msg string) {
	logFailure(r, status, nil, msg)
	write(w, status, map[string]any{"status": msg})
}

func write(w http.ResponseWriter, status int, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"failed: response encoding error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func logFailure(r *http.Request, status int, err error, msg string) {
	if r == nil || status < 400 {
		return
	}
	logger := zerolog.Ctx(r.Context())
	event := logger.Warn()
	if status >= 500 {
		event = logger.Error()
	}
	if err != nil {
		event = event.Err(err)
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	event.
		Int("status", status).
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Msg(msg)
}
