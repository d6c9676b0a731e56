package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"
)

type badRequestError struct{ err error }

func (e badRequestError) Error() string { return "malformed request body: " + e.err.Error() }

func (e badRequestError) Unwrap() error { return e.err }

func isDatastar(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("Datastar-Request")), "true")
}

// respond writes v as JSON, or as a Datastar signal patch when the client is Datastar.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any) {
	if isDatastar(r) {
		sse := datastar.NewSSE(w, r)
		if err := sse.MarshalAndPatchSignals(v); err != nil {
			s.log.WithError(err).WithField("action", "patch_signals").Warn("could not send signals")
		}
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
