// Package healthcheck serves the liveness endpoint that deployment platforms
// probe to decide whether the process should be restarted.
package healthcheck

import (
	"encoding/json"
	"net/http"
)

func New() *Service {
	return &Service{}
}

type Service struct{}

func (s Service) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealthCheck)
}

func (s Service) handleHealthCheck(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(writer).Encode(map[string]string{"status": "up"})
}
