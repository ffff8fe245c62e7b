package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Fantasim/dropmint/internal/config"
	"github.com/Fantasim/dropmint/internal/models"
)

// HealthSource reports endpoint circuit state for one chain.
type HealthSource interface {
	Chain() int64
	Health() []models.EndpointHealth
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Version   string                  `json:"version"`
	ChainID   int64                   `json:"chainId,omitempty"`
	ChainName string                  `json:"chainName,omitempty"`
	Endpoints []models.EndpointHealth `json:"endpoints"`
}

// HealthHandler returns a handler for GET /api/health. Status is "degraded"
// when no endpoint has a closed circuit. source may be nil when the server
// runs without an RPC connection.
func HealthHandler(source HealthSource, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("health check requested", "remoteAddr", r.RemoteAddr)

		resp := HealthResponse{
			Status:    "ok",
			Version:   version,
			Endpoints: []models.EndpointHealth{},
		}

		if source != nil {
			resp.ChainID = source.Chain()
			if info, ok := config.LookupChain(resp.ChainID); ok {
				resp.ChainName = info.Name
			}
			resp.Endpoints = source.Health()

			healthy := 0
			for _, e := range resp.Endpoints {
				if e.CircuitState == config.CircuitClosed {
					healthy++
				}
			}
			if healthy == 0 {
				resp.Status = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
