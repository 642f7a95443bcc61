package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sctg-development/photoacoustic-core/internal/action"
	apimw "github.com/sctg-development/photoacoustic-core/internal/api/middleware"
	"github.com/sctg-development/photoacoustic-core/internal/config"
	"github.com/sctg-development/photoacoustic-core/internal/graph"
	"github.com/sctg-development/photoacoustic-core/internal/oauth"
	"github.com/sctg-development/photoacoustic-core/internal/thermal"
)

// RegulatorSet names the thermal regulators the status/setpoint
// endpoints can address, keyed by the id each Regulator was
// constructed with. It is the same fleet metrics scrapes.
type RegulatorSet = thermal.Fleet

// Server holds HTTP handler dependencies and the chi router for both
// the data-plane API (graph telemetry, thermal control, action
// history) and the mounted OAuth2/OIDC authorization server.
type Server struct {
	router *chi.Mux

	cfg         *config.Config
	shared      *graph.SharedData
	graphs      map[string]*graph.Graph
	regulators  RegulatorSet
	history     *action.History
	oauthServer *oauth.Server
}

// NewServer creates the HTTP handler with all routes mounted.
func NewServer(cfg *config.Config, shared *graph.SharedData, graphs map[string]*graph.Graph, regulators RegulatorSet, history *action.History, oauthServer *oauth.Server) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		cfg:         cfg,
		shared:      shared,
		graphs:      graphs,
		regulators:  regulators,
		history:     history,
		oauthServer: oauthServer,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(apimw.CORS(apimw.ParseCORSOrigins(s.cfg.CORSOrigins)))
	r.Use(apimw.StructuredLogger)
	r.Use(apimw.Recoverer)
	r.Use(apimw.SecurityHeaders(s.cfg.TLSCert != ""))

	// OAuth2/OIDC authorization server — discovery, login/consent,
	// token issuance, userinfo and introspection, all mounted at the
	// paths RFC 6749/8414 expect (/.well-known/... at the root, not
	// nested under /oauth).
	s.oauthServer.Routes(r)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(RequireBearer(s.oauthServer.Issuer))

			r.Get("/measurements/latest", s.handleLatestMeasurement)
			r.Get("/graphs/{id}/telemetry", s.handleGraphTelemetry)

			r.Route("/thermal/{id}", func(r chi.Router) {
				r.Get("/status", s.handleThermalStatus)
				r.Group(func(r chi.Router) {
					r.Use(RequirePermission("control"))
					r.Put("/setpoint", s.handleThermalSetpoint)
				})
			})

			r.Get("/actions/history", s.handleActionHistory)
		})
	})

	slog.Info("api routes mounted")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleLatestMeasurement(w http.ResponseWriter, r *http.Request) {
	peak, hasPeak := s.shared.Peak()
	concentration, hasConcentration := s.shared.Concentration()

	resp := map[string]any{
		"has_peak":          hasPeak,
		"has_concentration": hasConcentration,
	}
	if hasPeak {
		resp["peak"] = map[string]any{
			"frequency_hz": peak.FrequencyHz,
			"amplitude":    peak.Amplitude,
			"frame_no":     peak.FrameNo,
			"at":           peak.At,
		}
	}
	if hasConcentration {
		resp["concentration"] = map[string]any{
			"ppm":      concentration.PPM,
			"frame_no": concentration.FrameNo,
			"at":       concentration.At,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGraphTelemetry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g, ok := s.graphs[id]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown graph id")
		return
	}
	writeJSON(w, http.StatusOK, g.NodeTelemetry())
}

func (s *Server) handleThermalStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	reg, ok := s.regulators[id]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown regulator id")
		return
	}
	status := reg.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"id":               status.ID,
		"setpoint":         status.Setpoint,
		"last_temperature": status.LastTemperature,
		"faulted":          status.Faulted,
		"fault_reason":     status.FaultReason,
	})
}

func (s *Server) handleThermalSetpoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	reg, ok := s.regulators[id]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown regulator id")
		return
	}

	var req struct {
		Celsius float64 `json:"celsius"`
	}
	if msg := readJSON(r, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	reg.SetSetpoint(req.Celsius)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "setpoint": reg.Setpoint()})
}

func (s *Server) handleActionHistory(w http.ResponseWriter, r *http.Request) {
	pagination, errMsg := parsePagination(r)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	entries := s.history.Recent(pagination.Limit)
	writeJSON(w, http.StatusOK, PaginatedResponse{
		Items:  entries,
		Total:  len(entries),
		Limit:  pagination.Limit,
		Offset: pagination.Offset,
	})
}
