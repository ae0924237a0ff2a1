// Package httpapi is the producer-facing boundary: webhook ingestion
// endpoints plus the health endpoint. All payload validation happens here;
// the core is never called with malformed data.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/zslim1101/location-relay/internal/health"
	"github.com/zslim1101/location-relay/internal/models"
	"github.com/zslim1101/location-relay/pkg/gps"
)

// Ingestor is the slice of the core the HTTP layer needs.
type Ingestor interface {
	Ingest(entityID string, event models.LocationEvent) error
}

// locationWebhook is the JSON body of POST /webhook/location.
type locationWebhook struct {
	EntityID  string  `json:"entity_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

// nmeaWebhook is the JSON body of POST /webhook/nmea.
type nmeaWebhook struct {
	EntityID string `json:"entity_id"`
	Sentence string `json:"sentence"`
}

// Server handles the producer webhooks and the health endpoint.
type Server struct {
	ingestor Ingestor
	monitor  *health.Monitor
	logger   zerolog.Logger
}

// NewServer creates the HTTP API over the given core.
func NewServer(ingestor Ingestor, monitor *health.Monitor, logger zerolog.Logger) *Server {
	return &Server{ingestor: ingestor, monitor: monitor, logger: logger}
}

// Register installs the handlers on the mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/webhook/location", s.handleLocationWebhook)
	mux.HandleFunc("/webhook/nmea", s.handleNMEAWebhook)
	mux.HandleFunc("/healthz", s.handleHealth)
}

func (s *Server) handleLocationWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var body locationWebhook
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if body.EntityID == "" {
		writeError(w, http.StatusBadRequest, "entity_id is required")
		return
	}
	event, err := models.NewLocationEvent(body.Latitude, body.Longitude, body.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.ingest(w, body.EntityID, event)
}

func (s *Server) handleNMEAWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var body nmeaWebhook
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if body.EntityID == "" {
		writeError(w, http.StatusBadRequest, "entity_id is required")
		return
	}
	event, err := gps.DecodeRMC(body.Sentence)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.ingest(w, body.EntityID, event)
}

func (s *Server) ingest(w http.ResponseWriter, entityID string, event models.LocationEvent) {
	if err := s.ingestor.Ingest(entityID, event); err != nil {
		s.logger.Error().Err(err).Str("entity_id", entityID).Msg("Ingest failed")
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	writeJSON(w, http.StatusOK, s.monitor.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
