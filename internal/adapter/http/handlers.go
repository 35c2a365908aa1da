package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"

	"github.com/resqlink/early-warning-service/internal/domain"
)

func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	rng, err := domain.ParseDataRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	panel, err := s.dashboard.SensorPanel(r.Context(), rng)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, panel)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	feed, err := s.dashboard.MessageFeed(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, feed)
}

func (s *Server) handleSOS(w http.ResponseWriter, r *http.Request) {
	feed, err := s.dashboard.SOSFeed(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, feed)
}

// handleWeather looks up conditions by ?q=<place> or ?lat=&lon=.
func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if place := strings.TrimSpace(q.Get("q")); place != "" {
		c, err := s.dashboard.WeatherByPlace(r.Context(), place)
		if err != nil {
			writeError(w, r, s.logger, err)
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, c)
		return
	}

	latStr, lonStr := q.Get("lat"), q.Get("lon")
	if latStr == "" || lonStr == "" {
		writeAPIError(w, newAPIError(http.StatusBadRequest, codeMissingParameter, "either q or both lat and lon are required"))
		return
	}
	lat, latErr := strconv.ParseFloat(latStr, 64)
	lon, lonErr := strconv.ParseFloat(lonStr, 64)
	if latErr != nil || lonErr != nil {
		writeAPIError(w, newAPIError(http.StatusBadRequest, codeInvalidFormat, "lat and lon must be decimal degrees"))
		return
	}

	c, err := s.dashboard.Weather(r.Context(), lat, lon)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, c)
}

func (s *Server) handleMonitoredWeather(w http.ResponseWriter, r *http.Request) {
	list, err := s.dashboard.MonitoredWeather(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.dashboard.MapConfig())
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	var coords [3]int
	for i, name := range []string{"z", "x", "y"} {
		n, err := strconv.Atoi(chi.URLParam(r, name))
		if err != nil {
			writeAPIError(w, newAPIError(http.StatusBadRequest, codeInvalidFormat, "tile coordinates must be integers"))
			return
		}
		coords[i] = n
	}

	tile, err := s.dashboard.Tile(r.Context(), chi.URLParam(r, "layer"), coords[0], coords[1], coords[2])
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	w.Header().Set("Content-Type", tile.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(tile.Data)
}

func (s *Server) handlePrediction(w http.ResponseWriter, r *http.Request) {
	p, err := s.predictions.Current(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, p)
}

type alertBody struct {
	UserType string `json:"userType"`
}

func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	var body alertBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&body); err != nil {
		writeAPIError(w, newAPIError(http.StatusBadRequest, codeBadRequest, "invalid request payload"))
		return
	}
	if body.UserType == "" {
		writeAPIError(w, newAPIError(http.StatusBadRequest, codeMissingParameter, "userType is required"))
		return
	}

	res, err := s.dashboard.TriggerAlert(r.Context(), body.UserType)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	s.logger.Info("alert triggered", "target", res.Target, "id", res.ID, "subject", subject(r))
	sharedobs.WriteJSON(w, http.StatusOK, res)
}
