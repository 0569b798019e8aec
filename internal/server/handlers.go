package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"

	"github.com/telemock/telemock/internal/models"
	"github.com/telemock/telemock/internal/store"
	"github.com/telemock/telemock/internal/synth"
)

// handleDevices lists device id/name pairs
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Devices())
}

// handleMetricTree returns the full device/metric tree
func (s *Server) handleMetricTree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Tree())
}

// handleDeviceMetrics lists the metrics of one device. Unknown devices get
// an empty list, not an error.
func (s *Server) handleDeviceMetrics(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")
	writeJSON(w, http.StatusOK, s.catalog.Metrics(deviceID))
}

type collectRequest struct {
	Targets []string `json:"targets"`
}

type collectResponse struct {
	SuccessCount int                       `json:"success_count"`
	FailedCount  int                       `json:"failed_count"`
	Details      []synth.AcquisitionResult `json:"details"`
	Timestamp    string                    `json:"timestamp"`
}

// handleCollect simulates an on-demand acquisition pass
func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	var req collectRequest
	decodeBody(r, &req)

	details := synth.Acquire(req.Targets)
	success, failed := synth.SummarizeAcquisition(details)

	writeJSON(w, http.StatusOK, collectResponse{
		SuccessCount: success,
		FailedCount:  failed,
		Details:      details,
		Timestamp:    s.now().UTC().Format(time.RFC3339),
	})
}

type dataRequest struct {
	IDs   []string `json:"ids"`
	Start int64    `json:"start"`
	End   int64    `json:"end"`
}

type dataResponse struct {
	Data map[string][]models.SeriesPoint `json:"data"`
}

// handleData synthesizes time-series samples for the requested metric ids
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	var req dataRequest
	decodeBody(r, &req)

	nowMs := s.now().UnixMilli()
	start := req.Start
	if start == 0 {
		start = nowMs - s.seriesWindow.Milliseconds()
	}
	end := req.End
	if end == 0 {
		end = nowMs
	}

	writeJSON(w, http.StatusOK, dataResponse{Data: synth.Series(req.IDs, start, end)})
}

// handleListEvents returns the merged stored+synthesized event list
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	nowMs := s.now().UnixMilli()
	start := parseMsParam(q.Get("start"), nowMs-s.eventsWindow.Milliseconds())
	end := parseMsParam(q.Get("end"), nowMs)
	refIDs := parseRefIDs(q)

	merged, err := s.events.Query(r.Context(), start, end, refIDs)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, merged)
}

type createEventRequest struct {
	Title       string  `json:"title"`
	RefID       string  `json:"ref_id"`
	Category    string  `json:"category"`
	Description *string `json:"description"`
	EventTime   string  `json:"event_time"`
}

// handleCreateEvent stores a manually created event
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	decodeBody(r, &req)

	event, err := s.store.Create(r.Context(), store.CreateEvent{
		Title:       req.Title,
		RefID:       req.RefID,
		Category:    req.Category,
		Description: req.Description,
		EventTime:   req.EventTime,
	})
	if errors.Is(err, store.ErrValidation) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title and ref_id are required"})
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// handleUpdateEvent applies a partial update, inserting under the given id
// when no stored event matches. Replaying a synthesized event's negative id
// through this endpoint is how clients override generated events.
func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event id"})
		return
	}

	var patch models.EventPatch
	decodeBody(r, &patch)

	event, err := s.store.UpsertByID(r.Context(), id, patch)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

type reportChart struct {
	Metrics []string `json:"metrics"`
}

type reportRequest struct {
	Start    int64         `json:"start"`
	End      int64         `json:"end"`
	DeviceID string        `json:"deviceId"`
	Charts   []reportChart `json:"charts"`
}

type reportResponse struct {
	Summary string `json:"summary"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
	Charts  int    `json:"charts"`
	Metrics int    `json:"metrics"`
	Events  int    `json:"events"`
}

// handleReport summarizes the events a report over the given charts would
// cover. With a deviceId the device is the sole filter; otherwise filters
// are derived from the first two dot segments of every chart metric id.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	decodeBody(r, &req)

	start, end := req.Start, req.End
	if start == 0 || end == 0 || start >= end {
		nowMs := s.now().UnixMilli()
		if start == 0 {
			start = nowMs - s.seriesWindow.Milliseconds()
		}
		if end == 0 {
			end = nowMs
		}
	}

	deviceID := strings.TrimSpace(req.DeviceID)
	metricTotal := 0
	var refIDs []string
	if deviceID != "" {
		refIDs = []string{deviceID}
	} else {
		seen := make(map[string]bool)
		for _, c := range req.Charts {
			metricTotal += len(c.Metrics)
			for _, m := range c.Metrics {
				parts := strings.Split(m, ".")
				if len(parts) >= 2 {
					seen[parts[0]+"."+parts[1]] = true
				}
			}
		}
		for ref := range seen {
			refIDs = append(refIDs, ref)
		}
		sort.Strings(refIDs)
	}

	merged, err := s.events.Query(r.Context(), start, end, refIDs)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	if metricTotal == 0 {
		for _, c := range req.Charts {
			metricTotal += len(c.Metrics)
		}
	}

	writeJSON(w, http.StatusOK, reportResponse{
		Summary: fmt.Sprintf("report generated: %d charts, %d metrics, %d events", len(req.Charts), metricTotal, len(merged)),
		Start:   start,
		End:     end,
		Charts:  len(req.Charts),
		Metrics: metricTotal,
		Events:  len(merged),
	})
}

// decodeBody decodes a JSON request body, leaving dst at its zero value on
// malformed input. Handlers substitute defaults instead of rejecting bad
// bodies, matching the lenient behavior clients rely on.
func decodeBody(r *http.Request, dst any) {
	_ = json.NewDecoder(r.Body).Decode(dst)
}

// parseMsParam parses a millisecond query parameter. Values arrive as
// floats from some clients, so parse as float and truncate; anything
// malformed falls back to the default.
func parseMsParam(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return int64(f)
}

// parseRefIDs collects reference filters from the repeatable refIds/refId
// query parameters. Each value may itself be comma-separated. Tokens are
// trimmed and deduplicated preserving first-seen order.
func parseRefIDs(q url.Values) []string {
	var tokens []string
	for _, key := range []string{"refIds", "refId"} {
		for _, raw := range q[key] {
			for _, part := range strings.Split(raw, ",") {
				if part != "" {
					tokens = append(tokens, part)
				}
			}
		}
	}

	seen := make(map[string]bool)
	var out []string
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
