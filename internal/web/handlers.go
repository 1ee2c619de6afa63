package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brainysmurf/PowerSchoolIntegrator/internal/layout"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/logging"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/records"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/service"
)

// layoutView is the JSON shape of a layout.
type layoutView struct {
	layout.Info
	Headers []string `json:"headers"`
}

func viewOf(l layout.Layout) layoutView {
	return layoutView{Info: l.Info, Headers: l.Columns()}
}

// exportBody is the JSON request body for exports and previews.
type exportBody struct {
	Records []map[string]interface{} `json:"records"`
	Path    string                   `json:"path,omitempty"`
}

// handleHealth reports liveness and export slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"layouts": layout.Count(),
		"exports": s.service.LimiterStatus(),
	})
}

// handleListLayouts lists registered layouts, optionally for one group.
func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	var list []layout.Layout
	if group := r.URL.Query().Get("group"); group != "" {
		list = layout.ByGroup(group)
	} else {
		list = layout.All()
	}

	views := make([]layoutView, len(list))
	for i, l := range list {
		views[i] = viewOf(l)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"groups":  layout.Groups(),
		"layouts": views,
	})
}

// handleGetLayout returns one layout.
func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	l, err := layout.Lookup(chi.URLParam(r, "layoutKey"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(l))
}

// handleHistory lists recent exports, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 0)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"exports": s.service.History(limit),
	})
}

// handleExport renders records with a layout. The response is the CSV
// text, or the full result as JSON when the client accepts JSON.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "layoutKey")

	recs, path, err := s.readRecords(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.service.Export(r.Context(), service.Request{
		Layout:  key,
		Records: recs,
		Path:    path,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("X-Export-ID", res.ID)
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, res)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", key+".csv"))
	w.WriteHeader(http.StatusOK)
	if _, err := res.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Error("write export", "export_id", res.ID, "error", err)
	}
}

// handlePreview renders records as an HTML table without writing anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "layoutKey")

	recs, _, err := s.readRecords(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	grid, err := s.service.Preview(r.Context(), key, recs)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := previewTable(key, grid).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render preview", "layout", key, "error", err)
	}
}

// readRecords decodes the request body. JSON bodies are an exportBody;
// YAML bodies are a bare list of records with the path in ?path=.
func (s *Server) readRecords(w http.ResponseWriter, r *http.Request) ([]records.Record, string, error) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize)
	defer body.Close()

	if ct := r.Header.Get("Content-Type"); strings.Contains(ct, "yaml") {
		recs, err := records.Decode(body, records.FormatYAML)
		return recs, r.URL.Query().Get("path"), err
	}

	var req exportBody
	dec := json.NewDecoder(records.SkipBOM(body))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("%w: decode request: %w", records.ErrInvalidRecords, err)
	}

	recs := make([]records.Record, 0, len(req.Records))
	for i, m := range req.Records {
		rec, err := records.FromMap(m)
		if err != nil {
			return nil, "", fmt.Errorf("record %d: %w", i+1, err)
		}
		recs = append(recs, rec)
	}

	path := req.Path
	if path == "" {
		path = r.URL.Query().Get("path")
	}
	return recs, path, nil
}

// parseIntParam parses a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
