package web

import (
	"errors"
	"net/http"
	"time"

	appLog "hacktown/internal/log"
	"hacktown/internal/model"
	"hacktown/internal/schedule"
	"hacktown/internal/source"
)

// eventDTO is an event plus its identity key, which clients echo back when
// selecting rows.
type eventDTO struct {
	Key string `json:"key"`
	model.Event
}

func toDTOs(events []model.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, eventDTO{Key: e.Key(), Event: e})
	}
	return out
}

type eventsResponse struct {
	Events []eventDTO     `json:"events"`
	Page   int            `json:"page"`
	Pages  int            `json:"pages"`
	Size   int            `json:"size"`
	Total  int            `json:"total"`
	Query  schedule.Query `json:"query"`
}

// dataset returns the cached schedule, writing the error response itself when
// it cannot be loaded.
func (s *Server) dataset(w http.ResponseWriter, r *http.Request) (*schedule.Dataset, bool) {
	ds, err := s.cache.Get(r.Context())
	if err == nil {
		return ds, true
	}

	appLog.Error("schedule unavailable", err, "path", r.URL.Path)

	var fe *source.FetchError
	var pe *schedule.ParseError
	switch {
	case errors.As(err, &fe):
		writeError(w, http.StatusBadGateway, "could not fetch the schedule: "+err.Error())
	case errors.As(err, &pe):
		writeError(w, http.StatusBadGateway, "unexpected schedule layout: "+err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "schedule unavailable")
	}
	return nil, false
}

func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"days": ds.DistinctDays()})
}

// handleTimes lists start times for a day.
//
// GET /api/times?day=Sexta
func (s *Server) handleTimes(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"times": ds.DistinctTimes(r.URL.Query().Get("day"))})
}

// handleEvents returns one page of filtered events.
//
// GET /api/events?day=Sexta&time=09h00&q=ia&page=1&size=10
//   - day, time: selector values; empty or the all label disables the filter
//   - q:         keyword over title, description, venue and category
//   - page:      1-based (default 1)
//   - size:      page size (default from config)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	query := schedule.Query{
		Day:     q.Get("day"),
		Time:    q.Get("time"),
		Keyword: q.Get("q"),
	}
	page := schedule.Page(ds.Filter(query),
		parseIntDefault(q.Get("page"), 1),
		parseIntDefault(q.Get("size"), s.cfg.PageSize),
	)

	appLog.Debug("api events request", "day", query.Day, "time", query.Time, "q", query.Keyword, "total", page.Total)

	writeJSON(w, http.StatusOK, eventsResponse{
		Events: toDTOs(page.Events),
		Page:   page.Page,
		Pages:  page.Pages,
		Size:   page.Size,
		Total:  page.Total,
		Query:  query,
	})
}

// handleEventDetail backs the event detail panel.
func (s *Server) handleEventDetail(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	ev, found := ds.Lookup(r.PathValue("key"))
	if !found {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, eventDTO{Key: ev.Key(), Event: ev})
}

// handleRefresh drops the cached schedule and loads it again.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.cache.Invalidate()
	appLog.Info("schedule cache invalidated", "trigger", "api")

	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events":    ds.Len(),
		"loaded_at": s.cache.LoadedAt().Format(time.RFC3339),
	})
}
