package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"hacktown/internal/agenda"
	appLog "hacktown/internal/log"
	"hacktown/internal/model"
	"hacktown/internal/session"
)

// maxImportBytes bounds an uploaded agenda spreadsheet.
const maxImportBytes = 10 << 20

type agendaResponse struct {
	Events []eventDTO `json:"events"`
	Count  int        `json:"count"`
}

type selectionRequest struct {
	Keys []string `json:"keys"`
}

type selectionResponse struct {
	Changed int        `json:"changed"`
	Unknown []string   `json:"unknown,omitempty"`
	Agenda  []eventDTO `json:"agenda"`
}

func (s *Server) handleAgenda(w http.ResponseWriter, _ *http.Request, sess *session.Session) {
	events := sess.Agenda.Materialize()
	writeJSON(w, http.StatusOK, agendaResponse{Events: toDTOs(events), Count: len(events)})
}

func decodeSelection(r *http.Request) (selectionRequest, error) {
	var req selectionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	return req, nil
}

// handleAgendaAdd adds the selected events of the schedule to the caller's
// agenda.
//
// POST /api/agenda/add {"keys": ["<event key>", ...]}
func (s *Server) handleAgendaAdd(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	req, err := decodeSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid selection body")
		return
	}
	if len(req.Keys) == 0 {
		writeJSON(w, http.StatusOK, messageResponse{Message: agenda.NoSelectionMessage})
		return
	}

	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}

	var (
		picked  []model.Event
		unknown []string
	)
	for _, k := range req.Keys {
		if ev, found := ds.Lookup(k); found {
			picked = append(picked, ev)
		} else {
			unknown = append(unknown, k)
		}
	}

	if err := sess.Agenda.Add(picked...); errors.Is(err, agenda.ErrNoSelection) {
		writeJSON(w, http.StatusOK, messageResponse{Message: agenda.NoSelectionMessage})
		return
	}

	appLog.Debug("agenda add", "session", sess.ID, "added", len(picked), "unknown", len(unknown))
	writeJSON(w, http.StatusOK, selectionResponse{
		Changed: len(picked),
		Unknown: unknown,
		Agenda:  toDTOs(sess.Agenda.Materialize()),
	})
}

// handleAgendaRemove drops every agenda entry matching the given keys.
//
// POST /api/agenda/remove {"keys": ["<event key>", ...]}
func (s *Server) handleAgendaRemove(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	req, err := decodeSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid selection body")
		return
	}

	n, err := sess.Agenda.RemoveKeys(req.Keys...)
	if errors.Is(err, agenda.ErrNoSelection) {
		writeJSON(w, http.StatusOK, messageResponse{Message: agenda.NoSelectionMessage})
		return
	}

	appLog.Debug("agenda remove", "session", sess.ID, "removed", n)
	writeJSON(w, http.StatusOK, selectionResponse{
		Changed: n,
		Agenda:  toDTOs(sess.Agenda.Materialize()),
	})
}

func (s *Server) handleAgendaExport(w http.ResponseWriter, _ *http.Request, sess *session.Session) {
	blob, err := sess.Agenda.Export()
	if err != nil {
		appLog.Error("agenda export failed", err, "session", sess.ID)
		writeError(w, http.StatusInternalServerError, "failed to export agenda")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="minha_programacao.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

// handleAgendaImport merges an agenda spreadsheet into the caller's agenda.
// The file is sent either as multipart field "file" or as the raw body.
func (s *Server) handleAgendaImport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var (
		blob []byte
		err  error
	)
	if file, _, ferr := r.FormFile("file"); ferr == nil {
		defer file.Close()
		blob, err = io.ReadAll(file)
	} else if errors.Is(ferr, http.ErrNotMultipart) {
		blob, err = io.ReadAll(r.Body)
	} else {
		err = ferr
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload: "+err.Error())
		return
	}

	n, err := sess.Agenda.Import(blob)
	if err != nil {
		var ife *agenda.ImportFormatError
		if errors.As(err, &ife) {
			writeError(w, http.StatusBadRequest, ife.Error())
			return
		}
		appLog.Error("agenda import failed", err, "session", sess.ID)
		writeError(w, http.StatusInternalServerError, "failed to import agenda")
		return
	}

	appLog.Info("agenda imported", "session", sess.ID, "rows", n)
	writeJSON(w, http.StatusOK, selectionResponse{
		Changed: n,
		Agenda:  toDTOs(sess.Agenda.Materialize()),
	})
}

// handleAgendaICS serves the agenda as an iCalendar feed, using the
// configured event_dates to place day labels on the calendar.
func (s *Server) handleAgendaICS(w http.ResponseWriter, _ *http.Request, sess *session.Session) {
	if len(s.cfg.EventDates) == 0 {
		writeError(w, http.StatusNotFound, "calendar export needs event_dates in the configuration")
		return
	}

	out, _, err := agenda.ExportICS(sess.Agenda.Materialize(), agenda.CalendarOptions{
		Dates:    s.cfg.EventDates,
		Location: s.loc,
		Name:     agenda.SheetName,
	})
	if err != nil {
		appLog.Error("agenda calendar export failed", err, "session", sess.ID)
		writeError(w, http.StatusInternalServerError, "failed to export calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="minha_programacao.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}
