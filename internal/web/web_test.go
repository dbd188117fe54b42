package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hacktown/internal/agenda"
	"hacktown/internal/config"
	"hacktown/internal/model"
	"hacktown/internal/schedule"
	"hacktown/internal/session"
	"hacktown/internal/source"
)

var sampleEvents = []model.Event{
	{Title: "AI Panel", Description: "Machine learning", Venue: "Palco", Category: "Palestra", Day: "Sexta", Start: "09h00", End: "10h00"},
	{Title: "Food Tour", Description: "Gastronomia", Venue: "Centro", Category: "Passeio", Day: "Sábado", Start: "16h"},
	{Title: "Abertura", Description: "Boas-vindas", Venue: "Praça", Category: "Show", Day: "Quinta", Start: "16h"},
}

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	loads  *int
}

func newTestEnv(t *testing.T, cfg *config.Config, loader schedule.Loader) testEnv {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	loads := 0
	if loader == nil {
		loader = func(context.Context) (*schedule.Dataset, error) {
			loads++
			return schedule.NewDataset(sampleEvents, cfg.Days, cfg.AllLabel), nil
		}
	}
	s := NewServer(cfg, schedule.NewCache(loader), session.NewManager(cfg.Days, time.Hour), false)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return testEnv{srv: srv, client: &http.Client{Jar: jar}, loads: &loads}
}

func (e testEnv) get(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (e testEnv) postKeys(t *testing.T, path string, keys []string, out any) *http.Response {
	t.Helper()
	body, err := json.Marshal(selectionRequest{Keys: keys})
	require.NoError(t, err)
	resp, err := e.client.Post(e.srv.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	resp := env.get(t, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDaysAndTimes(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	var days map[string][]string
	env.get(t, "/api/days", &days)
	assert.Equal(t, []string{"Todos", "Quinta", "Sexta", "Sábado"}, days["days"])

	var times map[string][]string
	env.get(t, "/api/times?day=Sexta", &times)
	assert.Equal(t, []string{"Todos", "09h00"}, times["times"])

	assert.Equal(t, 1, *env.loads, "dataset is fetched once and cached")
}

func TestEventsFilterAndPaging(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	var all eventsResponse
	env.get(t, "/api/events", &all)
	assert.Equal(t, 3, all.Total)
	require.Len(t, all.Events, 3)
	assert.Equal(t, sampleEvents[0].Key(), all.Events[0].Key)

	var sexta eventsResponse
	env.get(t, "/api/events?day=Sexta&time=Todos", &sexta)
	require.Len(t, sexta.Events, 1)
	assert.Equal(t, "AI Panel", sexta.Events[0].Title)

	var kw eventsResponse
	env.get(t, "/api/events?q=GASTRONOMIA", &kw)
	require.Len(t, kw.Events, 1)
	assert.Equal(t, "Food Tour", kw.Events[0].Title)

	var paged eventsResponse
	env.get(t, "/api/events?size=2&page=2", &paged)
	assert.Equal(t, 2, paged.Pages)
	require.Len(t, paged.Events, 1)
	assert.Equal(t, "Abertura", paged.Events[0].Title)

	var huge eventsResponse
	resp := env.get(t, "/api/events?size=9223372036854775807&page=9223372036854775807", &huge)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, schedule.MaxPageSize, huge.Size)
	assert.Equal(t, 1, huge.Page)
	assert.Len(t, huge.Events, 3)
}

func TestEventDetail(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	var ev eventDTO
	resp := env.get(t, "/api/events/"+sampleEvents[1].Key(), &ev)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sampleEvents[1], ev.Event)

	resp = env.get(t, "/api/events/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAgendaAddRemoveFlow(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	food, ai := sampleEvents[1].Key(), sampleEvents[0].Key()

	var added selectionResponse
	env.postKeys(t, "/api/agenda/add", []string{food, ai, food, "bogus"}, &added)
	assert.Equal(t, 3, added.Changed)
	assert.Equal(t, []string{"bogus"}, added.Unknown)
	require.Len(t, added.Agenda, 2)
	assert.Equal(t, "AI Panel", added.Agenda[0].Title, "Sexta sorts before Sábado")

	var removed selectionResponse
	env.postKeys(t, "/api/agenda/remove", []string{food}, &removed)
	assert.Equal(t, 2, removed.Changed, "all copies are removed")
	require.Len(t, removed.Agenda, 1)

	var got agendaResponse
	env.get(t, "/api/agenda", &got)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, "AI Panel", got.Events[0].Title)
}

func TestAgendaEmptySelectionIsAMessage(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	for _, path := range []string{"/api/agenda/add", "/api/agenda/remove"} {
		var msg messageResponse
		resp := env.postKeys(t, path, nil, &msg)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, agenda.NoSelectionMessage, msg.Message, path)
	}

	var msg messageResponse
	env.postKeys(t, "/api/agenda/add", []string{"unknown"}, &msg)
	assert.Equal(t, agenda.NoSelectionMessage, msg.Message)
}

func TestAgendaIsPerSession(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.postKeys(t, "/api/agenda/add", []string{sampleEvents[0].Key()}, nil)

	other := newTestEnvClient(t)
	resp, err := other.Get(env.srv.URL + "/api/agenda")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got agendaResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Zero(t, got.Count)
}

func newTestEnvClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func TestAgendaExportImportRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.postKeys(t, "/api/agenda/add", []string{sampleEvents[1].Key(), sampleEvents[2].Key()}, nil)

	resp := env.get(t, "/api/agenda/export.xlsx", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "minha_programacao.xlsx")
	blob, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	// A fresh session imports the file through a multipart upload.
	fresh := newTestEnvClient(t)
	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	fw, err := mw.CreateFormFile("file", "minha_programacao.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(blob)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	up, err := fresh.Post(env.srv.URL+"/api/agenda/import", mw.FormDataContentType(), &form)
	require.NoError(t, err)
	defer up.Body.Close()
	require.Equal(t, http.StatusOK, up.StatusCode)

	var imported selectionResponse
	require.NoError(t, json.NewDecoder(up.Body).Decode(&imported))
	assert.Equal(t, 2, imported.Changed)
	require.Len(t, imported.Agenda, 2)
	assert.Equal(t, sampleEvents[2], imported.Agenda[0].Event)
	assert.Equal(t, sampleEvents[1], imported.Agenda[1].Event)
}

func TestAgendaImportRejectsBadFileWithoutChangingAgenda(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.postKeys(t, "/api/agenda/add", []string{sampleEvents[0].Key()}, nil)

	resp, err := env.client.Post(env.srv.URL+"/api/agenda/import", "application/octet-stream", strings.NewReader("not xlsx"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var got agendaResponse
	env.get(t, "/api/agenda", &got)
	assert.Equal(t, 1, got.Count)
}

func TestAgendaICS(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	resp := env.get(t, "/api/agenda.ics", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no event dates configured")

	cfg := config.DefaultConfig()
	cfg.EventDates = map[string]string{"Sexta": "2022-09-09"}
	env = newTestEnv(t, cfg, nil)
	env.postKeys(t, "/api/agenda/add", []string{sampleEvents[0].Key()}, nil)

	resp = env.get(t, "/api/agenda.ics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/calendar")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "SUMMARY:AI Panel")
}

func TestFetchFailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t, nil, func(context.Context) (*schedule.Dataset, error) {
		return nil, &source.FetchError{URL: "https://example.com/x", StatusCode: 500, Err: errors.New("500")}
	})

	var body map[string]string
	resp := env.get(t, "/api/events", &body)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body["error"], "could not fetch the schedule")
}

func TestParseFailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t, nil, func(context.Context) (*schedule.Dataset, error) {
		return nil, &schedule.ParseError{Table: -1, Msg: "found 2 tables, want 4"}
	})

	resp := env.get(t, "/api/days", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestRefreshReloads(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.get(t, "/api/days", nil)

	resp, err := env.client.Post(env.srv.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, *env.loads)
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "hack", Password: "town"}
	env := newTestEnv(t, cfg, nil)

	assert.Equal(t, http.StatusOK, env.get(t, "/health", nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, env.get(t, "/api/days", nil).StatusCode)

	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/api/days", nil)
	require.NoError(t, err)
	req.SetBasicAuth("hack", "town")
	resp, err := env.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStaticIndexAndUnknownAPI(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.get(t, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Programação Hacktown")

	assert.Equal(t, http.StatusNotFound, env.get(t, "/api/nope", nil).StatusCode)
}
