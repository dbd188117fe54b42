package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hacktown/internal/model"
)

func TestManagerGetCreatesAndReuses(t *testing.T) {
	m := NewManager(model.DefaultDays, time.Hour)

	s := m.Get("")
	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)

	assert.Same(t, s, m.Get(s.ID))
	assert.NotSame(t, s, m.Get("forged-id"))
	assert.Equal(t, 2, m.Len())
}

func TestSessionsDoNotShareAgendas(t *testing.T) {
	m := NewManager(model.DefaultDays, 0)
	a, b := m.Get(""), m.Get("")

	require.NoError(t, a.Agenda.Add(model.Event{Title: "AI Panel", Day: "Sexta", Start: "09h00"}))
	assert.Equal(t, 1, a.Agenda.Len())
	assert.Zero(t, b.Agenda.Len())
}

func TestManagerPrunesIdleSessions(t *testing.T) {
	now := time.Date(2022, 9, 8, 10, 0, 0, 0, time.UTC)
	m := NewManager(model.DefaultDays, time.Hour)
	m.now = func() time.Time { return now }

	old := m.Get("")
	now = now.Add(30 * time.Minute)
	assert.Same(t, old, m.Get(old.ID), "touching keeps it alive")

	now = now.Add(2 * time.Hour)
	fresh := m.Get(old.ID)
	assert.NotEqual(t, old.ID, fresh.ID)
	assert.Equal(t, 1, m.Len())
}

func TestFromRequestSetsCookieOnlyForNewSessions(t *testing.T) {
	m := NewManager(model.DefaultDays, 0)

	rec := httptest.NewRecorder()
	s := m.FromRequest(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, s.ID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: s.ID})
	rec = httptest.NewRecorder()
	assert.Same(t, s, m.FromRequest(rec, req))
	assert.Empty(t, rec.Result().Cookies())
}
