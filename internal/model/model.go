package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Default day labels in the published schedule's tab order. The order is the
// event's own chronology, not alphabetical.
var DefaultDays = []string{"Quinta", "Sexta", "Sábado", "Domingo"}

// DefaultAllLabel is the synthetic "no filter" option for day/time selectors.
const DefaultAllLabel = "Todos"

// DefaultStart replaces an empty start time.
const DefaultStart = "16h"

// Column headers used by the agenda spreadsheet format, in order.
const (
	ColTitle       = "Evento"
	ColDescription = "Descrição"
	ColVenue       = "Local"
	ColCategory    = "Tipo"
	ColDay         = "Dia"
	ColStart       = "Início"
	ColEnd         = "Fim"
)

// Columns is the exact export column order.
var Columns = []string{ColTitle, ColDescription, ColVenue, ColCategory, ColDay, ColStart, ColEnd}

// Event is one scheduled session after normalization.
//
// Start and End are display strings such as "09h00"; End is empty when the
// session has no explicit end.
type Event struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Venue       string `json:"venue"`
	Category    string `json:"category"`
	Day         string `json:"day"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// Row returns the event fields in Columns order.
func (e Event) Row() []string {
	return []string{e.Title, e.Description, e.Venue, e.Category, e.Day, e.Start, e.End}
}

// Key identifies an event by all of its displayed fields. The source has no
// primary key, so two rows are the same event only if every column matches.
func (e Event) Key() string {
	sum := sha256.Sum256([]byte(strings.Join(e.Row(), "\x1f")))
	return hex.EncodeToString(sum[:12])
}

// DayOrder ranks day labels by their position in the schedule.
type DayOrder struct {
	labels []string
	rank   map[string]int
}

func NewDayOrder(labels []string) DayOrder {
	rank := make(map[string]int, len(labels))
	for i, l := range labels {
		rank[l] = i
	}
	dup := make([]string, len(labels))
	copy(dup, labels)
	return DayOrder{labels: dup, rank: rank}
}

// Labels returns a copy of the ordered labels.
func (o DayOrder) Labels() []string {
	dup := make([]string, len(o.labels))
	copy(dup, o.labels)
	return dup
}

// Contains reports whether label is one of the known days.
func (o DayOrder) Contains(label string) bool {
	_, ok := o.rank[label]
	return ok
}

// Rank returns the position of label; unknown labels sort after known ones.
func (o DayOrder) Rank(label string) int {
	if r, ok := o.rank[label]; ok {
		return r
	}
	return len(o.labels)
}

// Less orders events by (day rank, start). Start compares lexicographically,
// which is correct once hours are zero-padded.
func (o DayOrder) Less(a, b Event) bool {
	ra, rb := o.Rank(a.Day), o.Rank(b.Day)
	if ra != rb {
		return ra < rb
	}
	if a.Day != b.Day {
		return a.Day < b.Day
	}
	return a.Start < b.Start
}
