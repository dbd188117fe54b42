package schedule

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"hacktown/internal/model"
)

// Dataset is the normalized, immutable collection of all events of one
// fetch. Every accessor returns fresh slices.
type Dataset struct {
	events []model.Event
	order  model.DayOrder
	all    string
}

// Query selects events. Empty Day or Time behave like the all label.
type Query struct {
	Day     string `json:"day"`
	Time    string `json:"time"`
	Keyword string `json:"keyword"`
}

// NewDataset copies events and remembers the day order and the synthetic
// all label used by selectors.
func NewDataset(events []model.Event, days []string, allLabel string) *Dataset {
	dup := make([]model.Event, len(events))
	copy(dup, events)
	if allLabel == "" {
		allLabel = model.DefaultAllLabel
	}
	return &Dataset{events: dup, order: model.NewDayOrder(days), all: allLabel}
}

func (d *Dataset) Len() int { return len(d.events) }

// AllLabel returns the synthetic "no filter" option.
func (d *Dataset) AllLabel() string { return d.all }

// Order returns the day ordering of the dataset.
func (d *Dataset) Order() model.DayOrder { return d.order }

// Events returns a copy of every event in document order.
func (d *Dataset) Events() []model.Event {
	dup := make([]model.Event, len(d.events))
	copy(dup, d.events)
	return dup
}

// Lookup returns the event with the given identity key.
func (d *Dataset) Lookup(key string) (model.Event, bool) {
	for _, e := range d.events {
		if e.Key() == key {
			return e, true
		}
	}
	return model.Event{}, false
}

// DistinctDays returns the all label followed by the days that have at least
// one event, in schedule order.
func (d *Dataset) DistinctDays() []string {
	present := make(map[string]bool)
	for _, e := range d.events {
		present[e.Day] = true
	}
	out := []string{d.all}
	for _, l := range d.order.Labels() {
		if present[l] {
			out = append(out, l)
		}
	}
	return out
}

// DistinctTimes returns the all label followed by the sorted distinct start
// times of day. With no day selected only the all label is offered.
func (d *Dataset) DistinctTimes(day string) []string {
	out := []string{d.all}
	if d.isAll(day) {
		return out
	}
	seen := make(map[string]bool)
	var times []string
	for _, e := range d.events {
		if e.Day == day && !seen[e.Start] {
			seen[e.Start] = true
			times = append(times, e.Start)
		}
	}
	sort.Strings(times)
	return append(out, times...)
}

// Filter applies the keyword stage first, then narrows by day and, when a
// day is selected, by start time. Document order is preserved.
func (d *Dataset) Filter(q Query) []model.Event {
	out := make([]model.Event, 0, len(d.events))

	var match func(model.Event) bool
	if kw := q.Keyword; kw != "" {
		// A Caser keeps state; one per call.
		fold := cases.Fold()
		needle := fold.String(kw)
		match = func(e model.Event) bool {
			for _, field := range []string{e.Title, e.Description, e.Venue, e.Category} {
				if strings.Contains(fold.String(field), needle) {
					return true
				}
			}
			return false
		}
	}

	for _, e := range d.events {
		if match != nil && !match(e) {
			continue
		}
		if !d.isAll(q.Day) {
			if e.Day != q.Day {
				continue
			}
			if !d.isAll(q.Time) && e.Start != q.Time {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func (d *Dataset) isAll(v string) bool {
	return v == "" || v == d.all
}

// PageResult is one page of a filtered event list.
type PageResult struct {
	Events []model.Event `json:"events"`
	Page   int           `json:"page"`
	Pages  int           `json:"pages"`
	Size   int           `json:"size"`
	Total  int           `json:"total"`
}

// DefaultPageSize and MaxPageSize bound the size passed to Page.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page slices events into 1-based pages of size. Out-of-range pages are
// clamped; size falls back to DefaultPageSize when not positive and is capped
// at MaxPageSize.
func Page(events []model.Event, page, size int) PageResult {
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	total := len(events)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	lo := (page - 1) * size
	hi := min(lo+size, total)

	chunk := make([]model.Event, hi-lo)
	copy(chunk, events[lo:hi])
	return PageResult{Events: chunk, Page: page, Pages: pages, Size: size, Total: total}
}
