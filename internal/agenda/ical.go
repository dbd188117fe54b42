package agenda

import (
	"errors"
	"regexp"
	"strconv"
	"time"

	ics "github.com/arran4/golang-ical"

	appLog "hacktown/internal/log"
	"hacktown/internal/model"
)

// DefaultEventDuration is used when an event has no usable end time.
const DefaultEventDuration = time.Hour

// CalendarOptions anchors day labels to real dates for calendar export.
type CalendarOptions struct {
	// Dates maps a day label to a YYYY-MM-DD date.
	Dates map[string]string
	// Location is the zone of the printed times. Nil uses time.Local.
	Location *time.Location
	// Name is the calendar display name.
	Name string
	// Now stamps DTSTAMP; zero uses time.Now.
	Now time.Time
}

var clockRe = regexp.MustCompile(`^(\d{1,2})[h:](\d{2})?$`)

// parseClock reads display times such as "09h00", "16h" or "9:30".
func parseClock(s string) (hour, minute int, ok bool) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// ExportICS renders events as an iCalendar feed. Events whose day has no
// configured date are skipped and counted. Start times that are not clock
// times become all-day entries.
func ExportICS(events []model.Event, opts CalendarOptions) (string, int, error) {
	if len(opts.Dates) == 0 {
		return "", 0, errors.New("export calendar: no event dates configured")
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//hacktown//agenda//PT")
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	skipped := 0
	for _, e := range events {
		raw, ok := opts.Dates[e.Day]
		if !ok {
			skipped++
			continue
		}
		date, err := time.ParseInLocation(time.DateOnly, raw, loc)
		if err != nil {
			return "", 0, err
		}

		vev := cal.AddEvent(e.Key() + "@hacktown")
		vev.SetDtStampTime(now)
		vev.SetSummary(e.Title)
		if e.Description != "" {
			vev.SetDescription(e.Description)
		}
		if e.Venue != "" {
			vev.SetLocation(e.Venue)
		}
		if e.Category != "" {
			vev.AddProperty(ics.ComponentPropertyCategories, e.Category)
		}

		h, m, ok := parseClock(e.Start)
		if !ok {
			vev.SetAllDayStartAt(date)
			vev.SetAllDayEndAt(date.AddDate(0, 0, 1))
			continue
		}
		start := date.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
		end := start.Add(DefaultEventDuration)
		if eh, em, ok := parseClock(e.End); ok {
			if t := date.Add(time.Duration(eh)*time.Hour + time.Duration(em)*time.Minute); t.After(start) {
				end = t
			}
		}
		vev.SetStartAt(start)
		vev.SetEndAt(end)
	}

	if skipped > 0 {
		appLog.Warn("calendar export skipped events without a date", "skipped", skipped)
	}
	return cal.Serialize(), skipped, nil
}
