// Package calendar renders the cached contacts' birthdays as an iCalendar
// feed.
package calendar

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/emersion/go-ical"

	"github.com/imlich/cardsync/internal/config"
	"github.com/imlich/cardsync/internal/convert"
	"github.com/imlich/cardsync/internal/store"
)

// ContactLister is the slice of the cache the generator reads.
type ContactLister interface {
	AllContacts(ctx context.Context) ([]store.Contact, error)
}

// Entry is one upcoming birthday, sorted by next occurrence.
type Entry struct {
	UID            string
	Name           string
	DateOfBirth    time.Time
	YearKnown      bool
	NextOccurrence time.Time
	AgeNext        int
}

// Generator renders the birthday feed from the contact cache.
type Generator struct {
	Clock Clock
	Store ContactLister

	// ReminderTrigger is an ISO 8601 duration (e.g. "-P1D") for a DISPLAY
	// alarm on each event. Empty disables alarms.
	ReminderTrigger string
}

// Generate walks the cache and builds the ICS payload plus the entry list.
// It returns the payload, the entries, and how many birthdays fall on today.
func (g *Generator) Generate(ctx context.Context) ([]byte, []Entry, int, error) {
	contacts, err := g.Store.AllContacts(ctx)
	if err != nil {
		return nil, nil, 0, err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	// Birthdays follow the local calendar date, so "today" is computed in
	// local time; only the ICS stamp uses UTC.
	now := g.Clock.Now()
	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	var entries []Entry
	today := 0

	for _, contact := range contacts {
		if err := ctx.Err(); err != nil {
			return nil, nil, 0, err
		}

		rec, err := contact.Record()
		if err != nil {
			slog.Warn(config.MsgSkippedContact,
				config.LogKeyComponent, config.CompCalendar,
				config.LogKeyPath, contact.URI,
				config.LogKeyError, err,
			)
			continue
		}

		raw := rec.Single[convert.KeyBirthday]
		if raw == "" {
			continue
		}

		birthDate, yearKnown, err := parseDate(raw)
		if err != nil {
			slog.Debug(config.MsgSkippedDate,
				config.LogKeyComponent, config.CompCalendar,
				config.LogKeyValue, raw,
			)
			continue
		}

		name := contact.DisplayName
		if name == "" {
			name = convert.DisplayName(rec)
		}

		// Deterministic UID so refreshes do not churn client calendars.
		input := fmt.Sprintf(config.FormatHashInput, name, birthDate.Format(time.RFC3339), config.UIDSalt)
		hash := sha256.Sum256([]byte(input))
		uidBase := fmt.Sprintf("%x", hash[:config.UIDHashLength])

		nextOcc, ageNext := nextOccurrence(now, birthDate, yearKnown)
		entries = append(entries, Entry{
			UID:            uidBase,
			Name:           name,
			DateOfBirth:    birthDate,
			YearKnown:      yearKnown,
			NextOccurrence: nextOcc,
			AgeNext:        ageNext,
		})

		events, isToday := g.createEvents(name, birthDate, yearKnown, now, uidBase)
		if isToday {
			today++
		}
		for _, e := range events {
			e.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, e.Component)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].NextOccurrence.Equal(entries[j].NextOccurrence) {
			return entries[i].NextOccurrence.Before(entries[j].NextOccurrence)
		}
		return entries[i].Name < entries[j].Name
	})

	if len(cal.Children) == 0 {
		// A valid stub keeps feed clients from flagging the URL as broken.
		g.logSuccess(len(contacts), len(entries), today)
		return []byte(config.StubVCalendar), entries, 0, nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, nil, 0, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	g.logSuccess(len(contacts), len(entries), today)
	return buf.Bytes(), entries, today, nil
}

func (g *Generator) logSuccess(processed, withBday, today int) {
	slog.Info(config.MsgGenSuccess,
		config.LogKeyComponent, config.CompCalendar,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, processed),
			slog.Int(config.LogKeyFound, withBday),
			slog.Int(config.LogKeyCount, today),
		),
	)
}

// nextOccurrence determines the next birthday date relative to 'now', and
// the age turned on that date when the birth year is known.
func nextOccurrence(now, birthDate time.Time, yearKnown bool) (time.Time, int) {
	loc := now.Location()

	// time.Date normalizes Feb 29 to March 1st in non-leap years.
	candidate := time.Date(now.Year(), birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, loc)
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	if candidate.Before(todayStart) {
		candidate = time.Date(now.Year()+1, birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, loc)
	}

	ageNext := 0
	if yearKnown {
		ageNext = candidate.Year() - birthDate.Year()
	}
	return candidate, ageNext
}

// createEvents generates events for the previous, current, and next year so
// clients scrolling their calendar see occurrences without an immediate
// re-sync. No event is created before the person is born.
func (g *Generator) createEvents(name string, birthDate time.Time, yearKnown bool, now time.Time, uidBase string) ([]*ical.Event, bool) {
	targetYears := []int{now.Year() - 1, now.Year(), now.Year() + 1}
	loc := now.Location()

	var events []*ical.Event
	isToday := false

	todayYear, todayMonth, todayDay := now.Date()

	for _, y := range targetYears {
		if yearKnown && y < birthDate.Year() {
			continue
		}

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, uidBase, y, config.ICalDomain))

		age := 0
		if yearKnown {
			age = y - birthDate.Year()
		}
		summary := formatSummary(name, age, yearKnown)
		event.Props.SetText(config.PropSummary, summary)

		eventDate := time.Date(y, birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, loc)
		if y == todayYear && eventDate.Month() == todayMonth && eventDate.Day() == todayDay {
			isToday = true
		}

		dtStartProp := ical.NewProp(config.PropDTStart)
		dtStartProp.SetDate(eventDate)
		event.Props.Set(dtStartProp)

		if g.ReminderTrigger != "" {
			addAlarm(event, g.ReminderTrigger, summary)
		}

		events = append(events, event)
	}
	return events, isToday
}

// formatSummary renders the event title, including the age when known.
func formatSummary(name string, age int, yearKnown bool) string {
	switch {
	case yearKnown && age > 0:
		return fmt.Sprintf(config.FormatBirthdaySummaryAge, name, age)
	case yearKnown:
		return fmt.Sprintf(config.FormatBirthdaySummaryBirth, name)
	default:
		return fmt.Sprintf(config.FormatBirthdaySummary, name)
	}
}

// addAlarm appends a DISPLAY alarm (notification) to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set the trigger verbatim to avoid a VALUE=TEXT parameter.
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}

// parseDate handles the date formats vCards carry in birthday fields,
// including year-less truncated forms.
func parseDate(value string) (time.Time, bool, error) {
	formatsWithYear := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}
	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return t, true, nil
		}
	}

	// Truncated dates (year unknown). Anchored to a leap year so Feb 29
	// survives.
	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if t, err := time.Parse(f, value); err == nil {
			safeDate := time.Date(config.DefaultLeapYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return safeDate, false, nil
		}
	}

	return time.Time{}, false, errors.New(config.ErrDateParse)
}
