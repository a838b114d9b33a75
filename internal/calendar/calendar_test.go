package calendar_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imlich/cardsync/internal/calendar"
	"github.com/imlich/cardsync/internal/convert"
	"github.com/imlich/cardsync/internal/store"
)

// MockClock controls time for deterministic testing.
type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time {
	return m.CurrentTime
}

// staticCache serves a fixed contact list.
type staticCache struct {
	contacts []store.Contact
}

func (s staticCache) AllContacts(ctx context.Context) ([]store.Contact, error) {
	return s.contacts, nil
}

func contactWithBirthday(t *testing.T, name, birthday string) store.Contact {
	t.Helper()
	rec := convert.NewRecord()
	rec.Single[convert.KeyName] = name
	if birthday != "" {
		rec.Single[convert.KeyBirthday] = birthday
	}
	c := store.Contact{URI: "/" + name + ".vcf"}
	require.NoError(t, c.EncodeRecord(rec))
	return c
}

func TestGenerate_FullDate(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	gen := &calendar.Generator{
		Clock: MockClock{CurrentTime: now},
		Store: staticCache{contacts: []store.Contact{
			contactWithBirthday(t, "John Doe", "2000-01-01"),
		}},
	}

	ics, entries, today, err := gen.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, today)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].YearKnown)
	assert.Equal(t, 26, entries[0].AgeNext)
	assert.Equal(t, now.Truncate(24*time.Hour), entries[0].NextOccurrence)

	body := string(ics)
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "Birthday: John Doe (26)")
	// Previous, current, and next year.
	assert.Equal(t, 3, strings.Count(body, "BEGIN:VEVENT"))
}

func TestGenerate_YearlessDate(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	gen := &calendar.Generator{
		Clock: MockClock{CurrentTime: now},
		Store: staticCache{contacts: []store.Contact{
			contactWithBirthday(t, "Mystery", "--02-29"),
		}},
	}

	ics, entries, today, err := gen.Generate(context.Background())
	require.NoError(t, err)

	assert.Zero(t, today)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].YearKnown)
	assert.Zero(t, entries[0].AgeNext)
	assert.Contains(t, string(ics), "Birthday: Mystery")
	assert.NotContains(t, string(ics), "(0)")
}

func TestGenerate_SkipsUnparseableDates(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	gen := &calendar.Generator{
		Clock: MockClock{CurrentTime: now},
		Store: staticCache{contacts: []store.Contact{
			contactWithBirthday(t, "Broken", "someday"),
			contactWithBirthday(t, "NoBirthday", ""),
			contactWithBirthday(t, "Fine", "1990-03-04"),
		}},
	}

	_, entries, _, err := gen.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Fine", entries[0].Name)
}

func TestGenerate_EmptyCacheYieldsStub(t *testing.T) {
	gen := &calendar.Generator{
		Clock: MockClock{CurrentTime: time.Now()},
		Store: staticCache{},
	}

	ics, entries, today, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, today)

	body := string(ics)
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "END:VCALENDAR")
	assert.NotContains(t, body, "VEVENT")
}

func TestGenerate_EntriesSortedByNextOccurrence(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	gen := &calendar.Generator{
		Clock: MockClock{CurrentTime: now},
		Store: staticCache{contacts: []store.Contact{
			contactWithBirthday(t, "LaterThisYear", "1990-12-01"),
			contactWithBirthday(t, "AlreadyPassed", "1990-02-01"),
			contactWithBirthday(t, "Soon", "1990-06-20"),
		}},
	}

	_, entries, _, err := gen.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Soon", entries[0].Name)
	assert.Equal(t, "LaterThisYear", entries[1].Name)
	assert.Equal(t, "AlreadyPassed", entries[2].Name)
}

func TestGenerate_ReminderAlarm(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	gen := &calendar.Generator{
		Clock:           MockClock{CurrentTime: now},
		ReminderTrigger: "-P1D",
		Store: staticCache{contacts: []store.Contact{
			contactWithBirthday(t, "John Doe", "2000-01-01"),
		}},
	}

	ics, _, _, err := gen.Generate(context.Background())
	require.NoError(t, err)

	body := string(ics)
	assert.Contains(t, body, "BEGIN:VALARM")
	assert.Contains(t, body, "TRIGGER:-P1D")
	assert.Contains(t, body, "ACTION:DISPLAY")
}
