// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"fmt"
	"time"

	"github.com/goodsign/monday"
	"golang.org/x/text/language"
)

// =============================================================================
// CALENDAR DAY
// =============================================================================

// Day is a calendar date without a time of day.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar day of t in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses a 2006-01-02 date key.
func ParseDay(key string) (Day, bool) {
	t, err := time.Parse("2006-01-02", key)
	if err != nil {
		return Day{}, false
	}
	return DayOf(t, time.UTC), true
}

// Key returns the 2006-01-02 form of the day.
func (d Day) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC of the day.
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the day n days later (or earlier for negative n).
func (d Day) AddDays(n int) Day {
	return DayOf(d.Time().AddDate(0, 0, n), time.UTC)
}

// =============================================================================
// LOCALIZED LABELS
// =============================================================================

// dateNames holds the relative words and full-date layout of one supported
// language. Weekday and month names come from monday.
type dateNames struct {
	today     string
	yesterday string
	locale    monday.Locale
	layout    string
}

var supportedTags = []language.Tag{
	language.English, // first entry is the fallback
	language.German,
	language.French,
	language.Spanish,
	language.Russian,
}

var dateTables = []dateNames{
	{today: "Today", yesterday: "Yesterday", locale: monday.LocaleEnUS, layout: "Monday, January 2, 2006"},
	{today: "Heute", yesterday: "Gestern", locale: monday.LocaleDeDE, layout: "Monday, 2. January 2006"},
	{today: "Aujourd'hui", yesterday: "Hier", locale: monday.LocaleFrFR, layout: "Monday 2 January 2006"},
	{today: "Hoy", yesterday: "Ayer", locale: monday.LocaleEsES, layout: "Monday, 2 de January de 2006"},
	// Day before month selects the genitive month form
	{today: "Сегодня", yesterday: "Вчера", locale: monday.LocaleRuRU, layout: "Monday, 2 January 2006 г."},
}

var matcher = language.NewMatcher(supportedTags)

// Labeler produces separator labels for one locale.
type Labeler struct {
	tag   language.Tag
	names dateNames
}

// NewLabeler returns a labeler for the best supported match of locale
// (a BCP 47 tag such as "en-GB" or "de"). Unknown locales fall back to English.
func NewLabeler(locale string) *Labeler {
	tag, _ := language.Parse(locale)
	_, idx, _ := matcher.Match(tag)
	if idx < 0 || idx >= len(dateTables) {
		idx = 0
	}
	return &Labeler{tag: supportedTags[idx], names: dateTables[idx]}
}

// Tag returns the matched language.
func (l *Labeler) Tag() language.Tag {
	return l.tag
}

// Label names day relative to today: "Today", "Yesterday" or the full date.
func (l *Labeler) Label(day, today Day) string {
	switch day {
	case today:
		return l.names.today
	case today.AddDays(-1):
		return l.names.yesterday
	}
	return monday.Format(day.Time(), l.names.layout, l.names.locale)
}
