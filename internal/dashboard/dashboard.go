// Package dashboard holds the filtering and ordering rules for the active
// party list. Everything here is pure: inputs are never mutated and results
// are freshly allocated.
package dashboard

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/HammerMeetNail/rideparty/internal/models"
)

// TimeWindow bounds how soon a party must expire to be shown. WindowAny
// disables the bound.
type TimeWindow int

const WindowAny TimeWindow = 0

func (w TimeWindow) String() string {
	if w == WindowAny {
		return "any"
	}
	return strconv.Itoa(int(w))
}

func (w TimeWindow) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

func (w *TimeWindow) UnmarshalText(text []byte) error {
	parsed, ok := ParseTimeWindow(string(text))
	if !ok {
		return fmt.Errorf("invalid time window %q", text)
	}
	*w = parsed
	return nil
}

// Duration returns the window length; zero for WindowAny.
func (w TimeWindow) Duration() time.Duration {
	return time.Duration(w) * time.Minute
}

// ParseTimeWindow accepts "any" (or empty) and a positive minute count.
func ParseTimeWindow(s string) (TimeWindow, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "any" {
		return WindowAny, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return WindowAny, false
	}
	return TimeWindow(n), true
}

type Filters struct {
	Query          string     `json:"q"`
	Window         TimeWindow `json:"window"`
	FriendsOnly    bool       `json:"friends_only"`
	SameUniversity bool       `json:"same_university"`
}

// ParseFilters reads q, window, friends_only and same_university. Values
// that do not parse fall back to the permissive default.
func ParseFilters(v url.Values) Filters {
	f := Filters{Query: v.Get("q")}
	if w, ok := ParseTimeWindow(v.Get("window")); ok {
		f.Window = w
	}
	f.FriendsOnly = parseFlag(v.Get("friends_only"))
	f.SameUniversity = parseFlag(v.Get("same_university"))
	return f
}

func parseFlag(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

// FilterParties keeps the parties matching every active filter.
func FilterParties(parties []models.Party, f Filters, viewerUniversity string, now time.Time) []models.Party {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]models.Party, 0, len(parties))
	for _, p := range parties {
		if !matchesQuery(p, query) {
			continue
		}
		if !withinWindow(p, f.Window, now) {
			continue
		}
		if f.FriendsOnly && !p.IsFriendsOnly {
			continue
		}
		if f.SameUniversity && !sameUniversity(p, viewerUniversity) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesQuery(p models.Party, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Destination), query) ||
		strings.Contains(strings.ToLower(p.MeetupPoint), query)
}

// withinWindow matches parties with positive remaining time no longer than
// the window. WindowAny matches even ended parties.
func withinWindow(p models.Party, w TimeWindow, now time.Time) bool {
	if w == WindowAny {
		return true
	}
	remaining := p.Remaining(now)
	return remaining > 0 && remaining <= w.Duration()
}

func sameUniversity(p models.Party, viewerUniversity string) bool {
	viewer := strings.TrimSpace(viewerUniversity)
	if viewer == "" || p.HostUniversity == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(*p.HostUniversity), viewer)
}

// OrderParties puts friends-only parties first, then parties that show a
// host university equal to the viewer's, then the rest. Relative order
// inside each group is kept.
func OrderParties(parties []models.Party, viewerUniversity string) []models.Party {
	var friends, campus, rest []models.Party
	for _, p := range parties {
		switch {
		case p.IsFriendsOnly:
			friends = append(friends, p)
		case p.DisplayUniversity && sameUniversity(p, viewerUniversity):
			campus = append(campus, p)
		default:
			rest = append(rest, p)
		}
	}

	out := make([]models.Party, 0, len(parties))
	out = append(out, friends...)
	out = append(out, campus...)
	return append(out, rest...)
}
