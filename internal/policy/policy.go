package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// DefaultTimezone is used when neither the request nor the restaurant
// supplies a timezone name.
const DefaultTimezone = "Europe/Rome"

// Window is a daily opening interval expressed as minutes of day.
// Both boundaries are inclusive.
type Window struct {
	Start int
	End   int
}

// Contains reports whether the given minute-of-day falls inside the window.
func (w Window) Contains(minute int) bool {
	return minute >= w.Start && minute <= w.End
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.Start/60, w.Start%60, w.End/60, w.End%60)
}

// Restaurant is the immutable per-restaurant reservation policy. It is
// loaded once at startup and never mutated by requests.
type Restaurant struct {
	ID          int64
	Name        string
	Timezone    string
	MinPeople   int
	MaxPeople   int
	ClosedDates map[string]struct{}
	Windows     []Window
}

// IsClosedOn reports whether the restaurant does not accept reservations on
// the given YYYY-MM-DD date.
func (r Restaurant) IsClosedOn(date string) bool {
	_, closed := r.ClosedDates[date]
	return closed
}

// AcceptsTime reports whether the given minute-of-day falls inside at least
// one opening window. A restaurant without windows accepts any time.
func (r Restaurant) AcceptsTime(minute int) bool {
	if len(r.Windows) == 0 {
		return true
	}
	for _, w := range r.Windows {
		if w.Contains(minute) {
			return true
		}
	}
	return false
}

// Registry resolves restaurant identifiers to their policies.
type Registry struct {
	restaurants map[int64]Restaurant
}

// NewRegistry builds a registry from the provided policies. Duplicate
// identifiers are rejected.
func NewRegistry(restaurants []Restaurant) (*Registry, error) {
	byID := make(map[int64]Restaurant, len(restaurants))
	for _, r := range restaurants {
		if r.ID <= 0 {
			return nil, fmt.Errorf("policy: restaurant %q has invalid id %d", r.Name, r.ID)
		}
		if _, ok := byID[r.ID]; ok {
			return nil, fmt.Errorf("policy: duplicate restaurant id %d", r.ID)
		}
		if r.MinPeople <= 0 || r.MaxPeople < r.MinPeople {
			return nil, fmt.Errorf("policy: restaurant %d has invalid party size range [%d,%d]", r.ID, r.MinPeople, r.MaxPeople)
		}
		if strings.TrimSpace(r.Timezone) == "" {
			r.Timezone = DefaultTimezone
		}
		byID[r.ID] = r
	}
	return &Registry{restaurants: byID}, nil
}

// Lookup returns the policy for the given restaurant id.
func (g *Registry) Lookup(id int64) (Restaurant, bool) {
	if g == nil {
		return Restaurant{}, false
	}
	r, ok := g.restaurants[id]
	return r, ok
}

// All returns every registered policy ordered by id.
func (g *Registry) All() []Restaurant {
	if g == nil {
		return nil
	}
	out := make([]Restaurant, 0, len(g.restaurants))
	for _, r := range g.restaurants {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// seedEntry is the JSON shape of one restaurant in a seed file.
type seedEntry struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Timezone    string   `json:"timezone"`
	MinPeople   int      `json:"min_people"`
	MaxPeople   int      `json:"max_people"`
	ClosedDates []string `json:"closed_dates"`
	Windows     []string `json:"windows"`
}

// LoadFile reads a JSON seed file and builds a registry from it.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read seed file: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from JSON seed data.
func Parse(data []byte) (*Registry, error) {
	var entries []seedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("policy: parse seed data: %w", err)
	}

	restaurants := make([]Restaurant, 0, len(entries))
	for _, e := range entries {
		r := Restaurant{
			ID:        e.ID,
			Name:      strings.TrimSpace(e.Name),
			Timezone:  strings.TrimSpace(e.Timezone),
			MinPeople: e.MinPeople,
			MaxPeople: e.MaxPeople,
		}
		if len(e.ClosedDates) > 0 {
			r.ClosedDates = make(map[string]struct{}, len(e.ClosedDates))
			for _, d := range e.ClosedDates {
				r.ClosedDates[strings.TrimSpace(d)] = struct{}{}
			}
		}
		for _, spec := range e.Windows {
			w, err := ParseWindow(spec)
			if err != nil {
				return nil, fmt.Errorf("policy: restaurant %d: %w", e.ID, err)
			}
			r.Windows = append(r.Windows, w)
		}
		restaurants = append(restaurants, r)
	}

	return NewRegistry(restaurants)
}

// ParseWindow parses an "HH:MM-HH:MM" opening window specification.
func ParseWindow(spec string) (Window, error) {
	parts := strings.SplitN(strings.TrimSpace(spec), "-", 2)
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("invalid opening window %q", spec)
	}
	start, err := ParseMinuteOfDay(parts[0])
	if err != nil {
		return Window{}, fmt.Errorf("invalid opening window %q: %w", spec, err)
	}
	end, err := ParseMinuteOfDay(parts[1])
	if err != nil {
		return Window{}, fmt.Errorf("invalid opening window %q: %w", spec, err)
	}
	if end < start {
		return Window{}, fmt.Errorf("invalid opening window %q: end before start", spec)
	}
	return Window{Start: start, End: end}, nil
}

// ParseMinuteOfDay converts an "HH:MM" 24-hour clock value to minutes of day.
func ParseMinuteOfDay(value string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	return hours*60 + minutes, nil
}

// DefaultSeed is the built-in demo policy used when no seed file is
// configured.
func DefaultSeed() *Registry {
	registry, err := NewRegistry([]Restaurant{
		{
			ID:        1,
			Name:      "Ristorante Da Mario",
			Timezone:  "Europe/Rome",
			MinPeople: 1,
			MaxPeople: 12,
			ClosedDates: map[string]struct{}{
				"2025-12-25": {},
			},
			Windows: []Window{
				{Start: 12 * 60, End: 15 * 60},
				{Start: 19 * 60, End: 23 * 60},
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return registry
}
