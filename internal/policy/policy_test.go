package policy

import (
	"strings"
	"testing"
)

func TestParseMinuteOfDay(t *testing.T) {
	cases := []struct {
		name    string
		value   string
		want    int
		wantErr bool
	}{
		{name: "midnight", value: "00:00", want: 0},
		{name: "evening", value: "19:30", want: 19*60 + 30},
		{name: "last minute", value: "23:59", want: 23*60 + 59},
		{name: "hour out of range", value: "24:00", wantErr: true},
		{name: "minute out of range", value: "12:60", wantErr: true},
		{name: "single digit hour", value: "9:00", wantErr: true},
		{name: "missing colon", value: "1900", wantErr: true},
		{name: "empty", value: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseMinuteOfDay(tc.value)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestParseWindow(t *testing.T) {
	t.Run("parses a valid window", func(t *testing.T) {
		w, err := ParseWindow("19:00-23:00")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w.Start != 19*60 || w.End != 23*60 {
			t.Fatalf("unexpected window: %+v", w)
		}
	})

	t.Run("rejects inverted windows", func(t *testing.T) {
		if _, err := ParseWindow("23:00-19:00"); err == nil {
			t.Fatalf("expected error for inverted window")
		}
	})

	t.Run("boundaries are inclusive", func(t *testing.T) {
		w, err := ParseWindow("19:00-23:00")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !w.Contains(19 * 60) {
			t.Fatalf("expected window start to be accepted")
		}
		if !w.Contains(23 * 60) {
			t.Fatalf("expected window end to be accepted")
		}
		if w.Contains(23*60 + 1) {
			t.Fatalf("expected minute past the end to be rejected")
		}
	})
}

func TestRegistry(t *testing.T) {
	t.Run("rejects duplicate ids", func(t *testing.T) {
		_, err := NewRegistry([]Restaurant{
			{ID: 1, Name: "A", MinPeople: 1, MaxPeople: 4},
			{ID: 1, Name: "B", MinPeople: 1, MaxPeople: 4},
		})
		if err == nil {
			t.Fatalf("expected error for duplicate ids")
		}
	})

	t.Run("rejects invalid party size range", func(t *testing.T) {
		_, err := NewRegistry([]Restaurant{
			{ID: 1, Name: "A", MinPeople: 6, MaxPeople: 2},
		})
		if err == nil {
			t.Fatalf("expected error for inverted party size range")
		}
	})

	t.Run("applies the default timezone", func(t *testing.T) {
		registry, err := NewRegistry([]Restaurant{
			{ID: 7, Name: "A", MinPeople: 1, MaxPeople: 8},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		r, ok := registry.Lookup(7)
		if !ok {
			t.Fatalf("expected restaurant 7 to be registered")
		}
		if r.Timezone != DefaultTimezone {
			t.Fatalf("expected default timezone, got %q", r.Timezone)
		}
	})

	t.Run("lookup misses unknown ids", func(t *testing.T) {
		registry := DefaultSeed()
		if _, ok := registry.Lookup(99); ok {
			t.Fatalf("expected lookup miss for unknown id")
		}
	})
}

func TestParseSeed(t *testing.T) {
	seed := `[
		{
			"id": 1,
			"name": "Trattoria Centrale",
			"timezone": "Europe/Rome",
			"min_people": 2,
			"max_people": 10,
			"closed_dates": ["2025-12-25", "2026-01-01"],
			"windows": ["12:00-15:00", "19:00-23:00"]
		}
	]`

	registry, err := Parse([]byte(seed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, ok := registry.Lookup(1)
	if !ok {
		t.Fatalf("expected restaurant 1 to be registered")
	}
	if r.Name != "Trattoria Centrale" {
		t.Fatalf("unexpected name %q", r.Name)
	}
	if !r.IsClosedOn("2025-12-25") {
		t.Fatalf("expected 2025-12-25 to be closed")
	}
	if r.IsClosedOn("2025-12-26") {
		t.Fatalf("expected 2025-12-26 to be open")
	}
	if len(r.Windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(r.Windows))
	}
	if !r.AcceptsTime(20 * 60) {
		t.Fatalf("expected 20:00 to be inside an opening window")
	}
	if r.AcceptsTime(18 * 60) {
		t.Fatalf("expected 18:00 to be outside all windows")
	}
}

func TestParseSeed_InvalidWindow(t *testing.T) {
	seed := `[{"id": 1, "name": "X", "min_people": 1, "max_people": 4, "windows": ["19:00"]}]`
	_, err := Parse([]byte(seed))
	if err == nil {
		t.Fatalf("expected error for malformed window")
	}
	if !strings.Contains(err.Error(), "restaurant 1") {
		t.Fatalf("expected error to name the restaurant, got %q", err.Error())
	}
}

func TestAcceptsTime_NoWindows(t *testing.T) {
	r := Restaurant{ID: 1, Name: "X", MinPeople: 1, MaxPeople: 4}
	if !r.AcceptsTime(3 * 60) {
		t.Fatalf("expected restaurant without windows to accept any time")
	}
}
