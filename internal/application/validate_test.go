package application

import (
	"testing"

	"github.com/xalexyi/ristorante-api/internal/policy"
)

func testRegistry(t *testing.T) *policy.Registry {
	t.Helper()

	registry, err := policy.NewRegistry([]policy.Restaurant{
		{
			ID:        1,
			Name:      "Ristorante Da Mario",
			Timezone:  "Europe/Rome",
			MinPeople: 1,
			MaxPeople: 12,
			ClosedDates: map[string]struct{}{
				"2025-12-25": {},
			},
			Windows: []policy.Window{
				{Start: 19 * 60, End: 23 * 60},
			},
		},
		{
			ID:        2,
			Name:      "Osteria Aperta",
			MinPeople: 2,
			MaxPeople: 6,
		},
	})
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	return registry
}

func validRequest() NormalizedRequest {
	return NormalizedRequest{
		RestaurantID: int64Ptr(1),
		Name:         "Mario",
		Phone:        "+391234567",
		People:       intPtr(4),
		Date:         "2025-06-01",
		Time:         "20:00",
		Source:       "twilio",
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestValidate_Order(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(req *NormalizedRequest)
		reason string
	}{
		{
			name:   "missing restaurant id",
			mutate: func(req *NormalizedRequest) { req.RestaurantID = nil },
			reason: "unknown restaurant",
		},
		{
			name:   "unknown restaurant id",
			mutate: func(req *NormalizedRequest) { req.RestaurantID = int64Ptr(99) },
			reason: "unknown restaurant",
		},
		{
			name:   "missing name",
			mutate: func(req *NormalizedRequest) { req.Name = "" },
			reason: "customer name is required",
		},
		{
			name:   "missing phone",
			mutate: func(req *NormalizedRequest) { req.Phone = "" },
			reason: "customer phone is required",
		},
		{
			name:   "missing people",
			mutate: func(req *NormalizedRequest) { req.People = nil },
			reason: "party size must be between 1 and 12",
		},
		{
			name:   "party too large",
			mutate: func(req *NormalizedRequest) { req.People = intPtr(13) },
			reason: "party size must be between 1 and 12",
		},
		{
			name:   "malformed date",
			mutate: func(req *NormalizedRequest) { req.Date = "01/06/2025" },
			reason: "invalid date format, expected YYYY-MM-DD",
		},
		{
			name:   "malformed time",
			mutate: func(req *NormalizedRequest) { req.Time = "8pm" },
			reason: "invalid time format, expected HH:MM",
		},
		{
			name:   "closed date",
			mutate: func(req *NormalizedRequest) { req.Date = "2025-12-25" },
			reason: "restaurant closed on this date",
		},
		{
			name:   "outside opening hours",
			mutate: func(req *NormalizedRequest) { req.Time = "18:00" },
			reason: "time outside opening hours",
		},
		{
			name: "party size failure wins over date failure",
			mutate: func(req *NormalizedRequest) {
				req.People = intPtr(13)
				req.Date = "bad"
			},
			reason: "party size must be between 1 and 12",
		},
	}

	registry := testRegistry(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)

			_, rejection := Validate(req, registry)
			if rejection == nil {
				t.Fatalf("expected rejection")
			}
			if rejection.Reason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, rejection.Reason)
			}
		})
	}
}

func TestValidate_Accepts(t *testing.T) {
	registry := testRegistry(t)

	t.Run("valid request resolves the policy", func(t *testing.T) {
		restaurant, rejection := Validate(validRequest(), registry)
		if rejection != nil {
			t.Fatalf("unexpected rejection: %s", rejection.Reason)
		}
		if restaurant.ID != 1 {
			t.Fatalf("expected restaurant 1, got %d", restaurant.ID)
		}
	})

	t.Run("window boundaries are inclusive", func(t *testing.T) {
		for _, at := range []string{"19:00", "23:00"} {
			req := validRequest()
			req.Time = at
			if _, rejection := Validate(req, registry); rejection != nil {
				t.Fatalf("expected %s to be accepted, got %s", at, rejection.Reason)
			}
		}
	})

	t.Run("restaurant without windows accepts any time", func(t *testing.T) {
		req := validRequest()
		req.RestaurantID = int64Ptr(2)
		req.People = intPtr(3)
		req.Time = "03:30"
		if _, rejection := Validate(req, registry); rejection != nil {
			t.Fatalf("unexpected rejection: %s", rejection.Reason)
		}
	})
}
