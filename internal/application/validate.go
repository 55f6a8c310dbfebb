package application

import (
	"fmt"
	"regexp"

	"github.com/xalexyi/ristorante-api/internal/policy"
)

var dateFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Validate checks a normalized request against restaurant policy. Rules run
// in a fixed order and the first failure wins; the returned rejection
// carries that rule's reason verbatim. On success the resolved policy is
// returned so callers avoid a second lookup.
func Validate(req NormalizedRequest, policies *policy.Registry) (policy.Restaurant, *RejectionError) {
	if req.RestaurantID == nil {
		return policy.Restaurant{}, reject("unknown restaurant")
	}
	restaurant, ok := policies.Lookup(*req.RestaurantID)
	if !ok {
		return policy.Restaurant{}, reject("unknown restaurant")
	}

	if req.Name == "" {
		return policy.Restaurant{}, reject("customer name is required")
	}
	if req.Phone == "" {
		return policy.Restaurant{}, reject("customer phone is required")
	}
	if req.People == nil || *req.People < restaurant.MinPeople || *req.People > restaurant.MaxPeople {
		return policy.Restaurant{}, reject(fmt.Sprintf("party size must be between %d and %d", restaurant.MinPeople, restaurant.MaxPeople))
	}
	if !dateFormat.MatchString(req.Date) {
		return policy.Restaurant{}, reject("invalid date format, expected YYYY-MM-DD")
	}
	minute, err := policy.ParseMinuteOfDay(req.Time)
	if err != nil {
		return policy.Restaurant{}, reject("invalid time format, expected HH:MM")
	}
	if restaurant.IsClosedOn(req.Date) {
		return policy.Restaurant{}, reject("restaurant closed on this date")
	}
	if !restaurant.AcceptsTime(minute) {
		return policy.Restaurant{}, reject("time outside opening hours")
	}

	return restaurant, nil
}
