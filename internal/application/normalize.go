package application

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultSource tags reservations whose payload does not name an origin.
// The voice pipeline historically submitted through Twilio.
const DefaultSource = "twilio"

// NormalizedRequest is the canonical reservation request produced from the
// loosely shaped inbound payload. Pointer fields are nil when the payload
// value was absent or unparsable.
type NormalizedRequest struct {
	RestaurantID *int64
	Name         string
	Phone        string
	CallSID      string
	Source       string
	Notes        string
	People       *int
	Date         string
	Time         string
	Timezone     string
	Items        []string
}

// aliases maps every accepted payload key to its canonical field. The table
// is fixed: payload keys outside it are rejected rather than silently
// dropped.
var aliases = map[string]string{
	"restaurant_id":  "restaurant_id",
	"restaurantId":   "restaurant_id",
	"customer_name":  "customer_name",
	"name":           "customer_name",
	"customer_phone": "customer_phone",
	"phone":          "customer_phone",
	"call_sid":       "call_sid",
	"callSid":        "call_sid",
	"source":         "source",
	"notes":          "notes",
	"people":         "people",
	"date":           "date",
	"time":           "time",
	"tz":             "timezone",
	"timezone":       "timezone",
	"items":          "items",
}

// Normalize maps a decoded JSON object to the canonical request shape,
// tolerating the historical field-name spellings and trimming string
// values. It has no side effects.
func Normalize(payload map[string]any) (NormalizedRequest, error) {
	var unknown []string
	canonical := make(map[string]any, len(payload))
	for key, value := range payload {
		field, ok := aliases[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		// Canonical spellings win when a payload carries both.
		if _, taken := canonical[field]; taken && key != field {
			continue
		}
		canonical[field] = value
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return NormalizedRequest{}, fmt.Errorf("%w: %s", ErrUnrecognizedField, strings.Join(unknown, ", "))
	}

	req := NormalizedRequest{
		RestaurantID: parseInt64(canonical["restaurant_id"]),
		Name:         trimmedString(canonical["customer_name"]),
		Phone:        trimmedString(canonical["customer_phone"]),
		CallSID:      trimmedString(canonical["call_sid"]),
		Source:       trimmedString(canonical["source"]),
		Notes:        trimmedString(canonical["notes"]),
		People:       parseInt(canonical["people"]),
		Date:         trimmedString(canonical["date"]),
		Time:         trimmedString(canonical["time"]),
		Timezone:     trimmedString(canonical["timezone"]),
		Items:        stringSlice(canonical["items"]),
	}
	if req.Source == "" {
		req.Source = DefaultSource
	}
	return req, nil
}

func trimmedString(value any) string {
	s, _ := value.(string)
	return strings.TrimSpace(s)
}

// parseInt64 accepts JSON numbers and numeric strings; anything else is nil.
func parseInt64(value any) *int64 {
	switch v := value.(type) {
	case float64:
		n := int64(v)
		if float64(n) != v {
			return nil
		}
		return &n
	case int:
		n := int64(v)
		return &n
	case int64:
		return &v
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}

func parseInt(value any) *int {
	n := parseInt64(value)
	if n == nil {
		return nil
	}
	i := int(*n)
	return &i
}

func stringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					out = append(out, trimmed)
				}
			}
		}
		return out
	default:
		return nil
	}
}
