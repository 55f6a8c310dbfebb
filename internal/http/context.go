package http

import "context"

type contextKey string

const (
	callSIDContextKey       contextKey = "call_sid"
	reservationIDContextKey contextKey = "reservation_id"
	restaurantIDContextKey  contextKey = "restaurant_id"
)

// ContextWithCallSID injects the call SID resolved from the request path.
func ContextWithCallSID(ctx context.Context, callSID string) context.Context {
	return context.WithValue(ctx, callSIDContextKey, callSID)
}

// CallSIDFromContext extracts a call SID previously associated with the context.
func CallSIDFromContext(ctx context.Context) (string, bool) {
	callSID, ok := ctx.Value(callSIDContextKey).(string)
	return callSID, ok
}

// ContextWithReservationID injects the reservation identifier resolved from the request path.
func ContextWithReservationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, reservationIDContextKey, id)
}

// ReservationIDFromContext extracts a reservation identifier previously associated with the context.
func ReservationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(reservationIDContextKey).(string)
	return id, ok
}

// ContextWithRestaurantID injects the restaurant identifier resolved from the request path.
func ContextWithRestaurantID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, restaurantIDContextKey, id)
}

// RestaurantIDFromContext extracts a restaurant identifier previously associated with the context.
func RestaurantIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(restaurantIDContextKey).(int64)
	return id, ok
}
