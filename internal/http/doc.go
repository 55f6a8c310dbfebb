// Package http provides HTTP handlers and middleware for the reservation API.
//
// The router exposes the following endpoints:
//   - GET /health: liveness probe, responds {"ok":true}.
//   - POST /api/lock/acquire, POST /api/lock/release: concurrent-call
//     admission control per restaurant. Body: {"restaurant_id","call_sid"}
//     with an optional "ttl_seconds" on acquire. Responses carry the slot
//     counters defined in gate_handler.go.
//   - POST /api/reservations: idempotent reservation upsert keyed on
//     restaurant id and call SID. Returns 201 with status "created" on first
//     sight, 200 with status "duplicate" (after enrichment) on replays, 422
//     with the first failing validation reason, and 429 when a restaurant's
//     per-minute quota is exhausted.
//   - GET /api/reservations/{id}: fetch one reservation.
//   - GET /api/reservations, DELETE /api/reservations/{id}: administrative
//     listing and removal, guarded by the X-Admin-Token header.
//   - GET /api/sessions/{callSid}, PUT /api/sessions/{callSid}: transient
//     per-call scratch state accumulated across voice-agent turns.
//   - GET /api/restaurants, GET /api/restaurants/{id}: restaurant policy
//     catalog (opening windows, party-size bounds, closed dates).
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
