package testfixtures

import (
	"log/slog"
	"time"

	"github.com/xalexyi/ristorante-api/internal/application"
	"github.com/xalexyi/ristorante-api/internal/persistence"
	"github.com/xalexyi/ristorante-api/internal/policy"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("res"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("res")
	}
	return factory
}

// WithClockFixture overrides the clock used by the factory.
func WithClockFixture(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGeneratorFixture overrides the identifier generator used by the
// factory.
func WithIDGeneratorFixture(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// ReservationServiceDeps captures dependencies for constructing a reservation
// service.
type ReservationServiceDeps struct {
	Reservations persistence.ReservationRepository
	Policies     *policy.Registry
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewReservationService builds a reservation service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewReservationService(deps ReservationServiceDeps) *application.ReservationService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	policies := deps.Policies
	if policies == nil {
		policies = policy.DefaultSeed()
	}
	return application.NewReservationServiceWithLogger(
		deps.Reservations,
		policies,
		idGen,
		now,
		deps.Logger,
	)
}

// SessionServiceDeps captures dependencies for constructing a session service.
type SessionServiceDeps struct {
	TTL    time.Duration
	Now    func() time.Time
	Logger *slog.Logger
}

// NewSessionService builds a session service using the supplied dependencies.
func (f *ServiceFactory) NewSessionService(deps SessionServiceDeps) *application.SessionService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewSessionService(deps.TTL, now, deps.Logger)
}
