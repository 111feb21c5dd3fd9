package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"secure-auth/internal/auth/adapter/events"
	"secure-auth/internal/auth/adapter/geo"
	authhttp "secure-auth/internal/auth/adapter/http"
	"secure-auth/internal/auth/adapter/metrics"
	"secure-auth/internal/auth/adapter/security"
	"secure-auth/internal/auth/config"
	"secure-auth/internal/auth/domain/repository"
	"secure-auth/internal/auth/usecase"
	"secure-auth/internal/shared/eventbus"
	"secure-auth/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Options carries optional collaborators of the auth module.
type Options struct {
	Logger logger.Logger
	// Bus receives session events. A private bus is created when nil.
	Bus *eventbus.EventBus
	// Registerer enables the session metrics when set.
	Registerer prometheus.Registerer
	// Clock overrides the session clock, mainly for tests.
	Clock func() time.Time
}

// AuthModule represents the complete authentication module
type AuthModule struct {
	config   *config.Config
	log      logger.Logger
	bus      *eventbus.EventBus
	stores   *stores
	tokenSvc repository.TokenService

	sessions *usecase.SessionComponents
	usecase  usecase.AuthUsecaseInterface

	middleware     *authhttp.AuthMiddleware
	authHandler    *authhttp.AuthHTTPHandler
	sessionHandler *authhttp.SessionHTTPHandler
	eventsHandler  *authhttp.SessionEventsHandler

	closers []func(context.Context) error

	janitorMu     sync.Mutex
	janitorCancel context.CancelFunc
	janitorDone   chan struct{}
}

// NewAuthModule opens the configured stores and wires the session usecases and handlers.
func NewAuthModule(ctx context.Context, cfg *config.Config, opts Options) (*AuthModule, error) {
	log := opts.Logger
	if log == nil {
		log = logger.New(logger.Options{Backend: cfg.LogBackend, Level: cfg.LogLevel, Format: cfg.LogFormat})
	}
	log = log.WithComponent("auth")

	bus := opts.Bus
	if bus == nil {
		bus = eventbus.NewEventBus(log)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	am := &AuthModule{config: cfg, log: log, bus: bus, stores: st}
	am.closers = append(am.closers, st.close)

	tokenSvc, err := security.NewJWTokenService(cfg)
	if err != nil {
		am.closeAll(ctx)
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}
	am.tokenSvc = tokenSvc

	observers := usecase.Observers{events.NewPublisher(bus, log)}
	if opts.Registerer != nil {
		observers = append(observers, metrics.NewSessionMetrics(opts.Registerer))
	}

	components, err := usecase.NewSessionComponents(usecase.SessionDeps{
		Sessions: st.sessions,
		Users:    st.users,
		Tokens:   tokenSvc,
		Geo:      am.newGeoLocator(),
		Policy:   cfg.Policy(),
		Logger:   log,
		Observer: observers,
		Clock:    opts.Clock,
	})
	if err != nil {
		am.closeAll(ctx)
		return nil, fmt.Errorf("failed to create session usecases: %w", err)
	}
	am.sessions = components
	am.usecase = usecase.NewAuthUsecase(st.users, security.NewBcryptHasher(cfg.BcryptCost), components.Issuer, components.Revocation, log)

	resolver := authhttp.NewClientContextResolver(cfg.TrustProxyHeaders)
	am.middleware = authhttp.NewAuthMiddleware(components.Validator, resolver, log)
	am.authHandler = authhttp.NewAuthHTTPHandler(am.usecase, resolver)
	am.eventsHandler = authhttp.NewSessionEventsHandler(bus, log)
	am.sessionHandler = authhttp.NewSessionHTTPHandler(components.Usecase()).WithEvents(am.eventsHandler)

	log.Infof("Auth module initialized with %s session store and %s hijack policy", cfg.SessionStore, cfg.HijackPolicy)
	return am, nil
}

// newGeoLocator returns nil when geolocation is disabled. A Redis cache wraps the
// lookup client when Redis is configured.
func (am *AuthModule) newGeoLocator() repository.GeoLocator {
	if !am.config.GeoEnabled {
		return nil
	}
	var locator repository.GeoLocator = geo.NewIPAPIClient(am.config.GeoBaseURL, am.config.GeoTimeout)
	if rdb := config.NewRedisClient(am.config); rdb != nil {
		locator = geo.NewCachedLocator(locator, rdb, am.config.GeoCacheTTL, am.log)
		am.closers = append(am.closers, func(context.Context) error { return rdb.Close() })
	}
	return locator
}

// RegisterRoutes mounts /api/auth and /api/sessions on router.
func (am *AuthModule) RegisterRoutes(router fiber.Router) {
	limiter := am.middleware.RateLimiter(am.config.LoginRateLimit, am.config.LoginRateWindow)
	am.authHandler.SetupAuthRoutesWithMiddleware(router.Group("/api/auth"), am.middleware, limiter)
	am.sessionHandler.SetupSessionRoutes(router.Group("/api/sessions"), am.middleware)
}

// GetUsecase returns the auth usecase for external access
func (am *AuthModule) GetUsecase() usecase.AuthUsecaseInterface {
	return am.usecase
}

// GetSessions returns the session usecases.
func (am *AuthModule) GetSessions() *usecase.SessionComponents {
	return am.sessions
}

// GetMiddleware returns the auth middleware
func (am *AuthModule) GetMiddleware() *authhttp.AuthMiddleware {
	return am.middleware
}

// GetTokenService returns the token codec.
func (am *AuthModule) GetTokenService() repository.TokenService {
	return am.tokenSvc
}

// Health pings the session store.
func (am *AuthModule) Health(ctx context.Context) error {
	if err := am.stores.sessions.Ping(ctx); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

// StartJanitor periodically deletes records past expiry plus the retention window.
// It is a no-op for stores that expire records natively.
func (am *AuthModule) StartJanitor(ctx context.Context) {
	purger, ok := am.stores.sessions.(repository.ExpiredSessionPurger)
	if !ok || am.config.PurgeInterval <= 0 {
		return
	}

	am.janitorMu.Lock()
	defer am.janitorMu.Unlock()
	if am.janitorCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	am.janitorCancel = cancel
	am.janitorDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(am.config.PurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				am.purgeOnce(ctx, purger)
			}
		}
	}()
}

func (am *AuthModule) purgeOnce(ctx context.Context, purger repository.ExpiredSessionPurger) {
	before := time.Now().UTC().Add(-am.config.RecordRetention)
	n, err := purger.PurgeExpired(ctx, before)
	if err != nil {
		am.log.Warnf("Session purge failed: %v", err)
		return
	}
	if n > 0 {
		am.log.Infof("Purged %d expired session records", n)
	}
}

// Stop performs cleanup when the module is shut down
func (am *AuthModule) Stop(ctx context.Context) error {
	am.janitorMu.Lock()
	if am.janitorCancel != nil {
		am.janitorCancel()
		<-am.janitorDone
		am.janitorCancel = nil
	}
	am.janitorMu.Unlock()

	am.eventsHandler.Close()
	return am.closeAll(ctx)
}

func (am *AuthModule) closeAll(ctx context.Context) error {
	var errs []error
	for i := len(am.closers) - 1; i >= 0; i-- {
		if err := am.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	am.closers = nil
	return errors.Join(errs...)
}
