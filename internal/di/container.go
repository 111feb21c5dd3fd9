package di

import (
	"context"
	"fmt"
	"sync"
	"time"

	"secure-auth/internal/auth"
	"secure-auth/internal/auth/config"
	"secure-auth/internal/shared/eventbus"
	"secure-auth/internal/shared/logger"
)

const shutdownTimeout = 30 * time.Second

// Container holds the application's modules and shared services.
type Container struct {
	mu sync.RWMutex

	AuthModule *auth.AuthModule
	AuthConfig *config.Config
	EventBus   *eventbus.EventBus
	Logger     logger.Logger
}

// NewContainer creates an empty container.
func NewContainer(log logger.Logger) *Container {
	if log == nil {
		log = logger.NewLogger()
	}
	return &Container{Logger: log}
}

// InitializeAuth creates the auth module on the container's logger and event bus.
func (c *Container) InitializeAuth(ctx context.Context, authConfig *config.Config, opts auth.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.AuthModule != nil {
		return fmt.Errorf("auth module already initialized")
	}
	if c.EventBus == nil {
		c.EventBus = eventbus.NewEventBus(c.Logger)
	}
	if opts.Logger == nil {
		opts.Logger = c.Logger
	}
	if opts.Bus == nil {
		opts.Bus = c.EventBus
	}

	authModule, err := auth.NewAuthModule(ctx, authConfig, opts)
	if err != nil {
		return fmt.Errorf("failed to create auth module: %w", err)
	}

	c.AuthConfig = authConfig
	c.AuthModule = authModule
	return nil
}

// GetAuthModule returns the auth module instance
func (c *Container) GetAuthModule() *auth.AuthModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.AuthModule
}

// HealthCheck reports the first unhealthy dependency.
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.AuthModule == nil {
		return fmt.Errorf("auth module not initialized")
	}
	if err := c.AuthModule.Health(ctx); err != nil {
		return fmt.Errorf("auth module health check failed: %w", err)
	}
	return nil
}

// Cleanup stops the auth module.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.AuthModule == nil {
		return nil
	}
	err := c.AuthModule.Stop(ctx)
	c.AuthModule = nil
	if err != nil {
		return fmt.Errorf("failed to stop auth module: %w", err)
	}
	return nil
}

// Close runs Cleanup with a bounded timeout.
func (c *Container) Close() error {
	c.Logger.Info("Closing DI container resources...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := c.Cleanup(ctx); err != nil {
		c.Logger.Warnf("Cleanup errors occurred: %v", err)
		return err
	}

	c.Logger.Info("DI container resources closed")
	return nil
}
