package http

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/classhub/subject-service/internal/auth"
	"github.com/classhub/subject-service/internal/config"
	"github.com/classhub/subject-service/internal/events"
	"github.com/classhub/subject-service/internal/observability"
	apperrors "github.com/classhub/subject-service/pkg/util"
)

// RegisterMiddlewares attaches the global chain: correlation id, request
// timeout, error rendering and request logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, dispatcher events.Dispatcher, timeout time.Duration) {
	app.Use(requestIDMiddleware())
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics, dispatcher))
	app.Use(observability.RequestLogger(logger, metrics))
}

func requestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(fiber.HeaderXRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Locals(observability.RequestIDKey, rid)
		c.Set(fiber.HeaderXRequestID, rid)
		return c.Next()
	}
}

// requestTimeoutMiddleware bounds the user context that handlers hand to
// services, so repository calls inherit the deadline.
func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics, dispatcher events.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				if metrics != nil {
					metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				}
				if domainErr.Code == apperrors.CodeForbidden {
					publishAccessDenied(c, dispatcher)
				}
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

// publishAccessDenied records a role-guard rejection on the audit trail.
// The guard itself stays a pure decision; attribution happens here where
// the request context is at hand.
func publishAccessDenied(c *fiber.Ctx, dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAccessDenied,
		Timestamp: time.Now(),
		Payload:   events.AccessDeniedPayload{Method: c.Method(), Path: c.Path()},
	}
	if principal, ok := auth.PrincipalFromContext(c); ok && principal != nil {
		event.Username = principal.Username
		event.Actor = events.Actor{AccountID: principal.AccountID, Username: principal.Username, Role: principal.Role}
	}
	_ = dispatcher.Publish(c.UserContext(), event)
}

const (
	limiterSweepInterval = time.Minute
	limiterClientTTL     = 10 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type loginLimiter struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	rps     rate.Limit
	burst   int
}

// NewLoginRateLimiter throttles the credential endpoints with one token
// bucket per client IP, so a guessing loop from one address cannot starve
// logins from everyone else. Idle buckets are swept out in the background
// until ctx is cancelled. A non-positive rate disables throttling.
func NewLoginRateLimiter(ctx context.Context, cfg config.RateLimitConfig, dispatcher events.Dispatcher) fiber.Handler {
	if cfg.LoginRPS <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	l := &loginLimiter{
		clients: make(map[string]*limiterEntry),
		rps:     rate.Limit(cfg.LoginRPS),
		burst:   cfg.LoginBurst,
	}
	go l.sweep(ctx)

	return func(c *fiber.Ctx) error {
		if l.allow(c.IP()) {
			return c.Next()
		}
		if dispatcher != nil {
			_ = dispatcher.Publish(c.UserContext(), events.Event{
				ID:        uuid.NewString(),
				Type:      events.EventLoginThrottled,
				Timestamp: time.Now(),
				Payload:   events.LoginThrottledPayload{RemoteIP: c.IP()},
			})
		}
		return apperrors.NewTooManyRequests("too many attempts, slow down")
	}
}

func (l *loginLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.clients[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

func (l *loginLimiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			for ip, entry := range l.clients {
				if time.Since(entry.lastSeen) > limiterClientTTL {
					delete(l.clients, ip)
				}
			}
			l.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}
