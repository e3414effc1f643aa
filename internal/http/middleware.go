package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/energia/energia-dashboard/internal/api"
	"github.com/energia/energia-dashboard/internal/domain"
	"github.com/energia/energia-dashboard/internal/session"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	sessionKey      = "session"
)

// Sessions is the login boundary the handlers rely on. *session.Manager
// implements it.
type Sessions interface {
	Login(ctx context.Context, creds domain.Credentials) (*session.Session, string, error)
	Resolve(ctx context.Context, token string) (*session.Session, error)
	Logout(ctx context.Context, token string) error
}

// RequestLogger tags each request with an id and logs it once done.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		id := c.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(requestIDKey, id)
		c.Set(requestIDHeader, id)

		err := c.Next()
		if err != nil {
			// Run the error handler now so the logged status is the real one.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		log.Info().
			Str("request_id", id).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("request")
		return nil
	}
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

// RequireSession resolves the session cookie and scopes the API token to
// the request context.
func RequireSession(sessions Sessions, cookie string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := sessions.Resolve(c.UserContext(), c.Cookies(cookie))
		if err != nil {
			return err
		}
		c.Locals(sessionKey, s)
		c.SetUserContext(api.WithToken(c.UserContext(), s.APIToken))
		return c.Next()
	}
}

func currentSession(c *fiber.Ctx) *session.Session {
	s, _ := c.Locals(sessionKey).(*session.Session)
	return s
}
