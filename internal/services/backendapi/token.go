package backendapi

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bmakarand2009/studiomedia/internal/services/clock"
	"github.com/bmakarand2009/studiomedia/internal/utils/apiError"
)

// bearerToken holds the configured backend credential. The token is issued
// elsewhere and treated as opaque except for its expiry claim, which is
// read (unverified) so requests with a dead credential fail locally
// instead of producing a string of backend 401s.
type bearerToken struct {
	raw          string
	clockService clock.Service
	claims       jwt.RegisteredClaims
	opaque       bool
}

func newBearerToken(raw string, clockService clock.Service) (*bearerToken, error) {
	token := &bearerToken{
		raw:          raw,
		clockService: clockService,
	}

	parser := jwt.NewParser()
	_, _, err := parser.ParseUnverified(raw, &token.claims)
	if err != nil {
		// not a jwt, use it as-is and let the backend decide
		token.opaque = true
	}

	return token, nil
}

func (t *bearerToken) ensureValid() error {
	if t.opaque || t.claims.ExpiresAt == nil {
		return nil
	}

	if t.clockService.Now().After(t.claims.ExpiresAt.Time) {
		return fmt.Errorf("bearer credential expired at %s: %w", t.claims.ExpiresAt.Time, apiError.ErrApiUnauthorized)
	}

	return nil
}
