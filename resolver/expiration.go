package resolver

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-wizard"
)

// Expiration resolves the expiration date of the item.
type Expiration struct{}

func NewExpiration() *Expiration { return &Expiration{} }

func (r *Expiration) Kind() wizard.ObjectKind { return wizard.KindExpirationDate }

func (r *Expiration) Scan(_ context.Context, _ Request, code string) (any, error) {
	t, ok := parseDate(code)
	if !ok {
		return nil, wizard.ResolutionFailed("scanned code is not a date: "+strings.TrimSpace(code), nil)
	}
	return t, nil
}

func (r *Expiration) Check(_ Request, value any) error {
	if _, ok := dateOf(value); !ok {
		return unexpected(r.Kind(), value)
	}
	return nil
}

func (r *Expiration) Apply(acc *wizard.Accumulator, _ wizard.Step, value any) error {
	t, ok := dateOf(value)
	if !ok {
		return unexpected(r.Kind(), value)
	}
	acc.SetExpiration(t)
	return nil
}

func dateOf(value any) (time.Time, bool) {
	if s, ok := value.(string); ok {
		return parseDate(s)
	}
	t, ok := as[time.Time](value)
	if !ok || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}
