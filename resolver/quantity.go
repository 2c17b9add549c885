package resolver

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-wizard"
)

// Quantity resolves how much of the item is moved. Values come from manual
// entry or from a scanned number.
type Quantity struct{}

func NewQuantity() *Quantity { return &Quantity{} }

func (r *Quantity) Kind() wizard.ObjectKind { return wizard.KindQuantity }

func (r *Quantity) Scan(_ context.Context, _ Request, code string) (any, error) {
	q, ok := parseQuantity(code)
	if !ok {
		return nil, wizard.ResolutionFailed("scanned code is not a quantity: "+strings.TrimSpace(code), nil)
	}
	if err := checkQuantity(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (r *Quantity) Check(_ Request, value any) error {
	q, ok := quantityOf(value)
	if !ok {
		return unexpected(r.Kind(), value)
	}
	return checkQuantity(q)
}

// checkQuantity rejects amounts a fact record cannot carry.
func checkQuantity(q float64) error {
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return wizard.NewError(wizard.ErrValidationRejected, "quantity must be a finite number", nil, nil)
	}
	if q < 0 {
		return wizard.NewError(wizard.ErrValidationRejected, "quantity cannot be negative", nil, nil)
	}
	return nil
}

func (r *Quantity) Apply(acc *wizard.Accumulator, _ wizard.Step, value any) error {
	q, ok := quantityOf(value)
	if !ok {
		return unexpected(r.Kind(), value)
	}
	acc.SetQuantity(q)
	return nil
}

func quantityOf(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case string:
		return parseQuantity(v)
	}
	return 0, false
}

func parseQuantity(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	q, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	// out of range parses to ±Inf or zero, checkQuantity decides
	return q, true
}
