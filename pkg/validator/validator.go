// Package validator wraps go-playground/validator with rule lists that report
// every violation with a caller-supplied message.
package validator

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/utafrali/reviews/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Rule is one independent check on a single value. Tag uses validator's tag
// syntax, e.g. "gte=1,lte=5".
type Rule struct {
	Field   string
	Value   any
	Tag     string
	Message string
}

// Check evaluates every rule, in order, and returns one violation per failed
// rule. A nil result means all rules passed. A tag that validator cannot parse
// panics, as with validator itself.
func Check(rules ...Rule) []apperrors.FieldViolation {
	var violations []apperrors.FieldViolation
	for _, r := range rules {
		if err := validate.Var(r.Value, r.Tag); err != nil {
			violations = append(violations, apperrors.FieldViolation{Field: r.Field, Message: r.Message})
		}
	}
	return violations
}

// MaxBodyBytes bounds request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

// DecodeJSON decodes the request body into dst, limiting it to MaxBodyBytes.
// An empty body is an error.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if err == io.EOF {
			return fmt.Errorf("decode request body: empty body")
		}
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
