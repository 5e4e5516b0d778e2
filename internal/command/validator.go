package command

import (
	"strings"

	apperrors "github.com/utafrali/reviews/pkg/errors"
	"github.com/utafrali/reviews/pkg/validator"
)

// Field limits for CreateReview.
const (
	MaxUserIDLength     = 256
	MaxReviewTextLength = 2000
	MinRating           = 1
	MaxRating           = 5
)

// ValidateCreateReview checks every rule and returns one violation per failed
// rule, in a fixed order. Lengths are counted in Unicode code points and a
// UserId of only whitespace counts as missing. It has no side effects.
func ValidateCreateReview(cmd CreateReview) []apperrors.FieldViolation {
	rules := []validator.Rule{
		{Field: "ProductId", Value: cmd.ProductID, Tag: "gt=0", Message: "ProductId must be greater than 0"},
		{Field: "UserId", Value: strings.TrimSpace(cmd.UserID), Tag: "required", Message: "UserId is required"},
		{Field: "UserId", Value: cmd.UserID, Tag: "max=256", Message: "UserId must not exceed 256 characters"},
		{Field: "Rating", Value: cmd.Rating, Tag: "gte=1,lte=5", Message: "Rating must be between 1 and 5"},
	}
	if cmd.ReviewText != nil {
		rules = append(rules, validator.Rule{
			Field: "ReviewText", Value: *cmd.ReviewText, Tag: "max=2000",
			Message: "Review text must not exceed 2000 characters",
		})
	}
	return validator.Check(rules...)
}
