package evaluator

import (
	"context"
	"strings"

	"webhookgw.io/gateway/internal/engine"
	apperrors "webhookgw.io/gateway/internal/pkg/errors"
)

// DryValidate runs transform and filter against a throwaway one-row view
// synthesized from "{}". A failure here means the webhook is never
// persisted — the error is classified as Invalid, distinct from the
// EvaluationError a real payload can produce later.
func DryValidate(ctx context.Context, eng *engine.Handle, transform string, filter *string) error {
	if !strings.Contains(transform, "{{payload}}") {
		return apperrors.ErrInvalidTransform("must contain the literal token {{payload}}")
	}

	_, err := Evaluate(ctx, eng, transform, filter, "{}")
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if e, ok := err.(*EvaluationError); ok {
		evalErr = e
	}
	if evalErr != nil && evalErr.Stage == "filter" {
		return apperrors.ErrInvalidFilter(evalErr.Err.Error())
	}
	return apperrors.ErrInvalidTransform(err.Error())
}
