// Package ingress is the transport-agnostic webhook pipeline: catalog
// lookup, raw-event write, evaluation, dispatch, transformed-event write.
// It never fails the HTTP response for evaluation or dispatch problems —
// those are recorded outcomes, not ingress errors.
package ingress

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"webhookgw.io/gateway/internal/audit"
	"webhookgw.io/gateway/internal/catalog"
	"webhookgw.io/gateway/internal/dispatcher"
	"webhookgw.io/gateway/internal/engine"
	"webhookgw.io/gateway/internal/evaluator"
	apperrors "webhookgw.io/gateway/internal/pkg/errors"
)

// Outcome is the body the ingress handler returns to the caller.
type Outcome struct {
	EventID  string `json:"event_id"`
	Filtered bool   `json:"filtered"`
	Dispatch *DispatchOutcome `json:"dispatch,omitempty"`
}

// DispatchOutcome summarizes the delivery attempt, when one was made.
type DispatchOutcome struct {
	Success      bool   `json:"success"`
	ResponseCode int    `json:"response_code"`
}

// Orchestrator wires the catalog, evaluator, dispatcher, and audit log
// into the event-processing pipeline described for a single ingress
// request.
type Orchestrator struct {
	cat  *catalog.Catalog
	eng  *engine.Handle
	disp *dispatcher.Dispatcher
	log  *audit.Log
	zlog *zap.Logger
}

// New builds an Orchestrator from its collaborators.
func New(cat *catalog.Catalog, eng *engine.Handle, disp *dispatcher.Dispatcher, log *audit.Log, zlog *zap.Logger) *Orchestrator {
	return &Orchestrator{cat: cat, eng: eng, disp: disp, log: log, zlog: zlog}
}

// Process runs the full pipeline for one inbound event at sourcePath.
// Returns apperrors.ErrWebhookNotFound (404-mapped) for unknown paths; the
// caller is responsible for 400-ing non-JSON bodies before calling this.
func (o *Orchestrator) Process(ctx context.Context, sourcePath string, payloadJSON, headersJSON string) (*Outcome, error) {
	wh, err := o.cat.GetWebhookByPath(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	if !wh.Active {
		return nil, apperrors.ErrWebhookNotFound(sourcePath)
	}

	raw, err := o.log.WriteRawEvent(ctx, sourcePath, payloadJSON, headersJSON)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{EventID: raw.ID}

	result, err := evaluator.Evaluate(ctx, o.eng, wh.Transform, wh.Filter, payloadJSON)
	if err != nil {
		o.zlog.Warn("evaluation failed", zap.String("webhook_id", wh.ID), zap.String("event_id", raw.ID), zap.Error(err))
		_, writeErr := o.log.WriteTransformedEvent(ctx, raw.ID, wh.ID, wh.DestinationURL, false, 0, err.Error(), "")
		if writeErr != nil {
			return nil, writeErr
		}
		outcome.Dispatch = &DispatchOutcome{Success: false, ResponseCode: 0}
		return outcome, nil
	}

	if result.Filtered {
		outcome.Filtered = true
		return outcome, nil
	}

	transformedJSON, err := json.Marshal(result.Transformed)
	if err != nil {
		return nil, apperrors.ErrEngine(err)
	}

	dispatchResult, err := o.disp.Dispatch(ctx, wh.DestinationURL, result.Transformed)
	if err != nil {
		return nil, apperrors.ErrEngine(err)
	}

	if _, err := o.log.WriteTransformedEvent(ctx, raw.ID, wh.ID, wh.DestinationURL,
		dispatchResult.Success, dispatchResult.StatusCode, dispatchResult.ResponseBody, string(transformedJSON)); err != nil {
		return nil, err
	}

	outcome.Dispatch = &DispatchOutcome{
		Success:      dispatchResult.Success,
		ResponseCode: dispatchResult.StatusCode,
	}
	o.zlog.Info("event dispatched",
		zap.String("webhook_id", wh.ID),
		zap.String("event_id", raw.ID),
		zap.Bool("success", dispatchResult.Success),
		zap.Int("response_code", dispatchResult.StatusCode),
		zap.Duration("duration", dispatchResult.Duration),
		zap.Time("at", time.Now()),
	)
	return outcome, nil
}
