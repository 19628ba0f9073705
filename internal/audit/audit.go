// Package audit owns the two append-only event tables: raw ingress
// records and dispatch outcomes. Nothing outside this package writes to
// raw_events or transformed_events.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"webhookgw.io/gateway/internal/engine"
	apperrors "webhookgw.io/gateway/internal/pkg/errors"
)

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// RawEvent is one immutable ingress record.
type RawEvent struct {
	ID         string `json:"id"`
	SourcePath string `json:"source_path"`
	Payload    string `json:"payload"`
	Headers    string `json:"headers"`
	CreatedAt  string `json:"created_at"`
}

// TransformedEvent is one immutable dispatch outcome.
type TransformedEvent struct {
	ID                  string `json:"id"`
	RawEventID          string `json:"raw_event_id"`
	WebhookID           string `json:"webhook_id"`
	DestinationURL      string `json:"destination_url"`
	Success             bool   `json:"success"`
	ResponseCode        int    `json:"response_code"`
	ResponseBody        string `json:"response_body"`
	TransformedPayload  string `json:"transformed_payload"`
	CreatedAt           string `json:"created_at"`
}

// SuccessRate is a per-webhook dispatch rollup.
type SuccessRate struct {
	WebhookID    string  `json:"webhook_id"`
	Total        int64   `json:"total"`
	Successful   int64   `json:"successful"`
	SuccessRatio float64 `json:"success_ratio"`
}

// Log is the audit writer/reader, backed by the shared engine handle.
type Log struct {
	eng *engine.Handle
}

// New wraps an engine handle as an audit Log.
func New(eng *engine.Handle) *Log {
	return &Log{eng: eng}
}

// WriteRawEvent records one ingress event before the evaluator runs, so a
// crash after acceptance leaves a recoverable record.
func (l *Log) WriteRawEvent(ctx context.Context, sourcePath, payloadJSON, headersJSON string) (*RawEvent, error) {
	ev := &RawEvent{
		ID:         uuid.New().String(),
		SourcePath: sourcePath,
		Payload:    payloadJSON,
		Headers:    headersJSON,
		CreatedAt:  now(),
	}
	_, err := l.eng.Exec(ctx,
		`INSERT INTO raw_events (id, source_path, payload, headers, created_at) VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.SourcePath, ev.Payload, ev.Headers, ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// WriteTransformedEvent records one dispatch attempt's outcome. Called
// after the dispatch attempt completes, whatever its result, so exactly
// one row corresponds to each attempted delivery.
func (l *Log) WriteTransformedEvent(ctx context.Context, rawEventID, webhookID, destinationURL string, success bool, responseCode int, responseBody, transformedPayload string) (*TransformedEvent, error) {
	ev := &TransformedEvent{
		ID:                 uuid.New().String(),
		RawEventID:         rawEventID,
		WebhookID:          webhookID,
		DestinationURL:     destinationURL,
		Success:            success,
		ResponseCode:       responseCode,
		ResponseBody:       responseBody,
		TransformedPayload: transformedPayload,
		CreatedAt:          now(),
	}
	successInt := 0
	if success {
		successInt = 1
	}
	_, err := l.eng.Exec(ctx,
		`INSERT INTO transformed_events (id, raw_event_id, webhook_id, destination_url, success, response_code, response_body, transformed_payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.RawEventID, ev.WebhookID, ev.DestinationURL, successInt, ev.ResponseCode, ev.ResponseBody, ev.TransformedPayload, ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// RecentEvents returns the most recent raw events, newest first, bounded
// by limit.
func (l *Log) RecentEvents(ctx context.Context, limit int) ([]*RawEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	res, err := l.eng.Query(ctx,
		`SELECT id, source_path, payload, headers, created_at FROM raw_events ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*RawEvent, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, &RawEvent{
			ID:         stringOf(row["id"]),
			SourcePath: stringOf(row["source_path"]),
			Payload:    stringOf(row["payload"]),
			Headers:    stringOf(row["headers"]),
			CreatedAt:  stringOf(row["created_at"]),
		})
	}
	return out, nil
}

// TransformedEventByRawEventID returns the dispatch outcome for a given
// raw event id, or NotFound if no dispatch was attempted (e.g. the event
// was filtered out).
func (l *Log) TransformedEventByRawEventID(ctx context.Context, rawEventID string) (*TransformedEvent, error) {
	res, err := l.eng.Query(ctx,
		`SELECT id, raw_event_id, webhook_id, destination_url, success, response_code, response_body, transformed_payload, created_at
		 FROM transformed_events WHERE raw_event_id = ?`, rawEventID)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, apperrors.ErrEventNotFound(rawEventID)
	}
	row := res.Rows[0]
	return &TransformedEvent{
		ID:                 stringOf(row["id"]),
		RawEventID:         stringOf(row["raw_event_id"]),
		WebhookID:          stringOf(row["webhook_id"]),
		DestinationURL:     stringOf(row["destination_url"]),
		Success:            intOf(row["success"]) != 0,
		ResponseCode:       int(intOf(row["response_code"])),
		ResponseBody:       stringOf(row["response_body"]),
		TransformedPayload: stringOf(row["transformed_payload"]),
		CreatedAt:          stringOf(row["created_at"]),
	}, nil
}

// SuccessRateRollup returns a per-webhook count/success rollup over all
// recorded dispatch attempts.
func (l *Log) SuccessRateRollup(ctx context.Context) ([]*SuccessRate, error) {
	res, err := l.eng.Query(ctx,
		`SELECT webhook_id, COUNT(*) AS total, SUM(success) AS successful
		 FROM transformed_events GROUP BY webhook_id ORDER BY webhook_id`)
	if err != nil {
		return nil, err
	}
	out := make([]*SuccessRate, 0, len(res.Rows))
	for _, row := range res.Rows {
		total := intOf(row["total"])
		successful := intOf(row["successful"])
		ratio := 0.0
		if total > 0 {
			ratio = float64(successful) / float64(total)
		}
		out = append(out, &SuccessRate{
			WebhookID:    stringOf(row["webhook_id"]),
			Total:        total,
			Successful:   successful,
			SuccessRatio: ratio,
		})
	}
	return out, nil
}

func stringOf(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func intOf(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
