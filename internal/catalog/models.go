// Package catalog is the durable metadata store for webhooks, reference
// tables, and UDFs. It owns metadata rows only — physical engine objects
// are owned by internal/installer.
package catalog

// Webhook is a registered ingress path with its transform/filter pipeline
// and destination.
type Webhook struct {
	ID             string  `json:"id"`
	SourcePath     string  `json:"source_path"`
	DestinationURL string  `json:"destination_url"`
	Transform      string  `json:"transform"`
	Filter         *string `json:"filter,omitempty"`
	Owner          string  `json:"owner"`
	Active         bool    `json:"active"`
	CreatedAt      string  `json:"created_at"`
}

// ReferenceTable is a webhook-scoped CSV-backed lookup table.
type ReferenceTable struct {
	ID           string `json:"id"`
	WebhookID    string `json:"webhook_id"`
	LogicalName  string `json:"logical_name"`
	Description  string `json:"description,omitempty"`
	PhysicalName string `json:"physical_name"`
	CreatedAt    string `json:"created_at"`
}

// UDF is a webhook-scoped scalar function. ParamTypes is a comma-separated
// list of declared parameter type hints (str|int|float|bool, one per
// parameter); ReturnType is the declared return type hint. Both are empty
// when the caller registered the UDF without hints, in which case every
// value is treated as text.
type UDF struct {
	ID           string `json:"id"`
	WebhookID    string `json:"webhook_id"`
	LogicalName  string `json:"logical_name"`
	SourceText   string `json:"source_text"`
	PhysicalName string `json:"physical_name"`
	ParamTypes   string `json:"param_types,omitempty"`
	ReturnType   string `json:"return_type,omitempty"`
	CreatedAt    string `json:"created_at"`
}
