package errors

import "net/http"

// Error code constants for the webhook gateway's admin-facing error taxonomy.
// Errors carry code + message only.

// Webhook error codes.
const (
	CodeWebhookNotFound    = "WEBHOOK_NOT_FOUND"
	CodePathConflict       = "SOURCE_PATH_CONFLICT"
	CodeInvalidTransform   = "INVALID_TRANSFORM"
	CodeInvalidFilter      = "INVALID_FILTER"
	CodeInvalidSourcePath  = "INVALID_SOURCE_PATH"
	CodeInvalidDestination = "INVALID_DESTINATION_URL"
)

// Reference table / UDF error codes.
const (
	CodeReferenceTableNotFound = "REFERENCE_TABLE_NOT_FOUND"
	CodeUDFNotFound            = "UDF_NOT_FOUND"
	CodeArtifactNameConflict   = "ARTIFACT_NAME_CONFLICT"
	CodeInvalidArtifactName    = "INVALID_ARTIFACT_NAME"
	CodeUDFCompileFailed       = "UDF_COMPILE_FAILED"
	CodeUDFFunctionNotFound    = "UDF_FUNCTION_NOT_FOUND"
	CodeCSVInvalid             = "CSV_INVALID"
)

// Event/query error codes.
const (
	CodeEventNotFound    = "EVENT_NOT_FOUND"
	CodeEvaluationFailed = "EVALUATION_FAILED"
	CodeEngineFailure    = "ENGINE_FAILURE"
)

// Auth error codes.
const (
	CodeAuthMissingKey = "MISSING_API_KEY"
	CodeAuthBadKey     = "INVALID_API_KEY"
)

// NotFound constructors.

func ErrWebhookNotFound(id string) *AppError {
	return New(CodeWebhookNotFound, "webhook not found: "+id, http.StatusNotFound)
}

func ErrReferenceTableNotFound(id string) *AppError {
	return New(CodeReferenceTableNotFound, "reference table not found: "+id, http.StatusNotFound)
}

func ErrUDFNotFound(id string) *AppError {
	return New(CodeUDFNotFound, "udf not found: "+id, http.StatusNotFound)
}

func ErrEventNotFound(id string) *AppError {
	return New(CodeEventNotFound, "event not found: "+id, http.StatusNotFound)
}

// Conflict constructors.

func ErrPathConflict(path string) *AppError {
	return New(CodePathConflict, "source_path already registered: "+path, http.StatusConflict)
}

func ErrArtifactNameConflict(name string) *AppError {
	return New(CodeArtifactNameConflict, "name already in use for this webhook: "+name, http.StatusConflict)
}

// Invalid (400) constructors.

func ErrInvalidTransform(reason string) *AppError {
	return New(CodeInvalidTransform, "invalid transform: "+reason, http.StatusBadRequest)
}

func ErrInvalidFilter(reason string) *AppError {
	return New(CodeInvalidFilter, "invalid filter: "+reason, http.StatusBadRequest)
}

func ErrInvalidSourcePath(reason string) *AppError {
	return New(CodeInvalidSourcePath, "invalid source_path: "+reason, http.StatusBadRequest)
}

func ErrInvalidDestination(reason string) *AppError {
	return New(CodeInvalidDestination, "invalid destination_url: "+reason, http.StatusBadRequest)
}

func ErrInvalidArtifactName(name string) *AppError {
	return New(CodeInvalidArtifactName, "name is not a safe identifier: "+name, http.StatusBadRequest)
}

func ErrUDFCompileFailed(reason string) *AppError {
	return New(CodeUDFCompileFailed, "udf compile failed: "+reason, http.StatusBadRequest)
}

func ErrUDFFunctionNotFound(name string) *AppError {
	return New(CodeUDFFunctionNotFound, "no top-level function named "+name, http.StatusBadRequest)
}

func ErrCSVInvalid(reason string) *AppError {
	return New(CodeCSVInvalid, "invalid csv: "+reason, http.StatusBadRequest)
}

// Auth constructors.

func ErrMissingAPIKey() *AppError {
	return New(CodeAuthMissingKey, "missing X-API-Key header", http.StatusUnauthorized)
}

func ErrBadAPIKey() *AppError {
	return New(CodeAuthBadKey, "invalid API key", http.StatusUnauthorized)
}

// ErrEngine wraps a catch-all underlying engine failure, preserving the
// original message verbatim for operator display.
func ErrEngine(err error) *AppError {
	return Wrap(err, CodeEngineFailure, err.Error(), http.StatusInternalServerError)
}
