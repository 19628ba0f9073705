package engine

import "encoding/base64"

// RowToJSON converts one result row into a JSON-ready map. Numeric, boolean,
// null, and string values from the driver pass through unchanged; blob
// columns are base64 encoded. SQLite has no native boolean or
// timestamp type, so this layer does not invent encodings beyond what the
// driver already returns — dates round-trip as the ISO-8601 text callers
// already stored them as.
func RowToJSON(row Row) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = columnValueToJSON(v)
	}
	return out
}

// RowsToJSON converts every row in a Result into JSON-ready maps, preserving
// order.
func RowsToJSON(rows []Row) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = RowToJSON(row)
	}
	return out
}

func columnValueToJSON(v any) any {
	switch val := v.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(val)
	default:
		return val
	}
}
