package tool

import "encoding/json"

// Result is the structured outcome of a tool execution. Tools that talk to
// external systems report failure here instead of returning an error, so the
// agent loop can feed the failure back into the conversation and keep going.
type Result struct {
	Successful  bool   `json:"query_successful"`
	Data        any    `json:"data"`
	RecordCount int    `json:"record_count"`
	ElapsedMs   int64  `json:"execution_time_ms"`
	Error       string `json:"error,omitempty"`
}

// Encode renders the result as the JSON payload fed back to the model.
// Encoding failure degrades to an error-shaped result string rather than
// propagating, keeping the never-raise contract.
func (r Result) Encode() string {
	raw, err := json.Marshal(r)
	if err != nil {
		return `{"query_successful":false,"data":[],"record_count":0,"execution_time_ms":0,"error":"failed to encode tool result"}`
	}
	return string(raw)
}

// Failure builds a failed result carrying the given error text.
func Failure(errText string) Result {
	return Result{
		Successful: false,
		Data:       []any{},
		Error:      errText,
	}
}
