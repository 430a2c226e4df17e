package idempotency

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Kind tags which variant a Result holds.
type Kind int

const (
	KindStructured Kind = iota + 1
	KindOpaque
)

// Result is what a guarded operation returns: either a structured payload
// (status + JSON, recorded in the ledger) or an opaque body such as a file
// download (returned as is, never recorded).
type Result struct {
	Kind   Kind
	Status int

	// Structured
	Payload json.RawMessage

	// Opaque
	ContentType string
	Filename    string
	Body        []byte

	// Replayed is true when the result came from the ledger.
	Replayed bool
}

// Structured marshals v once. The stored and the first-returned bytes are
// the same slice, so a replay is byte-identical to the original response.
func Structured(status int, v any) (Result, error) {
	if status == 0 {
		status = http.StatusOK
	}
	b, err := json.Marshal(v)
	if err != nil {
		return Result{}, fmt.Errorf("marshal result: %w", err)
	}
	return Result{Kind: KindStructured, Status: status, Payload: b}, nil
}

// Opaque wraps a non-JSON body.
func Opaque(contentType, filename string, body []byte) Result {
	return Result{
		Kind:        KindOpaque,
		Status:      http.StatusOK,
		ContentType: contentType,
		Filename:    filename,
		Body:        body,
	}
}

func (r Result) IsStructured() bool { return r.Kind == KindStructured }

// Decode unmarshals a structured payload into v.
func (r Result) Decode(v any) error {
	if r.Kind != KindStructured {
		return fmt.Errorf("decode: result is not structured")
	}
	return json.Unmarshal(r.Payload, v)
}
