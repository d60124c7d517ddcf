package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeJSON decodes an upstream response body into a JSON object.
// An empty body decodes to nil with no error: it means the service sent no
// data, which is distinct from an empty object. A whitespace-only body is
// not JSON and fails like any other malformed body.
func DecodeJSON(body []byte) (map[string]any, error) {
	if len(body) == 0 {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(body))

	var v map[string]any
	if err := decoder.Decode(&v); err != nil {
		var syntaxErr *json.SyntaxError
		var unmarshalErr *json.UnmarshalTypeError

		switch {
		case errors.As(err, &syntaxErr):
			return nil, fmt.Errorf("malformed JSON at position %d: %w", syntaxErr.Offset, err)
		case errors.As(err, &unmarshalErr):
			return nil, fmt.Errorf("expected a JSON object, got %s: %w", unmarshalErr.Value, err)
		default:
			return nil, fmt.Errorf("failed to decode JSON: %w", err)
		}
	}

	// Only whitespace may follow the object.
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("response body contains data after the JSON object")
	}

	// A literal null is valid JSON but carries no data either.
	if v == nil {
		return nil, nil
	}

	return v, nil
}

// UpstreamMessage extracts the "message" field Bitly includes in error
// bodies. It returns "" when the body is not JSON or has no message.
func UpstreamMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}
