package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mediaguard/internal/pools"
)

// RespondJSON writes a JSON response using a pooled buffer to cut
// allocations on the hot status-polling paths.
func RespondJSON(w http.ResponseWriter, code int, payload interface{}) {
	buf := pools.GetBuffer()
	defer pools.PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		response, _ := json.Marshal(payload)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		w.Write(response)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}

// RespondError writes a JSON error response.
func RespondError(w http.ResponseWriter, code int, message string) {
	RespondJSON(w, code, map[string]string{"error": message})
}

const maxJSONBodyBytes = 1 << 20 // 1 MiB, per spec.md §4.7 request validation

// DecodeJSON decodes a JSON request body into v, rejecting unknown
// fields, bodies over 1 MiB, and trailing content, with messages precise
// enough to return directly as a 400 (spec.md §7: "input validation —
// rejected with 4xx and a precise message").
func DecodeJSON(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxJSONBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError

		switch {
		case errors.As(err, &syntaxErr):
			return fmt.Errorf("malformed JSON at position %d", syntaxErr.Offset)
		case errors.As(err, &typeErr):
			return fmt.Errorf("incorrect type for field %q", typeErr.Field)
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return fmt.Errorf("unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
