package transport

import (
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"bookledger/internal/errs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodyBytes = 1 << 20

// WriteJSON writes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads the request body into v. Malformed or oversized bodies
// are reported as InvalidArgument.
func DecodeJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return errs.InvalidArgumentf("failed to read request body: %v", err)
	}
	if len(body) > maxBodyBytes {
		return errs.InvalidArgumentf("request body exceeds %d bytes", maxBodyBytes)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errs.InvalidArgumentf("malformed JSON body: %v", err)
	}
	return nil
}
