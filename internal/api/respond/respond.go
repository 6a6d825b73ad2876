// Package respond writes the API's JSON bodies: cached player payloads with
// ETags, uncached health objects, and the error envelope.
package respond

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Code identifies an API error in the envelope.
type Code string

// Error codes returned by the API.
const (
	CodeInvalidLimit    Code = "INVALID_LIMIT"
	CodeInvalidPosition Code = "INVALID_POSITION"
	CodeQueryTooShort   Code = "QUERY_TOO_SHORT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeQueryFailed     Code = "QUERY_FAILED"
	CodeEncodeFailed    Code = "ENCODE_FAILED"
	CodeRateLimited     Code = "RATE_LIMITED"
)

// Status maps a code to its HTTP status.
func (c Code) Status() int {
	switch c {
	case CodeInvalidLimit, CodeInvalidPosition, CodeQueryTooShort:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the error envelope for every failed request.
type ErrorResponse struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
		Detail  string `json:"detail,omitempty"`
	} `json:"error"`
}

// WriteJSON writes an encoded player payload with ETag and cache headers.
func WriteJSON(w http.ResponseWriter, data []byte, etag string, ttl time.Duration, cacheHit bool) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", etag)
	w.Header().Set("Vary", "Accept-Encoding")
	setCacheHeaders(w, ttl, cacheHit)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// WriteNotModified sends a 304 with the matching ETag.
func WriteNotModified(w http.ResponseWriter, etag string) {
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusNotModified)
}

// Fail writes the envelope for code with its mapped status.
func Fail(w http.ResponseWriter, code Code, message string) {
	write(w, code, message, "")
}

// Failf is Fail with a formatted message.
func Failf(w http.ResponseWriter, code Code, format string, args ...any) {
	write(w, code, fmt.Sprintf(format, args...), "")
}

// QueryFailed reports a store error. The cause goes into detail.
func QueryFailed(w http.ResponseWriter, message string, err error) {
	write(w, CodeQueryFailed, message, err.Error())
}

func write(w http.ResponseWriter, code Code, message, detail string) {
	resp := ErrorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Detail = detail
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(code.Status())
	json.NewEncoder(w).Encode(resp)
}

// WriteJSONObject marshals v and writes it uncached. Used for health checks.
func WriteJSONObject(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func setCacheHeaders(w http.ResponseWriter, ttl time.Duration, cacheHit bool) {
	maxAge := int(ttl.Seconds())
	if cacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("Cache-Control",
		fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", maxAge, maxAge/2))
}
