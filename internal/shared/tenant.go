package shared

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// SocietyHeader carries the target tenant on API requests.
const SocietyHeader = "X-Society-ID"

// societyQueryParam is the query-string fallback for the target tenant.
const societyQueryParam = "societyId"

const maxPeekBody = 1 << 20

// TargetSociety resolves the tenant a request addresses.
// Precedence: header > query string > request body.
//
// When the body is consulted it is re-buffered so downstream decoding still works.
func TargetSociety(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(SocietyHeader)); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.URL.Query().Get(societyQueryParam)); id != "" {
		return id
	}
	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBody))
	if err != nil {
		return ""
	}
	// Stitch the unread remainder back on so oversized bodies reach the
	// handler intact instead of silently truncated at the peek limit.
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(data), r.Body))
	var envelope struct {
		SocietyID string `json:"societyId"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ""
	}
	return strings.TrimSpace(envelope.SocietyID)
}
