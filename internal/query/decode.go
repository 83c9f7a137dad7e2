package query

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Decode reads the JSON carried by the q parameter, either as produced by
// Encode or already unescaped by the HTTP layer. Input that starts with "{" is
// JSON as is and never unescaped again. Missing or malformed input yields the
// empty request together with a non-nil error the caller may log; the request
// is always usable. Errors wrapping ErrInvalidRequest mark a well-formed
// request that must be refused rather than searched as empty.
func Decode(q string) (SearchRequest, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return SearchRequest{}, nil
	}
	raw := q
	if !strings.HasPrefix(q, "{") {
		if unescaped, err := url.QueryUnescape(q); err == nil {
			raw = unescaped
		}
	}
	var req SearchRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return SearchRequest{}, err
	}
	return req, nil
}

// Encode produces a q value for shareable links; Decode(Encode(r)) yields r.
func Encode(req SearchRequest) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(string(b)), nil
}
