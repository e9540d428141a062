package protection

import (
	"io"
	"net/http"
	"strings"
)

// maxBodySample bounds how much of a request body the rules inspect.
const maxBodySample = 8 * 1024

// RequestInfo is the immutable view of an inbound request the rules evaluate.
// It is built once per request by the edge middleware so individual rules
// never touch the underlying *http.Request.
type RequestInfo struct {
	Method    string
	Path      string
	Query     string
	ClientIP  string
	UserAgent string
	Header    http.Header
	Body      string // sampled, capped at maxBodySample
}

// NewRequestInfo captures the inspectable parts of req. It reads at most
// maxBodySample bytes of the body and leaves req.Body replaced by restore so
// downstream handlers still see the full payload.
func NewRequestInfo(req *http.Request, clientIP string) (*RequestInfo, func() io.ReadCloser) {
	info := &RequestInfo{
		Method:    req.Method,
		Path:      req.URL.Path,
		Query:     req.URL.RawQuery,
		ClientIP:  clientIP,
		UserAgent: req.UserAgent(),
		Header:    req.Header,
	}

	var rest io.ReadCloser
	if req.Body != nil && req.Body != http.NoBody {
		sample, _ := io.ReadAll(io.LimitReader(req.Body, maxBodySample))
		info.Body = string(sample)
		rest = req.Body
	}

	return info, func() io.ReadCloser {
		if rest == nil {
			return http.NoBody
		}
		return readCloser{io.MultiReader(strings.NewReader(info.Body), rest), rest}
	}
}

// Fingerprint derives the rate-limit partition key for the caller. Client IP
// plus route keeps separate endpoints from sharing one budget while still
// throttling a single caller hammering one route.
func (r *RequestInfo) Fingerprint() string {
	return r.ClientIP + "\x1f" + r.Path
}

type readCloser struct {
	io.Reader
	io.Closer
}
