package protection

import (
	"context"
	"regexp"
	"strings"

	"github.com/kestrelsec/warden/internal/logger"
	"github.com/kestrelsec/warden/internal/metrics"
)

// Mode controls whether a rule enforces, observes, or is skipped entirely.
type Mode string

const (
	ModeLive     Mode = "live"
	ModeMonitor  Mode = "monitor"
	ModeDisabled Mode = "disabled"
)

// ParseMode normalizes a config string, treating unknown values as disabled.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(s)) {
	case ModeLive:
		return ModeLive
	case ModeMonitor:
		return ModeMonitor
	default:
		return ModeDisabled
	}
}

// signature is one class of attack payload the shield looks for. The class
// name ends up in telemetry only; clients see a generic deny so probing the
// shield reveals nothing about which pattern tripped.
type signature struct {
	class   string
	pattern *regexp.Regexp
}

var shieldSignatures = []signature{
	{"sqli", regexp.MustCompile(`(?i)(\bunion\b[\s/*+]+(%20)*select\b|\bdrop\s+table\b|\binsert\s+into\b|'\s*(or|and)\s+[^=]{0,10}=|--\s*$|;\s*--)`)},
	{"xss", regexp.MustCompile(`(?i)(<\s*script\b|\bjavascript\s*:|\bon(error|load|click|mouseover)\s*=|<\s*iframe\b|document\s*\.\s*cookie)`)},
	{"traversal", regexp.MustCompile(`(?i)(\.\./|\.\.\\|%2e%2e%2f|%2e%2e/|\.\.%2f)`)},
	{"command_injection", regexp.MustCompile(`(?i)(;\s*(cat|ls|rm|wget|curl|sh|bash)\b|\|\s*(cat|ls|rm|wget|curl|sh|bash)\b|` + "`" + `[^` + "`" + `]+` + "`" + `|\$\((cat|ls|rm|wget|curl)\b)`)},
	{"null_byte", regexp.MustCompile(`(%00|\x00)`)},
}

// Headers whose values commonly smuggle payloads. Cookie and Authorization
// are skipped: opaque tokens trip false positives and never reach an
// interpreter unparsed.
var shieldInspectedHeaders = []string{"Referer", "X-Forwarded-For", "X-Api-Version", "Accept-Language"}

// Shield inspects structural and content signals of a request for known
// attack payloads. It holds no per-request state.
type Shield struct {
	mode Mode
}

// NewShield builds the shield rule in the given mode.
func NewShield(mode Mode) *Shield {
	return &Shield{mode: mode}
}

// Name implements Rule.
func (s *Shield) Name() string { return "shield" }

// Evaluate implements Rule. Any signature match denies with a generic
// reason; the matched class is recorded only in the verdict detail.
func (s *Shield) Evaluate(_ context.Context, req *RequestInfo) (Verdict, error) {
	if s.mode == ModeDisabled {
		return Allow(), nil
	}

	class, where := s.match(req)
	if class == "" {
		return Allow(), nil
	}

	if s.mode == ModeMonitor {
		metrics.IncProtectionMonitored(s.Name())
		logger.WithFields(map[string]interface{}{
			"rule":   s.Name(),
			"class":  class,
			"target": where,
			"path":   req.Path,
		}).Info("shield monitored suspicious request")
		return Allow(), nil
	}

	return Deny(s.Name(), ReasonShieldBlocked, "signature class "+class+" in "+where), nil
}

// match returns the first matching signature class and which part of the
// request it matched in, or empty strings for a clean request.
func (s *Shield) match(req *RequestInfo) (class, where string) {
	targets := []struct {
		name  string
		value string
	}{
		{"path", req.Path},
		{"query", req.Query},
		{"body", req.Body},
	}
	for _, h := range shieldInspectedHeaders {
		if v := req.Header.Get(h); v != "" {
			targets = append(targets, struct {
				name  string
				value string
			}{"header:" + h, v})
		}
	}

	for _, t := range targets {
		if t.value == "" {
			continue
		}
		for _, sig := range shieldSignatures {
			if sig.pattern.MatchString(t.value) {
				return sig.class, t.name
			}
		}
	}
	return "", ""
}
