package protection

import (
	"context"
	"time"
)

// Reason is a stable code identifying why a request was denied. Reasons are
// safe to return to clients; the Verdict detail is not.
type Reason string

const (
	ReasonShieldBlocked     Reason = "shield_blocked"
	ReasonBotDenied         Reason = "bot_denied"
	ReasonRateLimitExceeded Reason = "rate_limit_exceeded"
	ReasonRuleUnavailable   Reason = "rule_check_unavailable"
)

// Verdict is the outcome of evaluating a single rule, or of the whole engine.
type Verdict struct {
	Allowed bool
	Rule    string
	Reason  Reason
	// RetryAfter is non-zero only for rate-limit denials.
	RetryAfter time.Duration
	// Detail describes what actually triggered the deny. It goes to logs and
	// telemetry only, never to the client.
	Detail string
}

// Allow returns the permissive verdict.
func Allow() Verdict {
	return Verdict{Allowed: true}
}

// Deny returns a blocking verdict attributed to a rule.
func Deny(rule string, reason Reason, detail string) Verdict {
	return Verdict{Rule: rule, Reason: reason, Detail: detail}
}

// Rule is a single protection check. Evaluate returns an error only when the
// check itself could not run (e.g., an unreachable classifier); the engine
// then applies the rule's configured fail policy instead of a verdict.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, req *RequestInfo) (Verdict, error)
}

// FailPolicy decides what a rule error resolves to.
type FailPolicy string

const (
	// FailOpen lets the request through when the rule cannot run.
	FailOpen FailPolicy = "open"
	// FailClosed denies the request when the rule cannot run.
	FailClosed FailPolicy = "closed"
)

// ParseFailPolicy maps a config string to a policy. Anything other than
// "closed" resolves to fail-open.
func ParseFailPolicy(s string) FailPolicy {
	if s == string(FailClosed) {
		return FailClosed
	}
	return FailOpen
}
