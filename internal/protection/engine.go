package protection

import (
	"context"

	"github.com/kestrelsec/warden/internal/logger"
	"github.com/kestrelsec/warden/internal/metrics"
)

// Recorder receives every deny verdict for telemetry. Implementations must
// not block the request path on failure; a lost event is preferable to a
// hung evaluation.
type Recorder interface {
	RecordDeny(v Verdict, req *RequestInfo)
}

// Engine runs the configured rules in order against a request and renders a
// single verdict. Rules are evaluated sequentially; the first deny wins and
// later rules are not consulted.
type Engine struct {
	rules    []Rule
	policies map[string]FailPolicy
	recorder Recorder
}

// NewEngine builds an engine over an ordered rule chain. recorder may be nil.
func NewEngine(recorder Recorder, rules ...Rule) *Engine {
	return &Engine{
		rules:    rules,
		policies: make(map[string]FailPolicy),
		recorder: recorder,
	}
}

// SetFailPolicy configures what happens when the named rule's check cannot
// run. Rules without an explicit policy fail open.
func (e *Engine) SetFailPolicy(rule string, p FailPolicy) {
	e.policies[rule] = p
}

// Evaluate renders the verdict for a single request.
func (e *Engine) Evaluate(ctx context.Context, req *RequestInfo) Verdict {
	metrics.IncProtectionRequest()

	for _, rule := range e.rules {
		v, err := rule.Evaluate(ctx, req)
		if err != nil {
			policy := e.policies[rule.Name()]
			logger.WithFields(map[string]interface{}{
				"rule":        rule.Name(),
				"fail_policy": string(policy),
				"path":        req.Path,
			}).WithError(err).Warn("protection rule check unavailable")

			if policy == FailClosed {
				v = Deny(rule.Name(), ReasonRuleUnavailable, err.Error())
			} else {
				continue
			}
		}

		if !v.Allowed {
			e.deny(v, req)
			return v
		}
	}

	return Allow()
}

func (e *Engine) deny(v Verdict, req *RequestInfo) {
	metrics.IncProtectionDenied(v.Rule)
	logger.WithFields(map[string]interface{}{
		"rule":        v.Rule,
		"reason":      string(v.Reason),
		"detail":      v.Detail,
		"fingerprint": req.Fingerprint(),
		"client":      req.ClientIP,
		"path":        req.Path,
	}).Warn("request denied by protection pipeline")

	if e.recorder != nil {
		e.recorder.RecordDeny(v, req)
	}
}
