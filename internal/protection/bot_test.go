package protection

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func uaRequest(userAgent string) *RequestInfo {
	return &RequestInfo{
		Method:    "GET",
		Path:      "/api/v1/auth/sign-in",
		ClientIP:  "198.51.100.4",
		UserAgent: userAgent,
		Header:    http.Header{},
	}
}

func TestUserAgentClassifier(t *testing.T) {
	cases := []struct {
		ua       string
		expected Category
	}{
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36", CategoryHuman},
		{"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", CategorySearchEngine},
		{"Mozilla/5.0 (compatible; bingbot/2.0)", CategorySearchEngine},
		{"Slackbot-LinkExpanding 1.0", CategoryPreview},
		{"Twitterbot/1.0", CategoryPreview},
		{"curl/8.4.0", CategoryCurl},
		{"Wget/1.21", CategoryCurl},
		{"Scrapy/2.11 (+https://scrapy.org)", CategoryGenericBot},
		{"python-requests/2.31.0", CategoryGenericBot},
		{"Go-http-client/1.1", CategoryGenericBot},
		{"", CategoryUnknown},
		{"SomeObscureAgent/0.1", CategoryUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.ua, func(t *testing.T) {
			cat, err := UserAgentClassifier{}.Classify(context.Background(), uaRequest(tc.ua))
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, cat)
		})
	}
}

func TestBotRule_AllowListedCategoryPasses(t *testing.T) {
	rule := NewBotRule(ModeLive, UserAgentClassifier{}, []string{"search_engine", "preview", "curl"})

	// A crawler is automated but allow-listed, so it passes.
	v, err := rule.Evaluate(context.Background(), uaRequest("Googlebot/2.1"))
	assert.NoError(t, err)
	assert.True(t, v.Allowed)

	v, err = rule.Evaluate(context.Background(), uaRequest("curl/8.4.0"))
	assert.NoError(t, err)
	assert.True(t, v.Allowed)
}

func TestBotRule_GenericBotDenied(t *testing.T) {
	rule := NewBotRule(ModeLive, UserAgentClassifier{}, []string{"search_engine", "preview", "curl"})

	v, err := rule.Evaluate(context.Background(), uaRequest("Scrapy/2.11"))

	assert.NoError(t, err)
	assert.False(t, v.Allowed)
	assert.Equal(t, ReasonBotDenied, v.Reason)
	assert.Equal(t, "bot", v.Rule)
}

func TestBotRule_HumanAndUnknownAllowed(t *testing.T) {
	rule := NewBotRule(ModeLive, UserAgentClassifier{}, nil)

	v, _ := rule.Evaluate(context.Background(), uaRequest("Mozilla/5.0 (Windows NT 10.0)"))
	assert.True(t, v.Allowed)

	// Ambiguous traffic defaults to allow rather than locking out real users.
	v, _ = rule.Evaluate(context.Background(), uaRequest(""))
	assert.True(t, v.Allowed)
}

func TestBotRule_EmptyAllowListDeniesAllAutomated(t *testing.T) {
	rule := NewBotRule(ModeLive, UserAgentClassifier{}, nil)

	v, _ := rule.Evaluate(context.Background(), uaRequest("Googlebot/2.1"))

	assert.False(t, v.Allowed)
}

func TestBotRule_MonitorModeAllows(t *testing.T) {
	rule := NewBotRule(ModeMonitor, UserAgentClassifier{}, nil)

	v, err := rule.Evaluate(context.Background(), uaRequest("Scrapy/2.11"))

	assert.NoError(t, err)
	assert.True(t, v.Allowed)
}

func TestBotRule_DisabledSkipsClassifier(t *testing.T) {
	rule := NewBotRule(ModeDisabled, failingClassifier{}, nil)

	v, err := rule.Evaluate(context.Background(), uaRequest("Scrapy/2.11"))

	assert.NoError(t, err)
	assert.True(t, v.Allowed)
}

type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, *RequestInfo) (Category, error) {
	return "", errors.New("classification service unreachable")
}

func TestBotRule_ClassifierErrorSurfacesToEngine(t *testing.T) {
	rule := NewBotRule(ModeLive, failingClassifier{}, nil)

	_, err := rule.Evaluate(context.Background(), uaRequest("anything"))
	assert.Error(t, err)

	// Wired through the engine, the configured policy decides the verdict.
	engine := NewEngine(nil, rule)
	engine.SetFailPolicy("bot", FailClosed)
	v := engine.Evaluate(context.Background(), uaRequest("anything"))
	assert.False(t, v.Allowed)
	assert.Equal(t, ReasonRuleUnavailable, v.Reason)

	engine.SetFailPolicy("bot", FailOpen)
	v = engine.Evaluate(context.Background(), uaRequest("anything"))
	assert.True(t, v.Allowed)
}
