package protection

import (
	"context"
	"strings"

	"github.com/kestrelsec/warden/internal/logger"
	"github.com/kestrelsec/warden/internal/metrics"
)

// Category is the traffic-source classification of a request.
type Category string

const (
	CategoryHuman        Category = "human"
	CategorySearchEngine Category = "search_engine"
	CategoryPreview      Category = "preview"
	CategoryCurl         Category = "curl"
	CategoryGenericBot   Category = "generic_bot"
	CategoryUnknown      Category = "unknown"
)

// Automated reports whether the category represents non-human traffic.
// Unknown is deliberately not automated: ambiguous traffic must not be
// denied by default.
func (c Category) Automated() bool {
	switch c {
	case CategorySearchEngine, CategoryPreview, CategoryCurl, CategoryGenericBot:
		return true
	default:
		return false
	}
}

// Classifier categorizes a request's origin. Remote implementations should
// honor ctx deadlines; an error makes the engine apply the rule's fail policy.
type Classifier interface {
	Classify(ctx context.Context, req *RequestInfo) (Category, error)
}

// BotRule denies automated traffic unless its category is allow-listed.
type BotRule struct {
	mode       Mode
	classifier Classifier
	allow      map[Category]struct{}
}

// NewBotRule builds the bot classification rule. allow lists the categories
// exempt from deny even though they are automated.
func NewBotRule(mode Mode, classifier Classifier, allow []string) *BotRule {
	set := make(map[Category]struct{}, len(allow))
	for _, a := range allow {
		set[Category(strings.ToLower(strings.TrimSpace(a)))] = struct{}{}
	}
	return &BotRule{mode: mode, classifier: classifier, allow: set}
}

// Name implements Rule.
func (b *BotRule) Name() string { return "bot" }

// Evaluate implements Rule.
func (b *BotRule) Evaluate(ctx context.Context, req *RequestInfo) (Verdict, error) {
	if b.mode == ModeDisabled {
		return Allow(), nil
	}

	cat, err := b.classifier.Classify(ctx, req)
	if err != nil {
		return Verdict{}, err
	}

	if _, ok := b.allow[cat]; ok {
		return Allow(), nil
	}
	if !cat.Automated() {
		return Allow(), nil
	}

	if b.mode == ModeMonitor {
		metrics.IncProtectionMonitored(b.Name())
		logger.WithFields(map[string]interface{}{
			"rule":     b.Name(),
			"category": string(cat),
			"client":   req.ClientIP,
		}).Info("bot rule monitored automated request")
		return Allow(), nil
	}

	return Deny(b.Name(), ReasonBotDenied, "category "+string(cat)+" not allow-listed"), nil
}

// UserAgentClassifier is the default local classifier. It buckets traffic by
// well-known user-agent markers and never errors, so it needs no fail policy.
type UserAgentClassifier struct{}

var uaBuckets = []struct {
	category Category
	markers  []string
}{
	{CategorySearchEngine, []string{"googlebot", "bingbot", "duckduckbot", "baiduspider", "yandexbot", "applebot"}},
	{CategoryPreview, []string{"slackbot", "twitterbot", "facebookexternalhit", "discordbot", "linkedinbot", "telegrambot", "whatsapp"}},
	{CategoryCurl, []string{"curl/", "wget/", "httpie/"}},
	{CategoryGenericBot, []string{"bot", "spider", "crawler", "scrapy", "python-requests", "python-urllib", "go-http-client", "java/", "okhttp"}},
}

// Classify implements Classifier using user-agent heuristics.
func (UserAgentClassifier) Classify(_ context.Context, req *RequestInfo) (Category, error) {
	ua := strings.ToLower(req.UserAgent)
	if ua == "" {
		return CategoryUnknown, nil
	}

	for _, bucket := range uaBuckets {
		for _, m := range bucket.markers {
			if strings.Contains(ua, m) {
				return bucket.category, nil
			}
		}
	}

	if strings.Contains(ua, "mozilla/") {
		return CategoryHuman, nil
	}
	return CategoryUnknown, nil
}
