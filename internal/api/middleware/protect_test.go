package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/kestrelsec/warden/internal/protection"
)

func protectedRouter(engine *protection.Engine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Protect(engine))
	r.POST("/echo", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(body))
	})
	return r
}

func send(r *gin.Engine, path, body, userAgent, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.RemoteAddr = ip + ":34000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProtect_AllowForwardsFullBody(t *testing.T) {
	engine := protection.NewEngine(nil, protection.NewShield(protection.ModeLive))
	r := protectedRouter(engine)

	w := send(r, "/echo", `{"hello":"world"}`, "Mozilla/5.0", "203.0.113.7")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"hello":"world"}`, w.Body.String(), "handler must see the body the shield sampled")
}

func TestProtect_ShieldDenyReturns403(t *testing.T) {
	engine := protection.NewEngine(nil, protection.NewShield(protection.ModeLive))
	r := protectedRouter(engine)

	w := send(r, "/echo", `{"q":"<script>alert(1)</script>"}`, "Mozilla/5.0", "203.0.113.7")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"shield_blocked"`)
	// Generic body only; the matched signature never reaches the client.
	assert.NotContains(t, w.Body.String(), "xss")
	assert.NotContains(t, w.Body.String(), "signature")
}

func TestProtect_BotDenyReturns403(t *testing.T) {
	engine := protection.NewEngine(nil,
		protection.NewBotRule(protection.ModeLive, protection.UserAgentClassifier{}, []string{"curl"}))
	r := protectedRouter(engine)

	w := send(r, "/echo", "{}", "Scrapy/2.11", "203.0.113.7")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"bot_denied"`)

	// curl is allow-listed even though it is automated.
	w = send(r, "/echo", "{}", "curl/8.4.0", "203.0.113.7")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtect_RateLimitReturns429WithRetryAfter(t *testing.T) {
	engine := protection.NewEngine(nil, protection.NewSlidingWindow(2*time.Second, 2))
	r := protectedRouter(engine)

	assert.Equal(t, http.StatusOK, send(r, "/echo", "{}", "Mozilla/5.0", "203.0.113.7").Code)
	assert.Equal(t, http.StatusOK, send(r, "/echo", "{}", "Mozilla/5.0", "203.0.113.7").Code)

	w := send(r, "/echo", "{}", "Mozilla/5.0", "203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"rate_limit_exceeded"`)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// A different caller is unaffected.
	assert.Equal(t, http.StatusOK, send(r, "/echo", "{}", "Mozilla/5.0", "203.0.113.9").Code)
}
