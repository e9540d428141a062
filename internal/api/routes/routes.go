package routes

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/kestrelsec/warden/internal/api/handlers"
	"github.com/kestrelsec/warden/internal/api/middleware"
	"github.com/kestrelsec/warden/internal/config"
	"github.com/kestrelsec/warden/internal/logger"
	"github.com/kestrelsec/warden/internal/metrics"
	"github.com/kestrelsec/warden/internal/models"
	"github.com/kestrelsec/warden/internal/protection"
	"github.com/kestrelsec/warden/internal/services"
)

// eventRetention is how long deny telemetry is kept before the maintenance
// job deletes it.
const eventRetention = 30 * 24 * time.Hour

// Register wires up API routes, performs automatic migrations, and starts
// the background maintenance schedule.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.ProtectionEvent{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics.Register(registry)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	eventService := services.NewEventService(db)
	authService := services.NewAuthService(db, cfg.JWTSecret, cfg.SessionTTL)
	engine, window := BuildEngine(cfg.Protection, eventService)

	authHandler := handlers.NewAuthHandler(authService)
	eventHandler := handlers.NewEventHandler(eventService)

	api := router.Group("/api/v1")
	api.GET("/health", handlers.HealthHandler)

	// Everything past this point goes through the protection pipeline first.
	guarded := api.Group("/")
	guarded.Use(middleware.Protect(engine))

	guarded.POST("/auth/sign-up", authHandler.SignUp)
	guarded.POST("/auth/sign-in", authHandler.SignIn)
	guarded.POST("/auth/sign-out", authHandler.SignOut)

	protected := guarded.Group("/")
	protected.Use(middleware.Auth(authService))
	{
		protected.GET("/auth/me", authHandler.Me)
		protected.GET("/protection/events", eventHandler.List)
	}

	startMaintenance(window, authService, eventService)

	return nil
}

// BuildEngine assembles the rule chain from configuration. The window rule
// is returned separately so callers can schedule its sweep.
func BuildEngine(cfg config.ProtectionConfig, recorder protection.Recorder) (*protection.Engine, *protection.SlidingWindow) {
	rules := []protection.Rule{
		protection.NewShield(protection.ParseMode(cfg.ShieldMode)),
		protection.NewBotRule(protection.ParseMode(cfg.BotMode), protection.UserAgentClassifier{}, cfg.BotAllow),
	}

	var window *protection.SlidingWindow
	if cfg.RateLimitEnable {
		window = protection.NewSlidingWindow(cfg.RateLimitInterval, cfg.RateLimitMax)
		rules = append(rules, window)
	}

	engine := protection.NewEngine(recorder, rules...)
	engine.SetFailPolicy("shield", protection.ParseFailPolicy(cfg.ShieldFailPolicy))
	engine.SetFailPolicy("bot", protection.ParseFailPolicy(cfg.BotFailPolicy))
	return engine, window
}

// startMaintenance schedules window eviction, session purging, and
// telemetry retention on the shared cron runner.
func startMaintenance(window *protection.SlidingWindow, auth *services.AuthService, events *services.EventService) {
	c := cron.New()

	if window != nil {
		_, _ = c.AddFunc("@every 1m", func() {
			if removed := window.Sweep(time.Now()); removed > 0 {
				logger.WithFields(map[string]interface{}{"removed": removed}).Debug("swept expired rate windows")
			}
		})
	}

	_, _ = c.AddFunc("@every 1h", func() {
		if n, err := auth.PurgeExpiredSessions(); err != nil {
			logger.Log().WithError(err).Error("failed to purge expired sessions")
		} else if n > 0 {
			logger.WithFields(map[string]interface{}{"purged": n}).Info("purged expired sessions")
		}
	})

	_, _ = c.AddFunc("@daily", func() {
		if n, err := events.PurgeOlderThan(eventRetention); err != nil {
			logger.Log().WithError(err).Error("failed to purge protection events")
		} else if n > 0 {
			logger.WithFields(map[string]interface{}{"purged": n}).Info("purged old protection events")
		}
	})

	c.Start()
}
