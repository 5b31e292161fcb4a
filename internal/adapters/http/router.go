package http

import (
	"cmp"
	"context"
	"net/http"
	"os"

	"github.com/dkeye/voicehub/internal/adapters/rtc"
	"github.com/dkeye/voicehub/internal/adapters/signal"
	"github.com/dkeye/voicehub/internal/config"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/dkeye/voicehub/internal/metrics"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	headerUserID   = "X-User-ID"
	headerUsername = "X-User-Name"

	keyUserID = "user_id"
	keyUser   = "user"
)

// IdentityMiddleware resolves who is calling. A gateway in front of the hub sets
// X-User-ID; without it the cookie session carries a generated guest id.
// Ids and names that fail domain validation are answered with 400.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		uid := c.GetHeader(headerUserID)
		if uid == "" {
			uid, _ = sess.Get(keyUserID).(string)
		}
		if uid == "" {
			uid = uuid.NewString()
			sess.Set(keyUserID, uid)
			if err := sess.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		name := c.GetHeader(headerUsername)
		if name == "" {
			name = c.Query("name")
		}

		user, err := domain.NewUserWithID(domain.UserID(uid), cmp.Or(name, uid))
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Int("id_len", len(uid)).Msg("identity rejected")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// no name given: keep whatever the registry already knows
		user.Username = name
		c.Set(keyUser, *user)
		c.Next()
	}
}

func userFrom(c *gin.Context) domain.User {
	user, _ := c.MustGet(keyUser).(domain.User)
	return user
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.SignalWSController, m *metrics.Collector) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("VoiceSessions", store))
	r.Use(IdentityMiddleware())

	if _, err := os.Stat(cfg.StaticPath); err == nil {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": ctl.Hub.Len()})
	})
	if m != nil && cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	o := ctl.Orch
	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		user := userFrom(c)
		log.Info().Str("module", "adapters.http").Str("user", string(user.ID)).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c, user)
	})

	// GET /api/voice/sessions?chat_id=a&chat_id=b: participant counts
	api.GET("/voice/sessions", func(c *gin.Context) {
		var ids []domain.ChatID
		for _, id := range c.QueryArray("chat_id") {
			ids = append(ids, domain.ChatID(id))
		}
		c.JSON(http.StatusOK, gin.H{"counts": o.GetActiveSessionCounts(ids)})
	})

	api.GET("/voice/sessions/:chat_id", func(c *gin.Context) {
		chatID := domain.ChatID(c.Param("chat_id"))
		snap, ok := o.GetSession(chatID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	api.GET("/voice/ice-servers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ice_servers": rtc.ICEServers(cfg.ICEServers)})
	})

	api.GET("/presence/:user_id", func(c *gin.Context) {
		uid := domain.UserID(c.Param("user_id"))
		c.JSON(http.StatusOK, gin.H{"user_id": uid, "online": o.IsOnline(uid)})
	})

	api.GET("/me", func(c *gin.Context) {
		user := userFrom(c)
		resp := gin.H{"user_id": user.ID, "online": o.IsOnline(user.ID)}
		if chatID, _, ok := o.SessionOf(user.ID); ok {
			resp["chat_id"] = chatID
		}
		c.JSON(http.StatusOK, resp)
	})

	return r
}
