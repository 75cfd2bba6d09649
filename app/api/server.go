package api

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const actorKey = "actor"

// NewServer creates the HTTP server with all routes configured
func NewServer(handler *Handler, keys Keys) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health", "/metrics"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key, X-Actor-ID, X-Actor-Name")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, keys)

	return r
}

func setupRoutes(r *gin.Engine, h *Handler, keys Keys) {
	r.GET("/health", h.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/channels/:name/feed.xml", h.GetChannelFeed)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "Critique Desk",
			"version":     h.version,
			"description": "Editorial catalog of submitted works with feed ingestion",
			"endpoints": map[string]string{
				"health":  "/health",
				"metrics": "/metrics",
				"channel": "/channels/<name>/feed.xml",
				"api":     "/api (requires X-API-Key header)",
			},
			"api_status": map[string]interface{}{
				"public_read": keys.Read == "",
				"levels":      []string{LevelRead.String(), LevelEdit.String(), LevelManage.String()},
				"header":      "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	api := r.Group("/api", actorMiddleware())

	read := api.Group("", authMiddleware(keys, LevelRead))
	{
		read.GET("/entries", h.SearchEntries)
		read.GET("/entries/lookup", h.LookupEntry)
		read.GET("/entries/random", h.RandomEntry)
		read.GET("/entries/oldest", h.OldestEntry)
		read.GET("/entries/:id", h.GetEntry)
		read.GET("/tags", h.ListTags)
		read.GET("/channels", h.ListChannels)
		read.GET("/channels/:name", h.GetChannel)
	}

	edit := api.Group("", authMiddleware(keys, LevelEdit))
	{
		edit.POST("/entries", h.AddEntry)
		edit.PATCH("/entries/:id", h.UpdateEntry)
		edit.POST("/entries/:id/claim", h.ClaimEntry)
		edit.POST("/entries/:id/release", h.ReleaseEntry)
		edit.POST("/entries/:id/actions/:action", h.ApplyAction)
		edit.POST("/entries/:id/tags", h.AddTag)
		edit.DELETE("/entries/:id/tags", h.RemoveTags)
		edit.POST("/authors/rename", h.RenameAuthor)
		edit.POST("/undo", h.Undo)
		edit.POST("/threads", h.ThreadCreated)
	}

	manage := api.Group("", authMiddleware(keys, LevelManage))
	{
		manage.POST("/entries/:id/accept", h.AcceptEntry)
		manage.DELETE("/entries/:id", h.DeleteEntry)
		manage.POST("/maintenance/cleanup", h.Cleanup)
		manage.POST("/maintenance/no-response", h.MarkNoResponse)
		manage.POST("/feed/refresh", h.RefreshFeed)
	}

	slog.Info("API endpoints enabled", "public_read", keys.Read == "")
}

func providedKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

func keyMatches(provided, key string) bool {
	return key != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1
}

// LevelOf returns the access level granted by an API key. Higher levels
// include the lower ones.
func (k Keys) LevelOf(provided string) Level {
	switch {
	case provided == "":
		return LevelNone
	case keyMatches(provided, k.Manage):
		return LevelManage
	case keyMatches(provided, k.Edit):
		return LevelEdit
	case keyMatches(provided, k.Read):
		return LevelRead
	}
	return LevelNone
}

func authMiddleware(keys Keys, need Level) gin.HandlerFunc {
	return func(c *gin.Context) {
		if need == LevelRead && keys.Read == "" {
			c.Next()
			return
		}

		provided := providedKey(c)
		if provided == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		level := keys.LevelOf(provided)
		if level == LevelNone {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		if level < need {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Insufficient access level",
				"message": fmt.Sprintf("This endpoint requires %s access", need),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var actor Actor

		if raw := strings.TrimSpace(c.GetHeader("X-Actor-ID")); raw != "" {
			key, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || key < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid X-Actor-ID header"})
				c.Abort()
				return
			}
			actor.Key = key
		}

		actor.Name = strings.TrimSpace(c.GetHeader("X-Actor-Name"))
		if actor.Name == "" {
			if actor.Key != 0 {
				actor.Name = fmt.Sprintf("member %d", actor.Key)
			} else {
				actor.Name = "anonymous"
			}
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(Actor); ok {
			return actor
		}
	}
	return Actor{Name: "anonymous"}
}
