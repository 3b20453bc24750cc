package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ravipandeydu/interview-pro-sub002/internal/config"
	"github.com/ravipandeydu/interview-pro-sub002/internal/signaling"
)

// NewRouter wires the HTTP surface of the coordination service.
func NewRouter(hub *Hub, auth *Authenticator, cfg *config.ServerConfig, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	r.Use(originFilter(cfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	authed := r.Group("/")
	authed.Use(auth.Middleware())
	authed.GET("/ws", ServeWs(hub, cfg))
	authed.POST("/rooms", createRoom(hub))
	authed.GET("/rooms/:roomId/participants", listParticipants(hub))

	return r
}

// ServeWs upgrades the request and attaches the connection to hub as a
// participant carrying the caller's claims.
func ServeWs(hub *Hub, cfg *config.ServerConfig) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			return cfg.OriginAllowed(r.Header.Get("Origin"))
		},
	}
	limits := LimitsFrom(cfg)

	return func(c *gin.Context) {
		claims := claimsFrom(c)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.logger.Warn("failed to upgrade connection", "err", err)
			return
		}

		client := &Client{
			hub:    hub,
			conn:   conn,
			send:   make(chan *signaling.Message, sendBuffer),
			limits: limits,
			id:     uuid.NewString(),
			userID: claims.UserID,
			role:   claims.Role,
		}
		if !hub.registerClient(client) {
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}

type createRoomResponse struct {
	RoomID string `json:"roomId"`
}

func createRoom(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		code, err := hub.NewRoomCode(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to create room"})
			return
		}
		c.JSON(http.StatusCreated, createRoomResponse{RoomID: code})
	}
}

type participantsResponse struct {
	RoomID       string                  `json:"roomId"`
	Participants []signaling.Participant `json:"participants"`
}

func listParticipants(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Param("roomId")
		participants, err := hub.Presence().List(c.Request.Context(), roomID)
		if err != nil {
			hub.logger.Error("list participants", "room", roomID, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load participants"})
			return
		}
		c.JSON(http.StatusOK, participantsResponse{RoomID: roomID, Participants: participants})
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// originFilter rejects browser requests from origins outside the allow
// list and answers CORS preflights.
func originFilter(cfg *config.ServerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if !cfg.OriginAllowed(origin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Origin not allowed"})
			return
		}

		if origin != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
