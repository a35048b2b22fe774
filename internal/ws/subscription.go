package ws

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/windoze95/recipe-search-api/internal/logger"
	"github.com/windoze95/recipe-search-api/internal/models"
	"go.uber.org/zap"
)

// SubscriptionHandler upgrades requests to websocket subscriptions on
// recipes.<term> topics.
type SubscriptionHandler struct {
	Hub      *Hub
	upgrader websocket.Upgrader
}

// NewSubscriptionHandler returns a new SubscriptionHandler accepting browser
// connections from allowedOrigins and any localhost port.
func NewSubscriptionHandler(hub *Hub, allowedOrigins []string) *SubscriptionHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}

	return &SubscriptionHandler{
		Hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowed[origin] {
					return true
				}
				// Allow localhost for development
				return strings.HasPrefix(origin, "http://localhost:") || origin == "http://localhost"
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleSubscribe joins the caller to the topic of the searchWord query
// parameter and streams generation results until the connection closes.
func (sh *SubscriptionHandler) HandleSubscribe(c *gin.Context) {
	log := logger.FromContext(c)

	term := models.NormalizeTerm(c.Query("searchWord"))
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "searchWord is required"})
		return
	}
	topic := models.TopicFor(term)

	conn, err := sh.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return
	}

	client := NewClient(sh.Hub, conn, topic, uuid.New().String())
	if !sh.Hub.Join(client) {
		conn.Close()
		return
	}

	log.Info("subscription started",
		zap.String("topic", topic),
		zap.String("client_id", client.ID),
	)

	go client.WritePump()
	go client.ReadPump()
}
