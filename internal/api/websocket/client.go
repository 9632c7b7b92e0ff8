package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/KevinKickass/OpenMachineAIO/internal/auth"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Time allowed for the auth message after connecting
	authWait = 10 * time.Second

	maxMessageSize = 4096
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one WebSocket connection. It only receives broadcasts after a
// successful auth message.
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	logger        *zap.Logger
	authenticated bool
	permissions   []auth.Permission
}

func (c *Client) remoteAddr() string {
	return c.conn.RemoteAddr().String()
}

type inboundMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

func (c *Client) readPump() {
	defer func() {
		if c.authenticated {
			select {
			case c.hub.unregister <- c:
			case <-c.hub.done:
			}
		} else {
			close(c.send)
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(authWait))

	for {
		var msg inboundMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error",
					zap.Error(err),
					zap.String("remote_addr", c.remoteAddr()))
			}
			return
		}

		if c.authenticated {
			c.logger.Debug("Ignoring client message",
				zap.String("remote_addr", c.remoteAddr()),
				zap.String("type", msg.Type))
			continue
		}

		// First message MUST be authentication
		if msg.Type != "auth" || msg.Token == "" {
			c.sendControl("auth_failed", map[string]interface{}{"reason": "first message must be authentication"})
			return
		}

		permissions, err := c.hub.auth.ValidateToken(msg.Token, c.remoteAddr())
		if err != nil {
			c.logger.Warn("WebSocket authentication failed",
				zap.Error(err),
				zap.String("remote_addr", c.remoteAddr()))
			c.sendControl("auth_failed", map[string]interface{}{"reason": "invalid or expired token"})
			return
		}

		c.authenticated = true
		c.permissions = permissions
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.conn.SetPongHandler(func(string) error {
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		c.sendControl("auth_success", map[string]interface{}{"permissions": permissions})

		select {
		case c.hub.register <- c:
		case <-c.hub.done:
			return
		}
	}
}

func (c *Client) sendControl(msgType string, fields map[string]interface{}) {
	fields["type"] = msgType
	fields["timestamp"] = time.Now()
	data, _ := json.Marshal(fields)
	select {
	case c.send <- data:
	default:
	}
}

// writePump handles writing messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles WebSocket upgrade requests
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("WebSocket upgrade error",
			zap.Error(err),
			zap.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: hub.logger,
	}

	go client.writePump()
	go client.readPump()
}
