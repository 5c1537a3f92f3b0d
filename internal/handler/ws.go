package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-auction/internal/market"
	"github.com/iliyamo/marketplace-auction/internal/notify"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsReadLimit  = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WatchHandler streams the events of one listing over a websocket.
type WatchHandler struct {
	Engine *market.Engine
	Reader market.Reader
	Hub    *notify.Hub
	Log    *zap.Logger
}

func NewWatchHandler(engine *market.Engine, reader market.Reader, hub *notify.Hub, log *zap.Logger) *WatchHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WatchHandler{Engine: engine, Reader: reader, Hub: hub, Log: log}
}

type welcomeMsg struct {
	Type           string      `json:"type"`
	SubscriptionID string      `json:"subscription_id"`
	Listing        listingResp `json:"listing"`
}

// Watch handles GET /ws/listings/:id.  The first frame is a snapshot of the
// listing; every later frame is a notify.Event.  The subscription is taken
// before the snapshot is read so no event falls between the two, and it
// lives exactly as long as the read loop.
func (h *WatchHandler) Watch(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	sub := h.Hub.Subscribe(id)
	ctx, cancel := withTimeout(c)
	l, err := h.Reader.GetListing(ctx, id)
	cancel()
	if err != nil {
		h.Hub.Unsubscribe(sub)
		return writeError(c, h.Log, err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.Hub.Unsubscribe(sub)
		h.Log.Warn("websocket upgrade failed", zap.Uint64("listing_id", id), zap.Error(err))
		return nil
	}

	h.Log.Debug("watcher connected", zap.Uint64("listing_id", id), zap.String("subscription_id", sub.ID))
	welcome, _ := json.Marshal(welcomeMsg{
		Type:           "connected",
		SubscriptionID: sub.ID,
		Listing:        toListingResp(h.Engine.View(l)),
	})

	go h.writePump(conn, sub, welcome)
	h.readPump(conn)

	h.Hub.Unsubscribe(sub)
	h.Log.Debug("watcher disconnected", zap.Uint64("listing_id", id), zap.String("subscription_id", sub.ID))
	return nil
}

// writePump is the only writer of conn.  It returns when the subscription
// is closed, which happens on unsubscribe or when the hub drops a slow
// watcher.
func (h *WatchHandler) writePump(conn *websocket.Conn, sub *notify.Subscription, first []byte) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, first); err != nil {
		return
	}
	for {
		select {
		case ev, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := ev.Encode()
			if err != nil {
				h.Log.Warn("encode event", zap.String("event_id", ev.ID), zap.Error(err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and keeps the pong deadline fresh until
// the connection fails.
func (h *WatchHandler) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Log.Debug("websocket read", zap.Error(err))
			}
			return
		}
	}
}
