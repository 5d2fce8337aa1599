package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Any origin may connect. The route authenticates with an explicit
	// token only, never the session cookie.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type inbound struct {
	Text string `json:"text"`
}

// ServeWS upgrades the request and streams chatID's new messages to the
// client until either side closes. Text frames sent by the client are
// posted to the room as uid. Membership must be checked by the caller.
func (s *Service) ServeWS(w http.ResponseWriter, r *http.Request, chatID, uid string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("chat: websocket upgrade failed")
		return
	}
	sub := s.hub.Subscribe(chatID)
	log := s.log.WithFields(logrus.Fields{"chat_id": chatID, "uid": uid})
	log.Debug("chat: subscriber connected")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.readPump(ctx, conn, chatID, uid, log)
	}()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		s.hub.Unsubscribe(sub)
		conn.Close()
		<-done
		log.Debug("chat: subscriber gone")
	}()

	for {
		select {
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Service) readPump(ctx context.Context, conn *websocket.Conn, chatID, uid string, log *logrus.Entry) {
	conn.SetReadLimit(maxMessageLen * 2)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in inbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("chat: read failed")
			}
			return
		}
		if _, err := s.Send(ctx, chatID, uid, in.Text); err != nil {
			log.WithError(err).Debug("chat: inbound message dropped")
		}
	}
}
