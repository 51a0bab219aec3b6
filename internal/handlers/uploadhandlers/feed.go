package uploadhandlers

import (
	"net/http"

	"github.com/The127/ioc"
	"github.com/gorilla/websocket"

	"github.com/bmakarand2009/studiomedia/internal/logging"
	"github.com/bmakarand2009/studiomedia/internal/middlewares"
	"github.com/bmakarand2009/studiomedia/internal/sessions"
	"github.com/bmakarand2009/studiomedia/internal/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// cross origin access is governed by the CORS configuration on
		// the regular API, the feed mirrors that decision in the server
		return true
	},
}

type feedMessage struct {
	Sessions []sessions.Session `json:"sessions"`
}

// Feed streams the full session snapshot to the client on every session
// change. Snapshots are self-contained, a client that misses one is
// caught up by the next.
func Feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope := middlewares.GetScope(ctx)
	broadcaster := ioc.GetDependency[*sessions.Broadcaster](scope)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger.Warnf("failed to upgrade feed connection: %s", err)
		return
	}
	defer utils.IgnoreError(conn.Close)

	// the channel holds one pending snapshot, a newer one replaces it
	updates := make(chan []sessions.Session, 1)
	observerId := broadcaster.Subscribe(func(snapshot []sessions.Session) {
		for {
			select {
			case updates <- snapshot:
				return
			default:
			}

			select {
			case <-updates:
			default:
			}
		}
	})
	defer broadcaster.Unsubscribe(observerId)

	// detect the peer going away, the read loop is the only reader
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			_, _, readErr := conn.ReadMessage()
			if readErr != nil {
				return
			}
		}
	}()

	err = conn.WriteJSON(feedMessage{Sessions: broadcaster.Snapshot()})
	if err != nil {
		return
	}

	for {
		select {
		case snapshot := <-updates:
			err = conn.WriteJSON(feedMessage{Sessions: snapshot})
			if err != nil {
				return
			}

		case <-closed:
			return

		case <-ctx.Done():
			return
		}
	}
}
