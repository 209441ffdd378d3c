package wschannel

import (
	"context"

	"github.com/gorilla/websocket"
)

// Conn минимальная поверхность соединения; в тестах подменяется фейком.
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

type Dialer func(ctx context.Context, url string) (Conn, error)

func GorillaDialer(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
