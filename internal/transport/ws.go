package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	v1 "loci/contracts/realtime/v1"
	"loci/internal/app"

	"github.com/coder/websocket"
)

// wsConn adapts coder/websocket to the Conn interface.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	mt, data, err := c.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	if mt != websocket.MessageText && mt != websocket.MessageBinary {
		return nil, fmt.Errorf("unsupported message type: %v", mt)
	}
	return data, nil
}

func (c *wsConn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

// DialWebsocket is the production Dialer: it negotiates the realtime
// subprotocol and authenticates with the stored bearer token.
func DialWebsocket(ctx context.Context, socketURL, token string) (Conn, error) {
	h := http.Header{}
	if strings.TrimSpace(token) != "" {
		h.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.Dial(ctx, socketURL, &websocket.DialOptions{
		Subprotocols: []string{v1.Subprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	if sp := conn.Subprotocol(); sp != "" && sp != v1.Subprotocol {
		_ = conn.Close(websocket.StatusProtocolError, "subprotocol required")
		return nil, fmt.Errorf("subprotocol mismatch: got=%q want=%q", sp, v1.Subprotocol)
	}

	conn.SetReadLimit(int64(app.EnvInt("LOCI_READ_LIMIT", 1<<20)))

	return &wsConn{conn: conn}, nil
}
