package channel

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/stellarlinkco/nutrisnap/internal/analysis"
	"github.com/stellarlinkco/nutrisnap/internal/bus"
	"github.com/stellarlinkco/nutrisnap/internal/config"
)

//go:embed static
var staticFiles embed.FS

const (
	webUIChannelName = "webui"
	// Photos arrive as data URLs inside one websocket frame.
	webUIReadLimit = 16 << 20
)

// wsMessage is the JSON frame exchanged with the browser. Inbound frames are
// "message" (text or a command) or "image" (a data URL in Image).
type wsMessage struct {
	Type    string     `json:"type"`
	Content string     `json:"content,omitempty"`
	Image   string     `json:"image,omitempty"`
	Actions []wsAction `json:"actions,omitempty"`
}

type wsAction struct {
	Label   string `json:"label"`
	Command string `json:"command"`
}

type wsClient struct {
	conn *websocket.Conn
	id   string
}

type WebUIChannel struct {
	BaseChannel
	addr     string
	server   *http.Server
	listener net.Listener
	clients  sync.Map
	nextID   atomic.Int64
}

func NewWebUIChannel(cfg config.WebUIConfig, gwCfg config.GatewayConfig, b *bus.MessageBus) (*WebUIChannel, error) {
	port := gwCfg.Port
	if port == 0 {
		port = config.DefaultPort
	}

	ch := &WebUIChannel{
		BaseChannel: NewBaseChannel(webUIChannelName, b, cfg.AllowFrom),
		addr:        net.JoinHostPort(gwCfg.Host, fmt.Sprint(port)),
	}
	return ch, nil
}

// Addr is the bound listen address once started.
func (w *WebUIChannel) Addr() string {
	if w.listener != nil {
		return w.listener.Addr().String()
	}
	return w.addr
}

func (w *WebUIChannel) handler() (http.Handler, error) {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("embed static fs: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/ws", w.handleWS)
	return mux, nil
}

func (w *WebUIChannel) Start(ctx context.Context) error {
	h, err := w.handler()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", w.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", w.addr, err)
	}
	w.listener = ln
	w.server = &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		w.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := w.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.logger.Error("server error", zap.Error(err))
		}
	}()

	return nil
}

func (w *WebUIChannel) handleWS(wr http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(wr, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		w.logger.Warn("websocket accept error", zap.Error(err))
		return
	}
	conn.SetReadLimit(webUIReadLimit)

	clientID := fmt.Sprintf("webui-%d", w.nextID.Add(1))
	client := &wsClient{conn: conn, id: clientID}
	w.clients.Store(clientID, client)
	w.logger.Info("client connected", zap.String("client", clientID))

	defer func() {
		w.clients.Delete(clientID)
		conn.CloseNow()
		w.logger.Info("client disconnected", zap.String("client", clientID))
	}()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if !w.IsAllowed(clientID) {
			w.logger.Warn("rejected message", zap.String("client", clientID))
			continue
		}

		inbound := bus.InboundMessage{
			Channel:   webUIChannelName,
			SenderID:  clientID,
			ChatID:    clientID,
			Content:   msg.Content,
			Timestamp: time.Now(),
		}

		switch msg.Type {
		case "message":
			if msg.Content == "" {
				continue
			}
		case "image":
			img, err := analysis.ParseDataURL(msg.Image)
			if err != nil {
				w.logger.Warn("bad image payload", zap.String("client", clientID), zap.Error(err))
				w.reply(r.Context(), client, wsMessage{Type: "error", Content: "Could not read that image. Please try another photo."})
				continue
			}
			inbound.Attachments = []bus.Attachment{{MediaType: img.MIMEType, Data: img.Data}}
		default:
			continue
		}

		if err := w.bus.Publish(r.Context(), inbound); err != nil {
			return
		}
	}
}

func (w *WebUIChannel) reply(ctx context.Context, c *wsClient, msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = c.conn.Write(ctx, websocket.MessageText, data)
}

func (w *WebUIChannel) Send(msg bus.OutboundMessage) error {
	out := wsMessage{
		Type:    "message",
		Content: msg.Content,
	}
	for _, a := range msg.Actions {
		out.Actions = append(out.Actions, wsAction{Label: a.Label, Command: a.Command})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}

	client, ok := w.clients.Load(msg.ChatID)
	if !ok {
		// Broadcast to all clients if no specific target
		w.clients.Range(func(key, value any) bool {
			c := value.(*wsClient)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = c.conn.Write(ctx, websocket.MessageText, data)
			return true
		})
		return nil
	}

	c := client.(*wsClient)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (w *WebUIChannel) Stop() error {
	if w.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.server.Shutdown(ctx); err != nil {
			w.logger.Warn("shutdown error", zap.Error(err))
		}
	}
	w.clients.Range(func(key, value any) bool {
		c := value.(*wsClient)
		c.conn.CloseNow()
		return true
	})
	w.logger.Info("stopped")
	return nil
}
