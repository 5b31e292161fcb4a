package signal

import (
	"context"
	"net/http"
	"time"

	"github.com/dkeye/voicehub/internal/app/orch"
	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Options struct {
	ReadLimit    int64
	PingPeriod   time.Duration
	PongWait     time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
	RingLimit    int
	RingWindow   time.Duration
}

func (o *Options) withDefaults() {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32 << 10
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.RingLimit <= 0 {
		o.RingLimit = 5
	}
	if o.RingWindow <= 0 {
		o.RingWindow = time.Minute
	}
}

type SignalWSController struct {
	Orch  *orch.Orchestrator
	Hub   *Hub
	Rings *RateLimiter
	opts  Options
}

func NewSignalWSController(o *orch.Orchestrator, hub *Hub, opts Options) *SignalWSController {
	opts.withDefaults()
	return &SignalWSController{
		Orch:  o,
		Hub:   hub,
		Rings: NewRateLimiter(opts.RingLimit, opts.RingWindow),
		opts:  opts,
	}
}

// client is one authenticated connection.
type client struct {
	user domain.User
	id   core.ConnID
	conn core.SignalConnection
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and serves the connection until it closes.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context, user domain.User) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ctl.Serve(ctx, ws, user)
}

// Serve registers the connection and starts its pumps.
func (ctl *SignalWSController) Serve(ctx context.Context, ws WSConn, user domain.User) core.ConnID {
	conn := NewWsSignalConn(ws, ctl.opts.SendBuffer)
	cl := &client{user: user, id: core.ConnID(uuid.NewString()), conn: conn}
	log.Info().Str("module", "signal").Str("user", string(user.ID)).Str("conn", string(cl.id)).Msg("new WS connection")

	ctl.Hub.Register(cl.id, conn)
	ctl.Orch.OnConnected(ctx, user, cl.id)
	ctl.handleWhoAmI(cl)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, ws, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, cl, ws)
	}()
	return cl.id
}

// release runs once per connection, after its read pump ends.
func (ctl *SignalWSController) release(cl *client) {
	ctl.Hub.Unregister(cl.id)
	cl.conn.Close()
	ctl.Orch.OnDisconnected(context.Background(), cl.user.ID, cl.id)
	log.Info().Str("module", "signal").Str("user", string(cl.user.ID)).Str("conn", string(cl.id)).Msg("connection released")
}
