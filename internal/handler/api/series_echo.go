package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"AlphaChart/internal/domain/models"
	domrepo "AlphaChart/internal/domain/repository"
	svcmetrics "AlphaChart/internal/service/metrics"
	"AlphaChart/internal/service/ratelimit"
	"AlphaChart/internal/usecase"
	xhttp "AlphaChart/pkg/http"
	xlogger "AlphaChart/pkg/logger"
	"AlphaChart/pkg/util"
)

const (
	streamBuffer     = 16
	streamWriteWait  = 5 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 50 * time.Second

	// Manual refetches per chart: a burst of 3, then one every 10s.
	refetchBurst  = 3
	refetchRefill = 0.1
)

// SeriesEchoHandler exposes chart sessions over HTTP and websocket.
type SeriesEchoHandler struct {
	logger   *xlogger.Logger
	sessions *usecase.SessionRegistry
	status   domrepo.MarketStatusSource
	refetch  *ratelimit.Limiter
	upgrader websocket.Upgrader
}

func NewSeriesEchoHandler(logger *xlogger.Logger, sessions *usecase.SessionRegistry, status domrepo.MarketStatusSource) *SeriesEchoHandler {
	svcmetrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SeriesEchoHandler{
		logger:   logger.Component("series_api"),
		sessions: sessions,
		status:   status,
		refetch:  ratelimit.New(refetchBurst, refetchRefill),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

func (h *SeriesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/series", h.Series)
	g.POST("/series/refetch", h.Refetch)
	g.DELETE("/series/:chart", h.CloseChart)
	g.GET("/series/stream", h.Stream)
	g.GET("/market/status", h.MarketStatus)
}

// Series selects symbol and window on a chart and returns its current view.
// The view may still be loading; clients poll or use the stream.
func (h *SeriesEchoHandler) Series(c echo.Context) error {
	defer observe("series", time.Now())
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		svcmetrics.SeriesAPIErrors.WithLabelValues("series").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := util.NormalizeSymbol(req.Symbol)
	view := h.sessions.Get(req.Chart).GetSeries(symbol, models.DisplayWindow(req.Window))
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, view)
}

// Refetch forces a fetch of the chart's current window.
func (h *SeriesEchoHandler) Refetch(c echo.Context) error {
	defer observe("refetch", time.Now())
	req := &models.RefetchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		svcmetrics.SeriesAPIErrors.WithLabelValues("refetch").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	s, ok := h.sessions.Lookup(req.Chart)
	if !ok {
		svcmetrics.SeriesAPIErrors.WithLabelValues("refetch").Inc()
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("chart %q has no session", req.Chart))
	}
	if !h.refetch.Allow(req.Chart) {
		svcmetrics.SeriesAPIErrors.WithLabelValues("refetch").Inc()
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("refetch rate exceeded"))
	}
	s.Refetch()
	return xhttp.SuccessResponse(c, s.View())
}

// CloseChart tears down a chart session.
func (h *SeriesEchoHandler) CloseChart(c echo.Context) error {
	defer observe("close", time.Now())
	chart := c.Param("chart")
	h.refetch.Forget(chart)
	if !h.sessions.Remove(chart) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("chart %q has no session", chart))
	}
	h.logger.Info("chart session closed", xlogger.String("chart", chart))
	return xhttp.NoContentResponse(c)
}

func (h *SeriesEchoHandler) MarketStatus(c echo.Context) error {
	defer observe("market_status", time.Now())
	st, err := h.status.MarketStatus(c.Request().Context())
	if err != nil {
		svcmetrics.SeriesAPIErrors.WithLabelValues("market_status").Inc()
		h.logger.Error("market status error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("market status unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, st)
}

// Stream pushes the chart's view to a websocket client after every applied
// fetch. Clients send StreamCommand messages to change the selection or
// request a refetch. The stream ends with a going-away close frame when the
// chart's session is removed or evicted; clients reconnect to get a new one.
func (h *SeriesEchoHandler) Stream(c echo.Context) error {
	chart := c.QueryParam("chart")
	if chart == "" {
		chart = "default"
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	svcmetrics.StreamClients.Inc()
	defer svcmetrics.StreamClients.Dec()

	log := h.logger.With(xlogger.String("chart", chart), xlogger.String("remote", c.RealIP()))
	log.Debug("stream client connected")

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	out := make(chan interface{}, streamBuffer)
	session := h.sessions.Get(chart)
	unsubscribe := session.Subscribe(func(v models.SeriesView) {
		select {
		case out <- v:
		default:
			// Slow client; the next update carries the full view anyway.
		}
	})
	defer unsubscribe()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(ctx, conn, out, session.Done())
		// Unblocks readPump when the writer stops first.
		cancel()
		_ = conn.Close()
	}()

	h.readPump(ctx, conn, session, chart, out)
	cancel()
	<-writerDone
	_ = conn.Close()
	log.Debug("stream client disconnected")
	return nil
}

func (h *SeriesEchoHandler) readPump(ctx context.Context, conn *websocket.Conn, s *usecase.Session, chart string, out chan<- interface{}) {
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		var cmd models.StreamCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		var reply interface{}
		if verr := xhttp.Validate(&cmd); verr != nil {
			reply = xhttp.APIResponse{Status: http.StatusBadRequest, Message: http.StatusText(http.StatusBadRequest), Data: verr}
		} else {
			switch {
			case cmd.Action == "refetch" && !h.refetch.Allow(chart):
				reply = xhttp.APIResponse{Status: http.StatusTooManyRequests, Message: http.StatusText(http.StatusTooManyRequests)}
			case cmd.Action == "refetch":
				s.Refetch()
				reply = s.View()
			default:
				reply = s.GetSeries(util.NormalizeSymbol(cmd.Symbol), models.DisplayWindow(cmd.Window))
			}
		}
		select {
		case out <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (h *SeriesEchoHandler) writePump(ctx context.Context, conn *websocket.Conn, out <-chan interface{}, sessionDone <-chan struct{}) {
	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-sessionDone:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
				time.Now().Add(streamWriteWait))
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(streamWriteWait))
			return
		case msg := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("stream write failed", xlogger.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

func observe(endpoint string, start time.Time) {
	svcmetrics.SeriesAPILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
