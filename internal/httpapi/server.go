// Package httpapi exposes the registry over HTTP/JSON on fasthttp.
package httpapi

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/park285/chess-arbiter/internal/chessrules"
	"github.com/park285/chess-arbiter/internal/metrics"
	"github.com/park285/chess-arbiter/internal/msgcat"
	"github.com/park285/chess-arbiter/internal/obslog"
	"github.com/park285/chess-arbiter/internal/registry"
)

const (
	// ActorHeader carries the caller identity resolved by the fronting gateway.
	ActorHeader     = "X-Actor-Id"
	RequestIDHeader = "X-Request-Id"

	defaultListLimit = 20
)

type Server struct {
	reg     *registry.Registry
	rules   chessrules.Rules
	cat     *msgcat.Catalog
	log     *zap.Logger
	debug   bool
	listMax int

	metricsHandler fasthttp.RequestHandler
	srv            *fasthttp.Server
}

type Option func(*Server)

// WithDebug routes /debug/games/{id}, which exposes seat digests.
func WithDebug(on bool) Option { return func(s *Server) { s.debug = on } }

// WithListLimitMax caps the limit query parameter of list requests.
func WithListLimitMax(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.listMax = n
		}
	}
}

func WithCatalog(c *msgcat.Catalog) Option { return func(s *Server) { s.cat = c } }

func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.log = l } }

func New(reg *registry.Registry, opts ...Option) *Server {
	s := &Server{
		reg:            reg,
		rules:          chessrules.NewEngine(),
		listMax:        100,
		metricsHandler: fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()),
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = obslog.L()
	}
	s.srv = &fasthttp.Server{
		Handler:            s.Handler(),
		Name:               "chess-arbiter",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: 64 << 10,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error { return s.srv.ListenAndServe(addr) }

func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.ShutdownWithContext(ctx) }

// Handler returns the routing handler wrapped with request ids, logging and metrics.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		reqID := strings.TrimSpace(string(ctx.Request.Header.Peek(RequestIDHeader)))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx.SetUserValue(requestIDKey, reqID)
		ctx.Response.Header.Set(RequestIDHeader, reqID)

		route := s.route(ctx)

		status := ctx.Response.StatusCode()
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		s.log.Debug("http_request",
			zap.String("request_id", reqID),
			zap.String("method", string(ctx.Method())),
			zap.String("path", string(ctx.Path())),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// route dispatches and returns the route pattern for metrics.
func (s *Server) route(ctx *fasthttp.RequestCtx) string {
	path := strings.TrimRight(string(ctx.Path()), "/")
	method := string(ctx.Method())

	switch path {
	case "/healthz":
		if !allow(ctx, method, fasthttp.MethodGet) {
			return path
		}
		s.handleHealth(ctx)
		return path
	case "/metrics":
		if !allow(ctx, method, fasthttp.MethodGet) {
			return path
		}
		s.metricsHandler(ctx)
		return path
	case "/v1/games":
		switch method {
		case fasthttp.MethodPost:
			s.handleCreate(ctx)
		case fasthttp.MethodGet:
			s.handleList(ctx)
		default:
			s.methodNotAllowed(ctx, "GET, POST")
		}
		return path
	}

	if rest, ok := strings.CutPrefix(path, "/debug/games/"); ok && s.debug {
		id, ok := s.parseID(ctx, rest)
		if ok && allow(ctx, method, fasthttp.MethodGet) {
			s.handleInspect(ctx, id)
		}
		return "/debug/games/{id}"
	}

	rest, ok := strings.CutPrefix(path, "/v1/games/")
	if !ok {
		s.writeError(ctx, fasthttp.StatusNotFound, "NOT_FOUND", "no such route", false)
		return "unmatched"
	}
	idPart, action, _ := strings.Cut(rest, "/")
	id, ok := s.parseID(ctx, idPart)
	if !ok {
		return "/v1/games/{id}"
	}

	switch action {
	case "":
		if allow(ctx, method, fasthttp.MethodGet) {
			s.handleGet(ctx, id)
		}
	case "join":
		if allow(ctx, method, fasthttp.MethodPost) {
			s.handleJoin(ctx, id)
		}
	case "moves":
		if allow(ctx, method, fasthttp.MethodPost) {
			s.handleMove(ctx, id)
		}
	case "resign":
		if allow(ctx, method, fasthttp.MethodPost) {
			s.handleResign(ctx, id)
		}
	case "role":
		if allow(ctx, method, fasthttp.MethodGet) {
			s.handleRole(ctx, id)
		}
	case "pgn":
		if allow(ctx, method, fasthttp.MethodGet) {
			s.handlePGN(ctx, id)
		}
	case "board.png":
		if allow(ctx, method, fasthttp.MethodGet) {
			s.handleBoard(ctx, id)
		}
	default:
		s.writeError(ctx, fasthttp.StatusNotFound, "NOT_FOUND", "no such route", false)
		return "unmatched"
	}
	return "/v1/games/{id}/" + action
}

func allow(ctx *fasthttp.RequestCtx, method, want string) bool {
	if method == want || (want == fasthttp.MethodGet && method == fasthttp.MethodHead) {
		return true
	}
	ctx.Response.Header.Set("Allow", want)
	writeJSON(ctx, fasthttp.StatusMethodNotAllowed, errorBody(ctx, "METHOD_NOT_ALLOWED", "method not allowed", false))
	return false
}

func (s *Server) methodNotAllowed(ctx *fasthttp.RequestCtx, allowed string) {
	ctx.Response.Header.Set("Allow", allowed)
	s.writeError(ctx, fasthttp.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", false)
}

func (s *Server) parseID(ctx *fasthttp.RequestCtx, raw string) (uint64, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		s.writeError(ctx, fasthttp.StatusBadRequest, "BAD_REQUEST", s.cat.Error("BAD_REQUEST", map[string]any{"Detail": "game id must be a positive integer"}), false)
		return 0, false
	}
	return id, true
}

func actorOf(ctx *fasthttp.RequestCtx) string {
	return strings.TrimSpace(string(ctx.Request.Header.Peek(ActorHeader)))
}
