package shell

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/Cheese-vs-Stockfish/internal/board"
	"github.com/park285/Cheese-vs-Stockfish/internal/chess/uci"
	"github.com/park285/Cheese-vs-Stockfish/internal/game"
	"github.com/park285/Cheese-vs-Stockfish/internal/lease"
	"github.com/park285/Cheese-vs-Stockfish/internal/render"
	"github.com/park285/Cheese-vs-Stockfish/pkg/arenadto"
)

//go:embed web/index.html
var indexHTML []byte

const sessionsPrefix = "/api/sessions"

type ServerOptions struct {
	Registry     *Registry
	Presenter    *Presenter
	Renderer     render.BoardRenderer
	DefaultLevel uci.SkillLevel
	// StartTimeout bounds engine startup inside a start request.
	StartTimeout time.Duration
	Logger       *zap.Logger
}

// Server exposes sessions over HTTP.
type Server struct {
	reg          *Registry
	presenter    *Presenter
	renderer     render.BoardRenderer
	validate     *validator.Validate
	defaultLevel uci.SkillLevel
	startTimeout time.Duration
	log          *zap.Logger
	srv          *fasthttp.Server
}

func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	presenter := opts.Presenter
	if presenter == nil {
		presenter = NewPresenter(nil)
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.NewRenderer()
	}
	level := opts.DefaultLevel
	if !level.Valid() {
		level = uci.DefaultSkillLevel
	}
	timeout := opts.StartTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	s := &Server{
		reg:          opts.Registry,
		presenter:    presenter,
		renderer:     renderer,
		validate:     newValidator(),
		defaultLevel: level,
		startTimeout: timeout,
		log:          logger,
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handle,
		Name:         "chess-arena",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error { return s.srv.ListenAndServe(addr) }

func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.ShutdownWithContext(ctx) }

// Handle routes one request.
func (s *Server) Handle(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())

	switch {
	case path == "/" && method == fasthttp.MethodGet:
		ctx.SetContentType("text/html; charset=utf-8")
		ctx.SetBody(indexHTML)
		return
	case path == "/healthz" && method == fasthttp.MethodGet:
		s.writeJSON(ctx, fasthttp.StatusOK, map[string]any{"status": "ok", "sessions": s.reg.Len()})
		return
	case path == "/api/levels" && method == fasthttp.MethodGet:
		s.handleLevels(ctx)
		return
	case path == sessionsPrefix && method == fasthttp.MethodPost:
		s.handleCreate(ctx)
		return
	case strings.HasPrefix(path, sessionsPrefix+"/"):
		s.routeSession(ctx, method, strings.TrimPrefix(path, sessionsPrefix+"/"))
		return
	}
	s.writeError(ctx, fasthttp.StatusNotFound, arenadto.DomainError{Code: arenadto.CodeNotFound, Message: "no route for " + method + " " + path})
}

func (s *Server) routeSession(ctx *fasthttp.RequestCtx, method, rest string) {
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		s.writeError(ctx, fasthttp.StatusNotFound, arenadto.DomainError{Code: arenadto.CodeNotFound, Message: "missing session id"})
		return
	}

	if action == "" && method == fasthttp.MethodDelete {
		if err := s.reg.Delete(ctx, id); err != nil {
			s.fail(ctx, err)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusNoContent)
		return
	}

	ctrl, err := s.reg.Get(ctx, id)
	if err != nil {
		s.fail(ctx, err)
		return
	}

	switch {
	case action == "" && method == fasthttp.MethodGet:
		s.writeJSON(ctx, fasthttp.StatusOK, s.presenter.State(id, ctrl.Snapshot()))
	case action == "board.png" && method == fasthttp.MethodGet:
		s.handleBoard(ctx, ctrl)
	case action == "start" && method == fasthttp.MethodPost:
		s.handleStart(ctx, id, ctrl)
	case action == "pickup" && method == fasthttp.MethodPost:
		s.handlePickUp(ctx, id, ctrl)
	case action == "drop" && method == fasthttp.MethodPost:
		s.handleDrop(ctx, id, ctrl)
	case action == "cancel" && method == fasthttp.MethodPost:
		ctrl.CancelDrag()
		s.writeJSON(ctx, fasthttp.StatusOK, s.presenter.State(id, ctrl.Snapshot()))
	case action == "restart" && method == fasthttp.MethodPost:
		ctrl.Restart()
		s.writeJSON(ctx, fasthttp.StatusOK, s.presenter.State(id, ctrl.Snapshot()))
	default:
		s.writeError(ctx, fasthttp.StatusNotFound, arenadto.DomainError{Code: arenadto.CodeNotFound, Message: "no route for " + method + " " + action})
	}
}

func (s *Server) handleLevels(ctx *fasthttp.RequestCtx) {
	levels := uci.Levels()
	out := arenadto.LevelsResponse{
		Min:     int(uci.MinSkillLevel),
		Max:     int(uci.MaxSkillLevel),
		Default: int(s.defaultLevel),
		Levels:  make([]int, 0, len(levels)),
	}
	for _, l := range levels {
		out.Levels = append(out.Levels, int(l))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) handleCreate(ctx *fasthttp.RequestCtx) {
	id, ctrl, err := s.reg.Create(ctx)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusCreated, s.presenter.State(id, ctrl.Snapshot()))
}

func (s *Server) handleStart(ctx *fasthttp.RequestCtx, id string, ctrl *game.Controller) {
	var req arenadto.StartRequest
	if err := decodeBody(s.validate, ctx.PostBody(), &req); err != nil {
		s.fail(ctx, err)
		return
	}
	level := s.defaultLevel
	if req.Level != nil {
		level = uci.SkillLevel(*req.Level)
	}
	// The engine outlives the request; only startup is bounded.
	startCtx, cancel := context.WithTimeout(context.Background(), s.startTimeout)
	defer cancel()
	if err := ctrl.Start(startCtx, level); err != nil {
		s.fail(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, s.presenter.State(id, ctrl.Snapshot()))
}

func (s *Server) handlePickUp(ctx *fasthttp.RequestCtx, id string, ctrl *game.Controller) {
	var req arenadto.PickUpRequest
	if err := decodeBody(s.validate, ctx.PostBody(), &req); err != nil {
		s.fail(ctx, err)
		return
	}
	sq, err := board.ParseSquare(req.Square)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	lifted, err := ctrl.PickUp(sq)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	view := ctrl.Snapshot()
	resp := arenadto.PickUpResponse{Lifted: lifted, Targets: []string{}, State: s.presenter.State(id, view)}
	if lifted {
		for target, style := range view.Highlights {
			if style == game.HighlightDestination {
				resp.Targets = append(resp.Targets, target.String())
			}
		}
		sort.Strings(resp.Targets)
	}
	s.writeJSON(ctx, fasthttp.StatusOK, resp)
}

// handleDrop never fails on an illegal move; the piece snaps back and
// accepted is false.
func (s *Server) handleDrop(ctx *fasthttp.RequestCtx, id string, ctrl *game.Controller) {
	var req arenadto.DropRequest
	if err := decodeBody(s.validate, ctx.PostBody(), &req); err != nil {
		s.fail(ctx, err)
		return
	}
	raw := req.From + req.To + req.Promotion
	m, err := board.ParseMove(raw)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	var accepted bool
	if m.Promotion == board.NoPiece {
		accepted = ctrl.Drop(m.From, m.To)
	} else if err := ctrl.SubmitMove(m); err == nil {
		accepted = true
	} else {
		ctrl.CancelDrag()
	}
	if !accepted {
		s.log.Debug("drop rejected", zap.String("session_id", id), zap.String("move_uci", raw))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, arenadto.DropResponse{Accepted: accepted, State: s.presenter.State(id, ctrl.Snapshot())})
}

func (s *Server) handleBoard(ctx *fasthttp.RequestCtx, ctrl *game.Controller) {
	view := ctrl.Snapshot()
	img, err := s.renderer.RenderPNG(ctx, view.Position, s.presenter.RenderOptions(view))
	if err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.Response.Header.Set("Cache-Control", "no-store")
	ctx.SetContentType("image/png")
	ctx.SetBody(img)
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.log.Error("encode response", zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, status int, de arenadto.DomainError) {
	s.writeJSON(ctx, status, de)
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, err error) {
	status, de := domainError(err)
	if status >= fasthttp.StatusInternalServerError {
		s.log.Warn("request failed", zap.String("path", string(ctx.Path())), zap.Error(err))
	}
	s.writeError(ctx, status, de)
}

func domainError(err error) (int, arenadto.DomainError) {
	msg := err.Error()
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return fasthttp.StatusNotFound, arenadto.DomainError{Code: arenadto.CodeNotFound, Message: msg}
	case errors.Is(err, errInvalidBody),
		errors.Is(err, uci.ErrInvalidSkillLevel),
		errors.Is(err, board.ErrInvalidSquare),
		errors.Is(err, board.ErrInvalidMove):
		return fasthttp.StatusBadRequest, arenadto.DomainError{Code: arenadto.CodeInvalidRequest, Message: msg}
	case errors.Is(err, game.ErrInvalidState):
		return fasthttp.StatusConflict, arenadto.DomainError{Code: arenadto.CodeInvalidState, Message: msg}
	case errors.Is(err, game.ErrIllegalMove):
		return fasthttp.StatusUnprocessableEntity, arenadto.DomainError{Code: arenadto.CodeIllegalMove, Message: msg}
	case errors.Is(err, lease.ErrHeld):
		return fasthttp.StatusConflict, arenadto.DomainError{Code: arenadto.CodeSessionHeld, Message: msg, Retryable: true}
	case errors.Is(err, uci.ErrAtCapacity):
		return fasthttp.StatusServiceUnavailable, arenadto.DomainError{Code: arenadto.CodeAtCapacity, Message: msg, Retryable: true}
	case errors.Is(err, game.ErrEngineFailure):
		return fasthttp.StatusBadGateway, arenadto.DomainError{Code: arenadto.CodeEngineFailure, Message: msg, Retryable: true}
	default:
		return fasthttp.StatusInternalServerError, arenadto.DomainError{Code: arenadto.CodeInternal, Message: msg}
	}
}
