package httpapi

import (
	"strconv"

	"github.com/valyala/fasthttp"

	"github.com/park285/chess-arbiter/internal/chessrules"
	"github.com/park285/chess-arbiter/internal/render"
	"github.com/park285/chess-arbiter/internal/session"
	"github.com/park285/chess-arbiter/pkg/chessdto"
)

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, map[string]any{"status": "ok", "games": s.reg.Len()})
}

func (s *Server) handleCreate(ctx *fasthttp.RequestCtx) {
	id, ws, bs, err := s.reg.CreateGame(ctx)
	if err != nil {
		s.domainFailure(ctx, err, nil)
		return
	}
	ctx.Response.Header.Set("Location", "/v1/games/"+strconv.FormatUint(id, 10))
	writeJSON(ctx, fasthttp.StatusCreated, chessdto.CreateGameResponse{ID: id, WhiteSecret: ws, BlackSecret: bs})
}

func (s *Server) handleList(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	offset, limit := 0, defaultListLimit
	if args.Has("offset") {
		n, err := args.GetUint("offset")
		if err != nil {
			s.badRequest(ctx, "offset must be a non-negative integer")
			return
		}
		offset = n
	}
	if args.Has("limit") {
		n, err := args.GetUint("limit")
		if err != nil {
			s.badRequest(ctx, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	limit = min(limit, s.listMax)

	views := s.reg.ListRecent(offset, limit)
	out := chessdto.ListResponse{Games: make([]chessdto.GameView, 0, len(views)), Offset: offset, Limit: limit}
	for _, v := range views {
		out.Games = append(out.Games, toDTO(v))
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) handleGet(ctx *fasthttp.RequestCtx, id uint64) {
	v, ok := s.reg.Get(id)
	if !ok {
		s.domainFailure(ctx, session.ErrNotFound, gameData(id))
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, toDTO(v))
}

func (s *Server) handleJoin(ctx *fasthttp.RequestCtx, id uint64) {
	var req chessdto.JoinRequest
	if err := decodeBody(ctx, &req); err != nil {
		s.badRequest(ctx, err.Error())
		return
	}
	v, err := s.reg.Join(ctx, id, req.Secret, actorOf(ctx))
	if err != nil {
		s.domainFailure(ctx, err, gameData(id))
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, toDTO(v))
}

func (s *Server) handleMove(ctx *fasthttp.RequestCtx, id uint64) {
	var req chessdto.MoveRequest
	if err := decodeBody(ctx, &req); err != nil {
		s.badRequest(ctx, err.Error())
		return
	}
	v, err := s.reg.MakeMove(ctx, id, actorOf(ctx), req.Move)
	if err != nil {
		data := gameData(id)
		data["Input"] = req.Move
		s.domainFailure(ctx, err, data)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, toDTO(v))
}

func (s *Server) handleResign(ctx *fasthttp.RequestCtx, id uint64) {
	v, err := s.reg.Resign(ctx, id, actorOf(ctx))
	if err != nil {
		s.domainFailure(ctx, err, gameData(id))
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, toDTO(v))
}

func (s *Server) handleRole(ctx *fasthttp.RequestCtx, id uint64) {
	role := s.reg.RoleOf(actorOf(ctx), id)
	writeJSON(ctx, fasthttp.StatusOK, chessdto.RoleResponse{ID: id, Role: string(role)})
}

func (s *Server) handlePGN(ctx *fasthttp.RequestCtx, id uint64) {
	text, err := s.reg.ExportPGN(id)
	if err != nil {
		s.domainFailure(ctx, err, gameData(id))
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString(text)
}

func (s *Server) handleBoard(ctx *fasthttp.RequestCtx, id uint64) {
	v, ok := s.reg.Get(id)
	if !ok {
		s.domainFailure(ctx, session.ErrNotFound, gameData(id))
		return
	}
	opts := render.Options{Flip: string(ctx.QueryArgs().Peek("orientation")) == "black"}
	if from, to, ok := s.lastMove(v.MovesSAN); ok {
		opts.Highlight = &render.Highlight{From: from, To: to}
	}
	img, err := render.RenderPNG(ctx, v.FEN, opts)
	if err != nil {
		s.domainFailure(ctx, err, nil)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("image/png")
	ctx.SetBody(img)
}

func (s *Server) handleInspect(ctx *fasthttp.RequestCtx, id uint64) {
	d, ok := s.reg.Inspect(id)
	if !ok {
		s.domainFailure(ctx, session.ErrNotFound, gameData(id))
		return
	}
	out := chessdto.DebugSeats{ID: id, White: d.White, Black: d.Black}
	if d.WhiteHash != nil {
		h := d.WhiteHash.String()
		out.WhiteHash = &h
	}
	if d.BlackHash != nil {
		h := d.BlackHash.String()
		out.BlackHash = &h
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) badRequest(ctx *fasthttp.RequestCtx, detail string) {
	s.writeError(ctx, fasthttp.StatusBadRequest, "BAD_REQUEST", s.cat.Error("BAD_REQUEST", map[string]any{"Detail": detail}), false)
}

// lastMove recovers the squares of the final ply by replaying the history before it.
func (s *Server) lastMove(history []string) (from, to chessrules.Square, ok bool) {
	if len(history) == 0 {
		return from, to, false
	}
	pos, err := chessrules.Replay(s.rules, history[:len(history)-1])
	if err != nil {
		return from, to, false
	}
	mv, err := s.rules.ParseNotation(pos, history[len(history)-1])
	if err != nil {
		return from, to, false
	}
	from, okFrom := chessrules.ParseSquare(mv.From)
	to, okTo := chessrules.ParseSquare(mv.To)
	return from, to, okFrom && okTo
}

func gameData(id uint64) map[string]any {
	return map[string]any{"GameID": id}
}

func toDTO(v session.View) chessdto.GameView {
	out := chessdto.GameView{
		ID:          v.ID,
		White:       v.White,
		Black:       v.Black,
		FEN:         v.FEN,
		MovesSAN:    v.MovesSAN,
		Status:      chessdto.Status{Kind: string(v.Status.Kind), Winner: string(v.Status.Winner), Reason: v.Status.Reason},
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
		WhiteToMove: v.WhiteToMove,
	}
	if v.MovesSAN == nil {
		out.MovesSAN = []string{}
	}
	if v.Opening != nil {
		out.Opening = &chessdto.Opening{Code: v.Opening.Code, Title: v.Opening.Title}
	}
	return out
}
