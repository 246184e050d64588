package httpapi

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/chess-arbiter/internal/session"
	"github.com/park285/chess-arbiter/pkg/chessdto"
)

const requestIDKey = "request_id"

var statusByCode = map[string]int{
	"NOT_FOUND":      fasthttp.StatusNotFound,
	"ALREADY_SEATED": fasthttp.StatusConflict,
	"SEAT_TAKEN":     fasthttp.StatusConflict,
	"INVALID_TOKEN":  fasthttp.StatusForbidden,
	"GAME_FINISHED":  fasthttp.StatusConflict,
	"WRONG_TURN":     fasthttp.StatusConflict,
	"NOT_SEATED":     fasthttp.StatusForbidden,
	"ILLEGAL_MOVE":   fasthttp.StatusUnprocessableEntity,
	"PARSE_ERROR":    fasthttp.StatusBadRequest,
	"INVALID_ACTOR":  fasthttp.StatusUnauthorized,
}

// domainFailure renders err with its catalog message. data feeds the template.
func (s *Server) domainFailure(ctx *fasthttp.RequestCtx, err error, data map[string]any) {
	code := session.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		s.log.Error("http_internal_error", zap.Any(requestIDKey, ctx.UserValue(requestIDKey)), zap.Error(err))
		s.writeError(ctx, fasthttp.StatusInternalServerError, "INTERNAL", s.cat.Error("INTERNAL", nil), true)
		return
	}
	msg := s.cat.Error(code, data)
	if msg == code {
		msg = err.Error()
	}
	s.writeError(ctx, status, code, msg, false)
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, status int, code, msg string, retryable bool) {
	writeJSON(ctx, status, errorBody(ctx, code, msg, retryable))
}

func errorBody(ctx *fasthttp.RequestCtx, code, msg string, retryable bool) chessdto.ErrorResponse {
	reqID, _ := ctx.UserValue(requestIDKey).(string)
	return chessdto.ErrorResponse{
		Error:     chessdto.DomainError{Code: code, Message: msg, Retryable: retryable},
		RequestID: reqID,
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		ctx.Error(`{"error":{"code":"INTERNAL","message":"encode response"}}`, fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetBody(raw)
}

func decodeBody(ctx *fasthttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(body, dst)
}
