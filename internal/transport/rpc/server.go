// Package rpc implements the JSON-RPC 2.0 endpoint. Protocol failures
// (parse, invalid request, unknown method) surface as JSON-RPC errors;
// domain failures are regular results shaped by the method handlers.
package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

// Handler runs one registered method. The returned value becomes the
// JSON-RPC result; a non-nil error becomes an internal protocol error,
// so handlers map domain failures into result envelopes themselves.
type Handler func(ctx *Ctx) (any, error)

// Ctx carries the decoded call plus transport metadata the handlers need
// (client address and user agent feed the report workflow).
type Ctx struct {
	Request   *http.Request
	Params    json.RawMessage
	ClientIP  string
	UserAgent string
}

type Server struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *zap.Logger
}

func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

func (s *Server) Register(method string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
}

type request struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type response struct {
	Jsonrpc string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

func errorResponse(id json.RawMessage, code int, message string) response {
	if id == nil {
		id = json.RawMessage("null")
	}
	return response{Jsonrpc: "2.0", Error: &rpcError{Code: code, Message: message}, ID: id}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body bytes.Buffer
	if _, err := body.ReadFrom(http.MaxBytesReader(w, r.Body, 1<<20)); err != nil {
		writeJSON(w, http.StatusOK, errorResponse(nil, codeParseError, "Parse error"))
		return
	}

	raw := bytes.TrimSpace(body.Bytes())
	if len(raw) == 0 {
		writeJSON(w, http.StatusOK, errorResponse(nil, codeInvalidRequest, "Invalid Request"))
		return
	}

	if raw[0] == '[' {
		s.serveBatch(w, r, raw)
		return
	}

	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		writeJSON(w, http.StatusOK, errorResponse(nil, codeParseError, "Parse error"))
		return
	}

	resp, isNotification := s.dispatch(r, req)
	if isNotification {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) serveBatch(w http.ResponseWriter, r *http.Request, raw []byte) {
	var reqs []request
	if err := json.Unmarshal(raw, &reqs); err != nil {
		writeJSON(w, http.StatusOK, errorResponse(nil, codeParseError, "Parse error"))
		return
	}
	if len(reqs) == 0 {
		writeJSON(w, http.StatusOK, errorResponse(nil, codeInvalidRequest, "Invalid Request"))
		return
	}

	responses := make([]response, 0, len(reqs))
	for _, req := range reqs {
		resp, isNotification := s.dispatch(r, req)
		if isNotification {
			continue
		}
		responses = append(responses, resp)
	}

	if len(responses) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

// dispatch runs one call. The second return is true for notifications,
// which produce no response member even on failure.
func (s *Server) dispatch(r *http.Request, req request) (response, bool) {
	isNotification := req.ID == nil

	if req.Jsonrpc != "2.0" || req.Method == "" {
		return errorResponse(req.ID, codeInvalidRequest, "Invalid Request"), isNotification
	}

	s.mu.RLock()
	handler, ok := s.handlers[req.Method]
	s.mu.RUnlock()
	if !ok {
		return errorResponse(req.ID, codeMethodNotFound, "Method not found"), isNotification
	}

	ctx := &Ctx{
		Request:   r,
		Params:    req.Params,
		ClientIP:  r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}

	result, err := handler(ctx)
	if err != nil {
		s.logger.Error("rpc method failed", zap.String("method", req.Method), zap.Error(err))
		return errorResponse(req.ID, codeInternalError, "Internal error"), isNotification
	}

	return response{Jsonrpc: "2.0", Result: result, ID: req.ID}, isNotification
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
