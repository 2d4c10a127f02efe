package rpc

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

var errTest = errors.New("sensitive detail")

func postRPC(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeSingle(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("malformed response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestServeSingleCall(t *testing.T) {
	srv := NewServer(zap.NewNop())
	srv.Register("echo", func(c *Ctx) (any, error) {
		var params map[string]any
		_ = json.Unmarshal(c.Params, &params)
		return params, nil
	})

	rec := postRPC(t, srv, `{"jsonrpc":"2.0","method":"echo","params":{"x":1},"id":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeSingle(t, rec)
	if resp["id"] != float64(7) {
		t.Fatalf("id not echoed: %v", resp["id"])
	}
	result, ok := resp["result"].(map[string]any)
	if !ok || result["x"] != float64(1) {
		t.Fatalf("unexpected result: %v", resp["result"])
	}
}

func TestNotificationYields204(t *testing.T) {
	srv := NewServer(zap.NewNop())
	called := false
	srv.Register("fire", func(c *Ctx) (any, error) {
		called = true
		return "ok", nil
	})

	rec := postRPC(t, srv, `{"jsonrpc":"2.0","method":"fire"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for notification, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("notification must produce no body, got %q", rec.Body.String())
	}
	if !called {
		t.Fatal("notification must still run the handler")
	}
}

func TestBatchMixedCallsAndNotifications(t *testing.T) {
	srv := NewServer(zap.NewNop())
	srv.Register("ping", func(c *Ctx) (any, error) { return "pong", nil })

	rec := postRPC(t, srv, `[
		{"jsonrpc":"2.0","method":"ping","id":1},
		{"jsonrpc":"2.0","method":"ping"},
		{"jsonrpc":"2.0","method":"ping","id":2}
	]`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var responses []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &responses); err != nil {
		t.Fatalf("malformed batch response: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses (notification skipped), got %d", len(responses))
	}
}

func TestAllNotificationBatchYields204(t *testing.T) {
	srv := NewServer(zap.NewNop())
	srv.Register("ping", func(c *Ctx) (any, error) { return "pong", nil })

	rec := postRPC(t, srv, `[{"jsonrpc":"2.0","method":"ping"},{"jsonrpc":"2.0","method":"ping"}]`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for all-notification batch, got %d", rec.Code)
	}
}

func TestParseError(t *testing.T) {
	srv := NewServer(zap.NewNop())

	rec := postRPC(t, srv, `{broken`)
	resp := decodeSingle(t, rec)
	errObj, ok := resp["error"].(map[string]any)
	if !ok || errObj["code"] != float64(codeParseError) {
		t.Fatalf("expected parse error, got %v", resp)
	}
}

func TestInvalidRequest(t *testing.T) {
	srv := NewServer(zap.NewNop())

	rec := postRPC(t, srv, `{"method":"ping","id":1}`)
	resp := decodeSingle(t, rec)
	errObj, ok := resp["error"].(map[string]any)
	if !ok || errObj["code"] != float64(codeInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", resp)
	}
}

func TestMethodNotFound(t *testing.T) {
	srv := NewServer(zap.NewNop())

	rec := postRPC(t, srv, `{"jsonrpc":"2.0","method":"nope","id":1}`)
	resp := decodeSingle(t, rec)
	errObj, ok := resp["error"].(map[string]any)
	if !ok || errObj["code"] != float64(codeMethodNotFound) {
		t.Fatalf("expected method not found, got %v", resp)
	}
	if resp["id"] != float64(1) {
		t.Fatalf("error response must keep the call id, got %v", resp["id"])
	}
}

func TestEmptyBatch(t *testing.T) {
	srv := NewServer(zap.NewNop())

	rec := postRPC(t, srv, `[]`)
	resp := decodeSingle(t, rec)
	errObj, ok := resp["error"].(map[string]any)
	if !ok || errObj["code"] != float64(codeInvalidRequest) {
		t.Fatalf("expected invalid request for empty batch, got %v", resp)
	}
}

func TestHandlerErrorBecomesInternalError(t *testing.T) {
	srv := NewServer(zap.NewNop())
	srv.Register("boom", func(c *Ctx) (any, error) {
		return nil, errTest
	})

	rec := postRPC(t, srv, `{"jsonrpc":"2.0","method":"boom","id":3}`)
	resp := decodeSingle(t, rec)
	errObj, ok := resp["error"].(map[string]any)
	if !ok || errObj["code"] != float64(codeInternalError) {
		t.Fatalf("expected internal error, got %v", resp)
	}
	if errObj["message"] == "sensitive detail" {
		t.Fatal("raw error text must not leak through the protocol boundary")
	}
}
