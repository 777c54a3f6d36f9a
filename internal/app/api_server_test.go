package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"suiflash-router/internal/collector"
	"suiflash-router/internal/config"
	"suiflash-router/internal/datasource"
	"suiflash-router/internal/execution"
	"suiflash-router/internal/monitor"
	"suiflash-router/internal/protocol"
	"suiflash-router/internal/router"
	"suiflash-router/internal/store"
)

func newTestDeps(t *testing.T) apiDeps {
	t.Helper()

	source := datasource.NewManualSource()
	source.Set(protocol.Navi, datasource.Quote{FeeBps: 8, Liquidity: 10_000_000})
	source.Set(protocol.Bucket, datasource.Quote{FeeBps: 5, Liquidity: 5_000_000})
	source.Set(protocol.Scallop, datasource.Quote{FeeBps: 9, Liquidity: 8_000_000})

	coll := collector.New(source, collector.Options{Asset: "0x2::sui::SUI"}, nil)
	if err := coll.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh collector: %v", err)
	}

	engine := router.New(coll, config.RoutingConfig{
		Strategy:      config.StrategyCheapest,
		ServiceFeeBps: 30,
	}, nil)

	executor := execution.NewSuiExecutor(config.SuiConfig{
		PackageID:      "0xflashrouter",
		ConfigObjectID: "0xconfig",
		SenderAddress:  "0xsender",
	}, nil)

	st, err := store.NewSQLite(config.DatabaseConfig{InMemory: true, MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	monitorSvc, err := monitor.NewService(st, nil)
	if err != nil {
		t.Fatalf("create monitor service: %v", err)
	}

	return apiDeps{
		engine:   engine,
		coll:     coll,
		executor: executor,
		monitor:  monitorSvc,
	}
}

func TestHandleFlashLoanBestCost(t *testing.T) {
	deps := newTestDeps(t)
	handler := handleFlashLoan(deps, zap.NewNop())

	body := `{"asset":"0x2::sui::SUI","amount":1000000,"route_mode":"BestCost"}`
	req := httptest.NewRequest(http.MethodPost, "/flashloan", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch: got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp FlashLoanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ProtocolUsed != protocol.Bucket {
		t.Errorf("expected Bucket, got %s", resp.ProtocolUsed)
	}
	if resp.TotalFee != 3_500 {
		t.Errorf("total fee mismatch: got %d want 3500", resp.TotalFee)
	}
	if resp.RequestID == "" || resp.TransactionDigest == "" {
		t.Error("expected request id and transaction digest to be set")
	}
}

func TestHandleFlashLoanExplicit(t *testing.T) {
	deps := newTestDeps(t)
	handler := handleFlashLoan(deps, zap.NewNop())

	body := `{"asset":"0x2::sui::SUI","amount":500000,"route_mode":"Explicit","explicit_protocol":2}`
	req := httptest.NewRequest(http.MethodPost, "/flashloan", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch: got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp FlashLoanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ProtocolUsed != protocol.Scallop {
		t.Errorf("expected Scallop, got %s", resp.ProtocolUsed)
	}
	if resp.TotalFee != 1_950 {
		t.Errorf("total fee mismatch: got %d want 1950", resp.TotalFee)
	}
}

func TestHandleFlashLoanInsufficientLiquidity(t *testing.T) {
	deps := newTestDeps(t)
	handler := handleFlashLoan(deps, zap.NewNop())

	body := `{"asset":"0x2::sui::SUI","amount":100000000,"route_mode":"BestCost"}`
	req := httptest.NewRequest(http.MethodPost, "/flashloan", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected an error message")
	}
}

func TestHandleFlashLoanRejectsUnknownMode(t *testing.T) {
	deps := newTestDeps(t)
	handler := handleFlashLoan(deps, zap.NewNop())

	body := `{"asset":"0x2::sui::SUI","amount":1000,"route_mode":"Fastest"}`
	req := httptest.NewRequest(http.MethodPost, "/flashloan", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleFlashLoanRejectsMalformedBody(t *testing.T) {
	deps := newTestDeps(t)
	handler := handleFlashLoan(deps, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/flashloan", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleProtocols(t *testing.T) {
	deps := newTestDeps(t)
	handler := handleProtocols(deps, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/protocols", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch: got %d", rec.Code)
	}

	var resp ProtocolsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Protocols) != 3 {
		t.Fatalf("expected 3 protocols, got %d", len(resp.Protocols))
	}
	// 响应按固定判别值顺序排列。
	if resp.Protocols[0].Protocol != protocol.Navi ||
		resp.Protocols[1].Protocol != protocol.Bucket ||
		resp.Protocols[2].Protocol != protocol.Scallop {
		t.Errorf("unexpected protocol order: %+v", resp.Protocols)
	}
}

func TestHandleStatus(t *testing.T) {
	deps := newTestDeps(t)
	handler := handleStatus(deps, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch: got %d", rec.Code)
	}

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Strategy != config.StrategyCheapest {
		t.Errorf("strategy mismatch: got %q", resp.Strategy)
	}
	if resp.ServiceFeeBps != 30 {
		t.Errorf("service fee mismatch: got %d", resp.ServiceFeeBps)
	}
	if resp.ProtocolCount != 3 {
		t.Errorf("protocol count mismatch: got %d", resp.ProtocolCount)
	}
	if resp.LastUpdatedAny == nil {
		t.Error("expected last_updated_any to be set after refresh")
	}
}

func TestHandleEvents(t *testing.T) {
	deps := newTestDeps(t)

	// 先通过闪电贷请求产生事件。
	loanHandler := handleFlashLoan(deps, zap.NewNop())
	body := `{"asset":"0x2::sui::SUI","amount":1000000,"route_mode":"BestCost"}`
	loanReq := httptest.NewRequest(http.MethodPost, "/flashloan", strings.NewReader(body))
	loanRec := httptest.NewRecorder()
	loanHandler(loanRec, loanReq)
	if loanRec.Code != http.StatusOK {
		t.Fatalf("flashloan request failed: %d", loanRec.Code)
	}

	handler := handleEvents(deps, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/events?type=execution&limit=10", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch: got %d", rec.Code)
	}

	var events []monitor.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 execution event, got %d", len(events))
	}
	if events[0].Type != monitor.EventExecution {
		t.Errorf("event type mismatch: got %s", events[0].Type)
	}
}
