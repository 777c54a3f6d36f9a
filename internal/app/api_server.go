package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"suiflash-router/internal/collector"
	"suiflash-router/internal/execution"
	"suiflash-router/internal/monitor"
	"suiflash-router/internal/protocol"
	"suiflash-router/internal/router"
)

// apiDeps 为 API 层依赖集合。
type apiDeps struct {
	engine   *router.Engine
	coll     *collector.Collector
	executor execution.Executor
	monitor  *monitor.Service
}

// FlashLoanResponse 为闪电贷请求的响应体。
type FlashLoanResponse struct {
	RequestID         string            `json:"request_id"`
	TransactionDigest string            `json:"transaction_digest"`
	ProtocolUsed      protocol.Protocol `json:"protocol_used"`
	ProtocolFee       uint64            `json:"protocol_fee"`
	ServiceFee        uint64            `json:"service_fee"`
	TotalFee          uint64            `json:"total_fee"`
}

// ProtocolsResponse 为协议数据列表响应体。
type ProtocolsResponse struct {
	Protocols []protocol.Data `json:"protocols"`
}

// StatusResponse 为服务状态响应体。
type StatusResponse struct {
	Strategy       string `json:"strategy"`
	ServiceFeeBps  uint64 `json:"service_fee_bps"`
	ProtocolCount  int    `json:"protocol_count"`
	LastUpdatedAny *int64 `json:"last_updated_any,omitempty"`
}

// errorResponse 为统一错误响应体。
type errorResponse struct {
	Error string `json:"error"`
}

func runAPIServer(ctx context.Context, deps apiDeps, port int, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /flashloan", handleFlashLoan(deps, logger))
	mux.HandleFunc("GET /protocols", handleProtocols(deps, logger))
	mux.HandleFunc("GET /status", handleStatus(deps, logger))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /events", handleEvents(deps, logger))

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: mux}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("关闭API服务失败", zap.Error(err))
		}
	}()

	logger.Info("API服务已启动", zap.String("addr", addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("API服务异常: %w", err)
	}

	<-shutdownDone
	return ctx.Err()
}

// handleFlashLoan 处理闪电贷请求：选路（或显式覆盖）、定价、执行。
func handleFlashLoan(deps apiDeps, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req protocol.FlashLoanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("请求体解析失败: %v", err)}, logger)
			return
		}
		if req.RouteMode != "" && !req.RouteMode.IsValid() {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("未知路由模式 %q", req.RouteMode)}, logger)
			return
		}

		requestID := uuid.NewString()
		logger.Info("收到闪电贷请求",
			zap.String("request_id", requestID),
			zap.String("asset", req.Asset),
			zap.Uint64("amount", req.Amount),
			zap.Stringer("route_mode", req.RouteMode),
		)

		var (
			plan protocol.ExecutionPlan
			err  error
		)
		if req.ExplicitProtocol != nil {
			plan, err = deps.engine.OverrideProtocol(req, *req.ExplicitProtocol)
		} else {
			plan, err = deps.engine.BuildPlan(req)
		}
		if err != nil {
			status := http.StatusInternalServerError
			if router.IsClientError(err) {
				status = http.StatusBadRequest
			}
			logger.Warn("生成执行计划失败",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
			deps.monitor.RecordError(r.Context(), "生成执行计划失败", err, map[string]interface{}{"request_id": requestID})
			writeJSON(w, status, errorResponse{Error: err.Error()}, logger)
			return
		}

		deps.monitor.RecordRouteDecision(r.Context(), requestID, req, plan)

		digest, err := deps.executor.Execute(r.Context(), plan)
		if err != nil {
			logger.Error("闪电贷执行失败",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
			deps.monitor.RecordError(r.Context(), "闪电贷执行失败", err, map[string]interface{}{"request_id": requestID})
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()}, logger)
			return
		}

		deps.monitor.RecordExecution(r.Context(), requestID, plan, digest)

		writeJSON(w, http.StatusOK, FlashLoanResponse{
			RequestID:         requestID,
			TransactionDigest: digest,
			ProtocolUsed:      plan.Protocol,
			ProtocolFee:       plan.ProtocolFee,
			ServiceFee:        plan.ServiceFee,
			TotalFee:          plan.TotalFee(),
		}, logger)
	}
}

// handleProtocols 返回当前缓存快照中的协议数据。
func handleProtocols(deps apiDeps, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := deps.coll.GetAll()
		protocols := make([]protocol.Data, 0, len(snapshot))
		for _, p := range protocol.All() {
			if data, ok := snapshot[p]; ok {
				protocols = append(protocols, data)
			}
		}
		writeJSON(w, http.StatusOK, ProtocolsResponse{Protocols: protocols}, logger)
	}
}

// handleStatus 返回服务状态摘要。
func handleStatus(deps apiDeps, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := deps.coll.GetAll()

		var lastUpdated *int64
		for _, data := range snapshot {
			if lastUpdated == nil || data.LastUpdated > *lastUpdated {
				value := data.LastUpdated
				lastUpdated = &value
			}
		}

		writeJSON(w, http.StatusOK, StatusResponse{
			Strategy:       deps.engine.Strategy(),
			ServiceFeeBps:  deps.engine.ServiceFeeBps(),
			ProtocolCount:  len(snapshot),
			LastUpdatedAny: lastUpdated,
		}, logger)
	}
}

// handleEvents 检索最近的监控事件。
func handleEvents(deps apiDeps, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit := 200
		if qs := q.Get("limit"); qs != "" {
			if v, err := strconv.Atoi(qs); err == nil && v > 0 {
				if v > 1000 {
					v = 1000
				}
				limit = v
			}
		}

		eventType := monitor.EventType("")
		if typ := strings.TrimSpace(q.Get("type")); typ != "" {
			eventType = monitor.EventType(strings.ToLower(typ))
		}

		events, err := deps.monitor.ListEvents(r.Context(), eventType, limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()}, logger)
			return
		}
		writeJSON(w, http.StatusOK, events, logger)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("写入响应失败", zap.Error(err))
	}
}
