package monitor

import (
	"time"

	"suiflash-router/internal/protocol"
)

// EventType 表示监控事件类型。
type EventType string

const (
	EventRefresh       EventType = "refresh"
	EventRouteDecision EventType = "route_decision"
	EventExecution     EventType = "execution"
	EventError         EventType = "error"
)

// Event 封装通用监控事件。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RefreshPayload 记录一轮协议数据刷新的结果快照。
type RefreshPayload struct {
	Protocols []protocol.Data `json:"protocols"`
	Failed    bool            `json:"failed"`
}

// RouteDecisionPayload 记录一次选路与定价结果。
type RouteDecisionPayload struct {
	RequestID string                    `json:"request_id"`
	Request   protocol.FlashLoanRequest `json:"request"`
	Plan      protocol.ExecutionPlan    `json:"plan"`
}

// ExecutionPayload 记录闪电贷执行结果。
type ExecutionPayload struct {
	RequestID string                 `json:"request_id"`
	Plan      protocol.ExecutionPlan `json:"plan"`
	Digest    string                 `json:"digest"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
