package protocol

// RouteMode 表示调用方选择协议的策略，线上值沿用原始格式。
type RouteMode string

const (
	// RouteExplicit 由调用方固定指定协议。
	RouteExplicit RouteMode = "Explicit"
	// RouteBestCost 在流动性充足的协议中选择费率最低者。
	RouteBestCost RouteMode = "BestCost"
	// RouteBestLiquidity 在流动性充足的协议中选择流动性最高者。
	RouteBestLiquidity RouteMode = "BestLiquidity"
)

// IsValid 判断路由模式是否为已知值。
func (m RouteMode) IsValid() bool {
	switch m {
	case RouteExplicit, RouteBestCost, RouteBestLiquidity:
		return true
	default:
		return false
	}
}

// String 返回路由模式的线上名称。
func (m RouteMode) String() string {
	return string(m)
}

// FlashLoanRequest 为一次闪电贷请求，在单次聚合调用内消费完毕。
// RouteMode 为空时由路由引擎按配置的默认策略选路。
type FlashLoanRequest struct {
	Asset             string    `json:"asset"`
	Amount            uint64    `json:"amount"`
	RouteMode         RouteMode `json:"route_mode,omitempty"`
	ExplicitProtocol  *Protocol `json:"explicit_protocol,omitempty"`
	UserOperation     string    `json:"user_operation"`
	CallbackRecipient *string   `json:"callback_recipient,omitempty"`
	CallbackPayload   *string   `json:"callback_payload,omitempty"`
}

// ExecutionPlan 为定价后的执行计划，交由执行器落地。
// ProtocolFee 与 ServiceFee 为各自独立向下取整后的结果，
// TotalCost = Amount + ProtocolFee + ServiceFee。
type ExecutionPlan struct {
	Protocol          Protocol `json:"protocol"`
	Amount            uint64   `json:"amount"`
	ProtocolFee       uint64   `json:"protocol_fee"`
	ServiceFee        uint64   `json:"service_fee"`
	TotalCost         uint64   `json:"total_cost"`
	UserOperation     string   `json:"user_operation"`
	CallbackRecipient *string  `json:"callback_recipient,omitempty"`
	CallbackPayload   *string  `json:"callback_payload,omitempty"`
}

// TotalFee 返回计划的总费用。
func (p ExecutionPlan) TotalFee() uint64 {
	return p.ProtocolFee + p.ServiceFee
}
