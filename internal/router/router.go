package router

import (
	"fmt"

	"go.uber.org/zap"

	"suiflash-router/internal/config"
	"suiflash-router/internal/protocol"
)

// DataProvider 抽象协议数据缓存的只读视图。
type DataProvider interface {
	Get(p protocol.Protocol) (protocol.Data, bool)
	GetAll() protocol.Snapshot
}

// Engine 为路由引擎：基于缓存快照过滤可用协议、按策略选路并定价。
// 选路与定价均为纯计算，拿到快照后不再发生任何挂起。
type Engine struct {
	provider      DataProvider
	strategy      string
	serviceFeeBps uint64
	logger        *zap.Logger
}

// New 创建路由引擎。
func New(provider DataProvider, cfg config.RoutingConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		provider:      provider,
		strategy:      cfg.Strategy,
		serviceFeeBps: cfg.ServiceFeeBps,
		logger:        logger,
	}
}

// Strategy 返回配置的策略名称。
func (e *Engine) Strategy() string {
	return e.strategy
}

// ServiceFeeBps 返回配置的服务费率。
func (e *Engine) ServiceFeeBps() uint64 {
	return e.serviceFeeBps
}

// defaultMode 把配置的策略名称映射为路由模式，未知策略回退为 cheapest。
func (e *Engine) defaultMode() protocol.RouteMode {
	switch e.strategy {
	case config.StrategyCheapest:
		return protocol.RouteBestCost
	case config.StrategyHighestLiquidity:
		return protocol.RouteBestLiquidity
	default:
		e.logger.Debug("未知策略，回退为 cheapest", zap.String("strategy", e.strategy))
		return protocol.RouteBestCost
	}
}

// viableSet 按固定协议顺序返回流动性满足请求金额的协议数据。
// 顺序来自 protocol.All，打平规则依赖该顺序，与 map 遍历顺序无关。
func (e *Engine) viableSet(amount uint64) []protocol.Data {
	snapshot := e.provider.GetAll()

	viable := make([]protocol.Data, 0, len(snapshot))
	for _, p := range protocol.All() {
		data, ok := snapshot[p]
		if !ok {
			continue
		}
		if data.AvailableLiquidity >= amount {
			viable = append(viable, data)
		}
	}
	return viable
}

// FindBestProtocol 按请求的路由模式在可用集合中选出协议。
// 可用集合为空时返回 ErrInsufficientLiquidity，对显式路由同样适用。
func (e *Engine) FindBestProtocol(req protocol.FlashLoanRequest) (protocol.Protocol, error) {
	viable := e.viableSet(req.Amount)
	if len(viable) == 0 {
		return 0, fmt.Errorf("%w: amount=%d", ErrInsufficientLiquidity, req.Amount)
	}

	mode := req.RouteMode
	if mode == "" {
		mode = e.defaultMode()
	}

	var selected protocol.Protocol
	switch mode {
	case protocol.RouteExplicit:
		if req.ExplicitProtocol == nil {
			return 0, ErrMissingExplicitProtocol
		}
		target := *req.ExplicitProtocol
		if !containsProtocol(viable, target) {
			return 0, fmt.Errorf("%w: %s", ErrProtocolUnavailable, target)
		}
		selected = target
	case protocol.RouteBestLiquidity:
		selected = highestLiquidity(viable)
	case protocol.RouteBestCost:
		selected = cheapest(viable)
	default:
		e.logger.Debug("未知路由模式，按费率最低选路", zap.Stringer("route_mode", mode))
		selected = cheapest(viable)
	}

	e.logger.Info("完成协议选路",
		zap.Stringer("protocol", selected),
		zap.Stringer("route_mode", mode),
		zap.Uint64("amount", req.Amount),
	)
	return selected, nil
}

// cheapest 返回费率最低的协议；费率相同时保留顺序靠前者。
func cheapest(viable []protocol.Data) protocol.Protocol {
	best := viable[0]
	for _, data := range viable[1:] {
		if data.FeeBps < best.FeeBps {
			best = data
		}
	}
	return best.Protocol
}

// highestLiquidity 返回流动性最高的协议；相同时保留顺序靠前者。
func highestLiquidity(viable []protocol.Data) protocol.Protocol {
	best := viable[0]
	for _, data := range viable[1:] {
		if data.AvailableLiquidity > best.AvailableLiquidity {
			best = data
		}
	}
	return best.Protocol
}

func containsProtocol(viable []protocol.Data, p protocol.Protocol) bool {
	for _, data := range viable {
		if data.Protocol == p {
			return true
		}
	}
	return false
}

// BuildPlan 组合选路与定价生成执行计划，选路失败时不再定价。
func (e *Engine) BuildPlan(req protocol.FlashLoanRequest) (protocol.ExecutionPlan, error) {
	selected, err := e.FindBestProtocol(req)
	if err != nil {
		return protocol.ExecutionPlan{}, err
	}

	cost, err := e.CalculateCost(req, selected)
	if err != nil {
		return protocol.ExecutionPlan{}, err
	}

	return assemblePlan(req, selected, cost), nil
}

// OverrideProtocol 绕过选路强制使用指定协议，但仍然执行流动性
// 校验与定价。
func (e *Engine) OverrideProtocol(req protocol.FlashLoanRequest, p protocol.Protocol) (protocol.ExecutionPlan, error) {
	data, ok := e.provider.Get(p)
	if !ok {
		return protocol.ExecutionPlan{}, fmt.Errorf("%w: %s", ErrProtocolDataUnavailable, p)
	}
	if data.AvailableLiquidity < req.Amount {
		return protocol.ExecutionPlan{}, fmt.Errorf("%w: %s 流动性不足", ErrProtocolUnavailable, p)
	}

	cost, err := e.CalculateCost(req, p)
	if err != nil {
		return protocol.ExecutionPlan{}, err
	}

	e.logger.Info("使用显式指定协议",
		zap.Stringer("protocol", p),
		zap.Uint64("amount", req.Amount),
	)
	return assemblePlan(req, p, cost), nil
}

func assemblePlan(req protocol.FlashLoanRequest, p protocol.Protocol, cost Cost) protocol.ExecutionPlan {
	return protocol.ExecutionPlan{
		Protocol:          p,
		Amount:            req.Amount,
		ProtocolFee:       cost.ProtocolFee,
		ServiceFee:        cost.ServiceFee,
		TotalCost:         cost.Total,
		UserOperation:     req.UserOperation,
		CallbackRecipient: req.CallbackRecipient,
		CallbackPayload:   req.CallbackPayload,
	}
}
