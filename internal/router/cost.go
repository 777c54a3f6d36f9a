package router

import (
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"suiflash-router/internal/protocol"
)

const bpsDenominator = 10_000

// Cost 为一次定价的费用拆分。协议费与服务费各自独立向下取整，
// Total = Amount + ProtocolFee + ServiceFee。
type Cost struct {
	ProtocolFee uint64
	ServiceFee  uint64
	Total       uint64
}

// CalculateCost 根据缓存中的协议费率对请求定价。
// 乘法在 256 位域内完成，收窄回 uint64 时做溢出检查，溢出即失败，
// 绝不静默截断。
func (e *Engine) CalculateCost(req protocol.FlashLoanRequest, p protocol.Protocol) (Cost, error) {
	data, ok := e.provider.Get(p)
	if !ok {
		return Cost{}, fmt.Errorf("%w: %s", ErrProtocolDataUnavailable, p)
	}

	protocolFee, err := feeFloor(req.Amount, data.FeeBps)
	if err != nil {
		return Cost{}, err
	}

	serviceFee, err := feeFloor(req.Amount, e.serviceFeeBps)
	if err != nil {
		return Cost{}, err
	}

	total := new(uint256.Int).SetUint64(req.Amount)
	total.Add(total, new(uint256.Int).SetUint64(protocolFee))
	total.Add(total, new(uint256.Int).SetUint64(serviceFee))
	if !total.IsUint64() {
		return Cost{}, fmt.Errorf("%w: amount=%d", ErrFeeOverflow, req.Amount)
	}

	cost := Cost{
		ProtocolFee: protocolFee,
		ServiceFee:  serviceFee,
		Total:       total.Uint64(),
	}

	e.logger.Debug("完成费用计算",
		zap.Stringer("protocol", p),
		zap.Uint64("amount", req.Amount),
		zap.Uint64("fee_bps", data.FeeBps),
		zap.Uint64("protocol_fee", cost.ProtocolFee),
		zap.Uint64("service_fee", cost.ServiceFee),
		zap.Uint64("total", cost.Total),
	)
	return cost, nil
}

// feeFloor 计算 floor(amount * bps / 10_000)。
func feeFloor(amount, bps uint64) (uint64, error) {
	fee := new(uint256.Int).SetUint64(amount)
	fee.Mul(fee, new(uint256.Int).SetUint64(bps))
	fee.Div(fee, uint256.NewInt(bpsDenominator))
	if !fee.IsUint64() {
		return 0, fmt.Errorf("%w: amount=%d bps=%d", ErrFeeOverflow, amount, bps)
	}
	return fee.Uint64(), nil
}
