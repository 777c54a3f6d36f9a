package router

import "errors"

// 请求级错误分类。抓取层错误不会出现在这里，它们在采集层
// 被吸收为旧数据回退。
var (
	// ErrInsufficientLiquidity 表示没有任何协议的流动性满足请求金额。
	ErrInsufficientLiquidity = errors.New("router: 无协议具备足够流动性")
	// ErrProtocolUnavailable 表示显式指定的协议不在可用集合内。
	ErrProtocolUnavailable = errors.New("router: 指定协议不可用")
	// ErrProtocolDataUnavailable 表示协议缺少缓存数据，无法定价。
	ErrProtocolDataUnavailable = errors.New("router: 协议数据缺失")
	// ErrMissingExplicitProtocol 表示显式路由模式下未指定协议。
	ErrMissingExplicitProtocol = errors.New("router: 显式路由缺少协议参数")
	// ErrFeeOverflow 表示费用计算结果超出 uint64 可表示范围。
	ErrFeeOverflow = errors.New("router: 费用计算溢出")
)

// IsClientError 判断错误是否属于请求方问题（而非系统故障）。
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientLiquidity) ||
		errors.Is(err, ErrProtocolUnavailable) ||
		errors.Is(err, ErrProtocolDataUnavailable) ||
		errors.Is(err, ErrMissingExplicitProtocol) ||
		errors.Is(err, ErrFeeOverflow)
}
