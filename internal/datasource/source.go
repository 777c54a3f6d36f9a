package datasource

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"suiflash-router/internal/protocol"
)

// Quote 为单次抓取得到的费率与流动性。
type Quote struct {
	FeeBps    uint64
	Liquidity uint64
}

// DataSource 抽象协议数据来源，便于在真实源与手动源之间切换。
// 实现不得无限阻塞，超时由调用方通过 ctx 控制。
type DataSource interface {
	Fetch(ctx context.Context, p protocol.Protocol, asset string) (Quote, error)
}

// Attempt 记录回退链中单个阶段的失败原因。
type Attempt struct {
	Stage string
	Err   error
}

// FetchError 表示回退链全部阶段均失败。
// 各阶段的失败原因保留下来用于诊断。
type FetchError struct {
	Protocol protocol.Protocol
	Attempts []Attempt
}

// Error 汇总全部阶段的失败信息。
func (e *FetchError) Error() string {
	stages := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		stages = append(stages, fmt.Sprintf("%s: %v", a.Stage, a.Err))
	}
	return fmt.Sprintf("datasource: 协议 %s 数据抓取失败 [%s]", e.Protocol, strings.Join(stages, "; "))
}

// Unwrap 暴露各阶段错误，支持 errors.Is/As 检查。
func (e *FetchError) Unwrap() error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return multierr.Combine(errs...)
}
