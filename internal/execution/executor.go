package execution

import (
	"context"

	"suiflash-router/internal/protocol"
)

// Executor 抽象闪电贷执行器接口，方便切换真实或模拟提交。
// 执行错误原样向上传递，本层不做自动重试。
type Executor interface {
	// Execute 按执行计划提交闪电贷交易，返回交易摘要。
	Execute(ctx context.Context, plan protocol.ExecutionPlan) (string, error)
	// Verify 检查指定交易是否成功落地。
	Verify(ctx context.Context, digest string) (bool, error)
}

var _ Executor = (*SuiExecutor)(nil)
