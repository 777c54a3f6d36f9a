package execution

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"
	"lukechampine.com/blake3"

	"suiflash-router/internal/config"
	"suiflash-router/internal/protocol"
)

// 合约入口：flash_router::flash_loan(config, protocol, amount, recipient, payload)。
const (
	moveModule   = "flash_router"
	moveFunction = "flash_loan"
)

// SuiExecutor 把执行计划编码为对 Move 合约的调用并生成交易摘要。
// 当前运行于干跑模式：交易字节按规范构造，摘要由本地哈希得出，
// 不向链上提交。
type SuiExecutor struct {
	cfg    config.SuiConfig
	logger *zap.Logger
}

// NewSuiExecutor 创建 Sui 执行器。
func NewSuiExecutor(cfg config.SuiConfig, logger *zap.Logger) *SuiExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuiExecutor{
		cfg:    cfg,
		logger: logger,
	}
}

// Execute 构造交易字节并返回 base58 编码的交易摘要。
func (e *SuiExecutor) Execute(ctx context.Context, plan protocol.ExecutionPlan) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.logger.Info("执行闪电贷",
		zap.Stringer("protocol", plan.Protocol),
		zap.Uint64("amount", plan.Amount),
		zap.Uint64("total_cost", plan.TotalCost),
	)

	txBytes, err := e.buildTransactionBytes(plan)
	if err != nil {
		return "", err
	}

	digest := transactionDigest(txBytes)
	e.logger.Info("闪电贷交易已构造",
		zap.String("digest", digest),
		zap.Int("tx_bytes", len(txBytes)),
	)
	return digest, nil
}

// buildTransactionBytes 把执行计划编码为确定性的交易字节序列。
// 字段按固定顺序写入：包ID、模块、函数、配置对象、协议判别值、
// 金额、回调接收方、回调负载。
func (e *SuiExecutor) buildTransactionBytes(plan protocol.ExecutionPlan) ([]byte, error) {
	if e.cfg.PackageID == "" {
		return nil, fmt.Errorf("execution: 未配置合约包ID")
	}
	if !plan.Protocol.IsValid() {
		return nil, fmt.Errorf("execution: 计划包含非法协议判别值 %d", int(plan.Protocol))
	}

	recipient := e.cfg.SenderAddress
	if plan.CallbackRecipient != nil && *plan.CallbackRecipient != "" {
		recipient = *plan.CallbackRecipient
	}

	var payload []byte
	if plan.CallbackPayload != nil {
		payload = []byte(*plan.CallbackPayload)
	}

	var buf bytes.Buffer
	writeBytes := func(b []byte) {
		var lenBuf [8]byte
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(b)))
		buf.Write(lenBuf[:])
		buf.Write(b)
	}
	writeUint64 := func(v uint64) {
		var numBuf [8]byte
		binary.LittleEndian.PutUint64(numBuf[:], v)
		buf.Write(numBuf[:])
	}

	writeBytes([]byte(e.cfg.PackageID))
	writeBytes([]byte(moveModule))
	writeBytes([]byte(moveFunction))
	writeBytes([]byte(e.cfg.ConfigObjectID))
	writeUint64(uint64(plan.Protocol))
	writeUint64(plan.Amount)
	writeBytes([]byte(recipient))
	writeBytes(payload)

	return buf.Bytes(), nil
}

// transactionDigest 返回交易字节的 blake3-256 摘要，base58 编码。
func transactionDigest(txBytes []byte) string {
	sum := blake3.Sum256(txBytes)
	return base58.Encode(sum[:])
}

// Verify 校验交易摘要格式。干跑模式下无法查询链上回执，
// 格式合法即视为成功。
func (e *SuiExecutor) Verify(ctx context.Context, digest string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	raw, err := base58.Decode(digest)
	if err != nil {
		return false, fmt.Errorf("execution: 交易摘要格式非法: %w", err)
	}
	if len(raw) != 32 {
		return false, fmt.Errorf("execution: 交易摘要长度异常 len=%d", len(raw))
	}

	e.logger.Debug("校验交易摘要", zap.String("digest", digest))
	return true, nil
}
