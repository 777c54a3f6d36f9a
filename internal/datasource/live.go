package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"suiflash-router/internal/config"
	"suiflash-router/internal/protocol"
	"suiflash-router/internal/sui"
)

// 回退链阶段名称。
const (
	stageAPI     = "api"
	stageOnChain = "onchain"
)

// objectReader 抽象链上对象读取，便于测试替换真实 RPC 客户端。
type objectReader interface {
	GetObject(ctx context.Context, objectID string) (*sui.ObjectResponse, error)
}

var _ objectReader = (*sui.Client)(nil)

// LiveSource 为真实数据源：先查询协议官方 API，失败后回退到链上读取。
// 回退链为固定顺序的单次尝试序列，单个刷新周期内不做重试。
type LiveSource struct {
	http    *http.Client
	chain   objectReader
	configs map[protocol.Protocol]config.ProtocolSourceConfig
	logger  *zap.Logger
}

var _ DataSource = (*LiveSource)(nil)

// NewLiveSource 创建真实数据源。chain 允许为 nil，此时链上阶段
// 直接使用各协议的文档参考值。
func NewLiveSource(cfg config.ProtocolsConfig, chain objectReader, logger *zap.Logger) *LiveSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveSource{
		http:  &http.Client{Timeout: 10 * time.Second},
		chain: chain,
		configs: map[protocol.Protocol]config.ProtocolSourceConfig{
			protocol.Navi:    cfg.Navi,
			protocol.Bucket:  cfg.Bucket,
			protocol.Scallop: cfg.Scallop,
		},
		logger: logger,
	}
}

// Fetch 依次尝试 API 与链上两个阶段，全部失败时返回 FetchError。
func (s *LiveSource) Fetch(ctx context.Context, p protocol.Protocol, asset string) (Quote, error) {
	cfg, ok := s.configs[p]
	if !ok {
		return Quote{}, &FetchError{
			Protocol: p,
			Attempts: []Attempt{{Stage: "config", Err: fmt.Errorf("协议 %s 未配置数据来源", p)}},
		}
	}

	attempts := make([]Attempt, 0, 2)

	quote, err := s.fetchAPI(ctx, p, cfg, asset)
	if err == nil {
		return quote, nil
	}
	attempts = append(attempts, Attempt{Stage: stageAPI, Err: err})
	s.logger.Warn("协议API抓取失败，回退到链上读取",
		zap.Stringer("protocol", p),
		zap.Error(err),
	)

	quote, err = s.fetchOnChain(ctx, p, cfg)
	if err == nil {
		return quote, nil
	}
	attempts = append(attempts, Attempt{Stage: stageOnChain, Err: err})

	return Quote{}, &FetchError{Protocol: p, Attempts: attempts}
}

// fetchAPI 请求协议官方 API 并按各自的响应结构解析。
func (s *LiveSource) fetchAPI(ctx context.Context, p protocol.Protocol, cfg config.ProtocolSourceConfig, asset string) (Quote, error) {
	if cfg.APIURL == "" {
		return Quote{}, errors.New("未配置 api_url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.APIURL, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("构造API请求失败: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("API请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Quote{}, fmt.Errorf("API返回异常状态码 %d", resp.StatusCode)
	}

	switch p {
	case protocol.Navi:
		return parseNaviPayload(resp.Body, asset)
	case protocol.Bucket:
		return parseBucketPayload(resp.Body)
	case protocol.Scallop:
		return parseScallopPayload(resp.Body)
	default:
		return Quote{}, fmt.Errorf("协议 %s 无API解析规则", p)
	}
}

// naviPool 对应 Navi lending pools 接口中的单个池。
type naviPool struct {
	CoinType           string  `json:"coinType"`
	FlashLoanFeeBps    *uint64 `json:"flashLoanFeeBps"`
	AvailableLiquidity *uint64 `json:"availableLiquidity"`
}

func parseNaviPayload(body io.Reader, asset string) (Quote, error) {
	var payload struct {
		Pools []naviPool `json:"pools"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("解析Navi响应失败: %w", err)
	}

	for _, pool := range payload.Pools {
		if pool.CoinType != asset {
			continue
		}
		if pool.FlashLoanFeeBps == nil || pool.AvailableLiquidity == nil {
			return Quote{}, errors.New("Navi池数据缺少费率或流动性字段")
		}
		return Quote{FeeBps: *pool.FlashLoanFeeBps, Liquidity: *pool.AvailableLiquidity}, nil
	}
	return Quote{}, fmt.Errorf("Navi响应中未找到资产 %s 的池", asset)
}

func parseBucketPayload(body io.Reader) (Quote, error) {
	var payload struct {
		FlashLoanFee       *uint64 `json:"flashLoanFee"`
		AvailableLiquidity *uint64 `json:"availableLiquidity"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("解析Bucket响应失败: %w", err)
	}
	if payload.FlashLoanFee == nil || payload.AvailableLiquidity == nil {
		return Quote{}, errors.New("Bucket响应缺少费率或流动性字段")
	}
	return Quote{FeeBps: *payload.FlashLoanFee, Liquidity: *payload.AvailableLiquidity}, nil
}

func parseScallopPayload(body io.Reader) (Quote, error) {
	var payload struct {
		FlashLoanFee   *uint64 `json:"flashLoanFee"`
		TotalLiquidity *uint64 `json:"totalLiquidity"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("解析Scallop响应失败: %w", err)
	}
	if payload.FlashLoanFee == nil || payload.TotalLiquidity == nil {
		return Quote{}, errors.New("Scallop响应缺少费率或流动性字段")
	}
	return Quote{FeeBps: *payload.FlashLoanFee, Liquidity: *payload.TotalLiquidity}, nil
}

// fetchOnChain 读取链上池对象。对象内容缺少可解析字段时退回
// 协议文档参考值；RPC 本身不可达才视为阶段失败。
func (s *LiveSource) fetchOnChain(ctx context.Context, p protocol.Protocol, cfg config.ProtocolSourceConfig) (Quote, error) {
	reference := Quote{FeeBps: cfg.ReferenceFeeBps, Liquidity: cfg.ReferenceLiquidity}

	if cfg.PoolObjectID == "" || s.chain == nil {
		if reference.Liquidity == 0 {
			return Quote{}, errors.New("未配置池对象且无参考流动性")
		}
		return reference, nil
	}

	resp, err := s.chain.GetObject(ctx, cfg.PoolObjectID)
	if err != nil {
		return Quote{}, fmt.Errorf("读取链上池对象失败: %w", err)
	}
	if resp.Data == nil {
		s.logger.Warn("链上池对象不存在，使用参考值", zap.Stringer("protocol", p))
		return reference, nil
	}

	quote, ok := parsePoolContent(resp.Data.Content)
	if !ok {
		s.logger.Debug("链上池对象内容无法解析，使用参考值", zap.Stringer("protocol", p))
		return reference, nil
	}
	return quote, nil
}

// parsePoolContent 从对象内容中提取费率与流动性字段。
func parsePoolContent(content map[string]interface{}) (Quote, bool) {
	fields, ok := content["fields"].(map[string]interface{})
	if !ok {
		return Quote{}, false
	}

	fee, okFee := parseUint(fields["flash_loan_fee_bps"])
	liquidity, okLiq := parseUint(fields["available_liquidity"])
	if !okFee || !okLiq {
		return Quote{}, false
	}
	return Quote{FeeBps: fee, Liquidity: liquidity}, true
}

func parseUint(v interface{}) (uint64, bool) {
	switch value := v.(type) {
	case string:
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	case float64:
		if value < 0 {
			return 0, false
		}
		return uint64(value), true
	default:
		return 0, false
	}
}
