package sui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"suiflash-router/internal/config"
)

// Client 为精简的 Sui JSON-RPC 客户端，仅覆盖本系统用到的只读方法。
type Client struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
	nextID   atomic.Int64
}

// NewClient 根据配置创建 Sui RPC 客户端。
func NewClient(cfg config.SuiConfig, logger *zap.Logger) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("sui: rpc_url 不能为空")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		endpoint: cfg.RPCURL,
		http:     &http.Client{Timeout: cfg.RequestTimeout},
		logger:   logger,
	}, nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("sui: RPC错误 code=%d message=%s", e.Code, e.Message)
}

// Call 发起一次 JSON-RPC 调用并把结果反序列化到 result。
func (c *Client) Call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sui: 序列化RPC请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sui: 构造RPC请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sui: RPC请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sui: RPC返回异常状态码 %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("sui: 读取RPC响应失败: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return fmt.Errorf("sui: 解析RPC响应失败: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("sui: 解析RPC结果失败: %w", err)
	}

	return nil
}

// ObjectResponse 为 sui_getObject 的响应结构，仅保留用到的字段。
type ObjectResponse struct {
	Data *ObjectData `json:"data"`
}

// ObjectData 描述链上对象内容。
type ObjectData struct {
	ObjectID string                 `json:"objectId"`
	Version  string                 `json:"version"`
	Content  map[string]interface{} `json:"content"`
}

// GetObject 读取链上对象及其内容。
func (c *Client) GetObject(ctx context.Context, objectID string) (*ObjectResponse, error) {
	var resp ObjectResponse
	params := []interface{}{
		objectID,
		map[string]interface{}{"showContent": true},
	}
	if err := c.Call(ctx, "sui_getObject", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
