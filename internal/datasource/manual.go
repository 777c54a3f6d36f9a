package datasource

import (
	"context"
	"fmt"
	"sync"

	"suiflash-router/internal/protocol"
)

// ManualSource 为手动设置的协议数据源，用于测试与模拟运行。
type ManualSource struct {
	mu     sync.RWMutex
	quotes map[protocol.Protocol]Quote
}

var _ DataSource = (*ManualSource)(nil)

// NewManualSource 创建空的手动数据源。
func NewManualSource() *ManualSource {
	return &ManualSource{
		quotes: make(map[protocol.Protocol]Quote),
	}
}

// Set 设置指定协议的报价。
func (s *ManualSource) Set(p protocol.Protocol, quote Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[p] = quote
}

// Clear 移除指定协议的报价，后续 Fetch 将失败。
func (s *ManualSource) Clear(p protocol.Protocol) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quotes, p)
}

// Fetch 返回手动设置的报价，未设置时视为抓取失败。
func (s *ManualSource) Fetch(ctx context.Context, p protocol.Protocol, asset string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}

	s.mu.RLock()
	quote, ok := s.quotes[p]
	s.mu.RUnlock()

	if !ok {
		return Quote{}, &FetchError{
			Protocol: p,
			Attempts: []Attempt{{Stage: "manual", Err: fmt.Errorf("协议 %s 未设置报价", p)}},
		}
	}
	return quote, nil
}
