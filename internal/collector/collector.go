package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"suiflash-router/internal/datasource"
	"suiflash-router/internal/protocol"
)

// ErrNoData 表示刷新没有产出任何协议数据，且缓存从未被填充。
var ErrNoData = errors.New("collector: 无任何协议数据")

// Options 控制采集器的行为。
type Options struct {
	// Protocols 为需要采集的协议，空则采集全部已知协议。
	Protocols []protocol.Protocol
	// Asset 为采集目标资产的币种类型。
	Asset string
	// FetchTimeout 为单个协议抓取的上限耗时。
	FetchTimeout time.Duration
	// OnRefresh 在每轮刷新结束后回调，携带当前快照副本。可为 nil。
	OnRefresh func(snapshot protocol.Snapshot, err error)
}

// Collector 维护协议数据缓存：后台定期刷新，请求路径只读快照。
// 快照整体替换，读取方要么看到上一份完整快照，要么看到新的一份，
// 不会看到新旧混合；缓存一旦填充过便不会退化为空。
type Collector struct {
	source  datasource.DataSource
	opts    Options
	logger  *zap.Logger
	nowFunc func() time.Time

	mu       sync.RWMutex
	snapshot protocol.Snapshot
}

// New 创建采集器。
func New(source datasource.DataSource, opts Options, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(opts.Protocols) == 0 {
		opts.Protocols = protocol.All()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}

	return &Collector{
		source:   source,
		opts:     opts,
		logger:   logger,
		nowFunc:  time.Now,
		snapshot: make(protocol.Snapshot),
	}
}

// Get 返回指定协议的当前缓存条目。
func (c *Collector) Get(p protocol.Protocol) (protocol.Data, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.snapshot[p]
	return data, ok
}

// GetAll 返回当前快照的副本。
func (c *Collector) GetAll() protocol.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.Clone()
}

// Refresh 抓取全部配置协议并原子替换快照。
// 各协议抓取相互独立并发进行；单个协议失败时沿用上一份快照中的
// 旧数据；候选快照为空且缓存也为空时保持现状并返回 ErrNoData。
func (c *Collector) Refresh(ctx context.Context) error {
	previous := c.GetAll()

	type fetchResult struct {
		data  protocol.Data
		stale bool
		ok    bool
	}

	results := make([]fetchResult, len(c.opts.Protocols))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, p := range c.opts.Protocols {
		i, p := i, p
		group.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(groupCtx, c.opts.FetchTimeout)
			defer cancel()

			quote, err := c.source.Fetch(fetchCtx, p, c.opts.Asset)
			if err != nil {
				if old, exists := previous[p]; exists {
					c.logger.Warn("协议数据抓取失败，沿用旧数据",
						zap.Stringer("protocol", p),
						zap.Error(err),
					)
					results[i] = fetchResult{data: old, stale: true, ok: true}
					return nil
				}
				c.logger.Error("协议数据抓取失败且无旧数据可用",
					zap.Stringer("protocol", p),
					zap.Error(err),
				)
				return nil
			}

			results[i] = fetchResult{
				data: protocol.Data{
					Protocol:           p,
					FeeBps:             quote.FeeBps,
					AvailableLiquidity: quote.Liquidity,
					LastUpdated:        c.nowFunc().Unix(),
				},
				ok: true,
			}
			return nil
		})
	}

	// 抓取闭包不返回错误，等待只是为了确认全部尝试结束。
	_ = group.Wait()

	candidate := make(protocol.Snapshot, len(results))
	fresh, stale := 0, 0
	for _, r := range results {
		if !r.ok {
			continue
		}
		candidate[r.data.Protocol] = r.data
		if r.stale {
			stale++
		} else {
			fresh++
		}
	}

	if len(candidate) == 0 {
		c.logger.Warn("本轮刷新未产出任何协议数据，保留现有快照")
		if c.opts.OnRefresh != nil {
			c.opts.OnRefresh(previous, ErrNoData)
		}
		return ErrNoData
	}

	c.mu.Lock()
	c.snapshot = candidate
	c.mu.Unlock()

	if c.opts.OnRefresh != nil {
		c.opts.OnRefresh(candidate.Clone(), nil)
	}

	c.logger.Info("协议数据刷新完成",
		zap.Int("fresh", fresh),
		zap.Int("stale", stale),
		zap.Int("total", len(candidate)),
	)
	return nil
}

// Run 以固定周期驱动刷新直至 ctx 取消。刷新失败只记录日志，不会终止循环。
func (c *Collector) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	c.logger.Info("后台协议数据采集已启动", zap.Duration("interval", interval))

	if err := c.Refresh(ctx); err != nil {
		c.logger.Error("首次刷新失败", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("后台协议数据采集已停止")
			return ctx.Err()
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.logger.Error("后台刷新失败", zap.Error(err))
			}
		}
	}
}
