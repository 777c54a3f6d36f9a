package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"suiflash-router/internal/collector"
	"suiflash-router/internal/config"
	"suiflash-router/internal/datasource"
	"suiflash-router/internal/execution"
	"suiflash-router/internal/monitor"
	"suiflash-router/internal/protocol"
	"suiflash-router/internal/router"
	"suiflash-router/internal/store"
	"suiflash-router/internal/sui"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 启动后台数据采集与对外 API 服务，阻塞直至退出信号。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("路由服务已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("strategy", a.cfg.Routing.Strategy),
		zap.Uint64("service_fee_bps", a.cfg.Routing.ServiceFeeBps),
	)

	monitorSvc, err := monitor.NewService(a.store, a.logger)
	if err != nil {
		return fmt.Errorf("初始化监控服务失败: %w", err)
	}

	source, err := a.newDataSource()
	if err != nil {
		return err
	}

	coll := collector.New(source, collector.Options{
		Asset:        a.cfg.Collector.Asset,
		FetchTimeout: a.cfg.Collector.FetchTimeout,
		OnRefresh: func(snapshot protocol.Snapshot, refreshErr error) {
			monitorSvc.RecordRefresh(ctx, snapshot, refreshErr != nil)
		},
	}, a.logger)

	engine := router.New(coll, a.cfg.Routing, a.logger)
	executor := execution.NewSuiExecutor(a.cfg.Sui, a.logger)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return coll.Run(groupCtx, a.cfg.Collector.RefreshInterval)
	})

	group.Go(func() error {
		return runAPIServer(groupCtx, apiDeps{
			engine:   engine,
			coll:     coll,
			executor: executor,
			monitor:  monitorSvc,
		}, a.cfg.Server.Port, a.logger)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("系统异常退出: %w", err)
	}

	a.logger.Info("系统收到退出信号，正在停止")
	return nil
}

// newDataSource 按运行环境选择数据源：simulation 环境使用
// 手动源并以协议文档参考值预填，其余环境走真实源。
func (a *App) newDataSource() (datasource.DataSource, error) {
	if a.cfg.App.Environment == "simulation" {
		manual := datasource.NewManualSource()
		seed := map[protocol.Protocol]config.ProtocolSourceConfig{
			protocol.Navi:    a.cfg.Protocols.Navi,
			protocol.Bucket:  a.cfg.Protocols.Bucket,
			protocol.Scallop: a.cfg.Protocols.Scallop,
		}
		for p, src := range seed {
			manual.Set(p, datasource.Quote{
				FeeBps:    src.ReferenceFeeBps,
				Liquidity: src.ReferenceLiquidity,
			})
		}
		a.logger.Info("使用手动数据源（模拟环境）")
		return manual, nil
	}

	chain, err := sui.NewClient(a.cfg.Sui, a.logger)
	if err != nil {
		return nil, fmt.Errorf("初始化Sui客户端失败: %w", err)
	}
	return datasource.NewLiveSource(a.cfg.Protocols, chain, a.logger), nil
}
