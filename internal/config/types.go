package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// 支持的路由策略名称。未知策略在选路时回退为 StrategyCheapest。
const (
	StrategyCheapest         = "cheapest"
	StrategyHighestLiquidity = "highest_liquidity"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Sui       SuiConfig       `mapstructure:"sui"`
	Protocols ProtocolsConfig `mapstructure:"protocols"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Collector CollectorConfig `mapstructure:"collector"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// ServerConfig 控制对外 HTTP 服务。
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SuiConfig 描述链上访问与合约部署信息。
type SuiConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PackageID      string        `mapstructure:"package_id"`
	ConfigObjectID string        `mapstructure:"config_object_id"`
	SenderAddress  string        `mapstructure:"sender_address"`
}

// ProtocolSourceConfig 描述单个借贷协议的数据来源。
// ReferenceFeeBps / ReferenceLiquidity 为链上回退阶段使用的
// 协议文档参考值，不参与正常的 API 解析路径。
type ProtocolSourceConfig struct {
	APIURL             string `mapstructure:"api_url"`
	PackageID          string `mapstructure:"package_id"`
	PoolObjectID       string `mapstructure:"pool_object_id"`
	ReferenceFeeBps    uint64 `mapstructure:"reference_fee_bps"`
	ReferenceLiquidity uint64 `mapstructure:"reference_liquidity"`
}

// ProtocolsConfig 按协议列出数据来源配置。
type ProtocolsConfig struct {
	Navi    ProtocolSourceConfig `mapstructure:"navi"`
	Bucket  ProtocolSourceConfig `mapstructure:"bucket"`
	Scallop ProtocolSourceConfig `mapstructure:"scallop"`
}

// RoutingConfig 控制选路策略与服务费。
type RoutingConfig struct {
	Strategy      string `mapstructure:"strategy"`
	ServiceFeeBps uint64 `mapstructure:"service_fee_bps"`
}

// CollectorConfig 控制协议数据采集节奏。
type CollectorConfig struct {
	Asset           string        `mapstructure:"asset"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		err = multierr.Append(err, errors.New("server.port 必须位于[1,65535]"))
	}
	if c.Sui.RPCURL == "" {
		err = multierr.Append(err, errors.New("sui.rpc_url 不能为空"))
	}
	if c.Sui.RequestTimeout <= 0 {
		err = multierr.Append(err, errors.New("sui.request_timeout 必须大于0"))
	}
	if c.Routing.Strategy == "" {
		err = multierr.Append(err, errors.New("routing.strategy 不能为空"))
	}
	if c.Routing.ServiceFeeBps > 10_000 {
		err = multierr.Append(err, errors.New("routing.service_fee_bps 不应超过10000"))
	}
	if c.Collector.Asset == "" {
		err = multierr.Append(err, errors.New("collector.asset 不能为空"))
	}
	if c.Collector.RefreshInterval <= 0 {
		err = multierr.Append(err, errors.New("collector.refresh_interval 必须大于0"))
	}
	if c.Collector.FetchTimeout <= 0 {
		err = multierr.Append(err, errors.New("collector.fetch_timeout 必须大于0"))
	}
	if c.Collector.FetchTimeout > c.Collector.RefreshInterval {
		err = multierr.Append(err, errors.New("collector.fetch_timeout 不应大于 refresh_interval"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
