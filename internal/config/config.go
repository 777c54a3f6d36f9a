package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "suiflash"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.port", 3000)

	v.SetDefault("sui.rpc_url", "https://fullnode.testnet.sui.io:443")
	v.SetDefault("sui.request_timeout", "10s")
	v.SetDefault("sui.package_id", "0x1")
	v.SetDefault("sui.config_object_id", "0x2")
	v.SetDefault("sui.sender_address", "")

	v.SetDefault("protocols.navi.api_url", "https://app.naviprotocol.io/api/lending/pools")
	v.SetDefault("protocols.navi.package_id", "0x2")
	v.SetDefault("protocols.navi.reference_fee_bps", 8)
	v.SetDefault("protocols.navi.reference_liquidity", 10_000_000_000)

	v.SetDefault("protocols.bucket.api_url", "https://bucket-protocol.io/api/markets")
	v.SetDefault("protocols.bucket.package_id", "0x3")
	v.SetDefault("protocols.bucket.reference_fee_bps", 5)
	v.SetDefault("protocols.bucket.reference_liquidity", 5_000_000_000)

	v.SetDefault("protocols.scallop.api_url", "https://api.scallop.io/lending/markets")
	v.SetDefault("protocols.scallop.package_id", "0x4")
	v.SetDefault("protocols.scallop.reference_fee_bps", 9)
	v.SetDefault("protocols.scallop.reference_liquidity", 8_000_000_000)

	v.SetDefault("routing.strategy", StrategyCheapest)
	v.SetDefault("routing.service_fee_bps", 40)

	v.SetDefault("collector.asset", "0x2::sui::SUI")
	v.SetDefault("collector.refresh_interval", "10s")
	v.SetDefault("collector.fetch_timeout", "10s")

	v.SetDefault("database.path", "data/suiflash.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
