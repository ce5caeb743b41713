package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Playback PlaybackConfig `mapstructure:"playback"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// 单个用户每秒允许发送的聊天消息数
	ChatRatePerSecond int `mapstructure:"chat_rate_per_second"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type PlaybackConfig struct {
	// 主端播放心跳上报间隔（秒）
	HeartbeatSeconds int `mapstructure:"heartbeat_seconds"`
	// 跟随端允许的进度偏差（秒），超过才纠偏
	DriftTolerance float64 `mapstructure:"drift_tolerance"`
	// 房主断线时是否自动移交房主给加入最早的成员
	MasterHandoff bool `mapstructure:"master_handoff"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.metrics_address", ":9100")
	viper.SetDefault("redis.chat_rate_per_second", 5)
	viper.SetDefault("playback.heartbeat_seconds", 5)
	viper.SetDefault("playback.drift_tolerance", 2.0)
	viper.SetDefault("playback.master_handoff", false)

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
