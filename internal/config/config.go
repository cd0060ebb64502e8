package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	OrderReviewed string `mapstructure:"order_reviewed"` // 审核结果事件
	CoinCredited  string `mapstructure:"coin_credited"`  // 硬币到账事件
}

type BusinessConfig struct {
	CheckinBaseReward  int64 `mapstructure:"checkin_base_reward"`   // 签到基础奖励
	CheckinStreakCap   int   `mapstructure:"checkin_streak_cap"`    // 连签奖励封顶天数
	StatsCacheSeconds  int   `mapstructure:"stats_cache_seconds"`   // 统计结果缓存时长
	MaxRetryCount      int   `mapstructure:"max_retry_count"`       // outbox 消息最大重试次数
	LedgerAuditMinutes int   `mapstructure:"ledger_audit_minutes"`  // 对账巡检间隔
	LedgerAuditBatch   int   `mapstructure:"ledger_audit_batch"`    // 每轮巡检账户数
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
