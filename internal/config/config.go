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
	Storage  StorageConfig  `mapstructure:"storage"`
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
	OrderEvent  string `mapstructure:"order_event"`
	CreditEvent string `mapstructure:"credit_event"`
}

type StorageConfig struct {
	UploadDir string `mapstructure:"upload_dir"`
}

// BusinessConfig 业务参数
// 分红比例等政策值全部走配置，工作流调用时显式传入，不做请求级全局状态
type BusinessConfig struct {
	CodeMaxRetries     int     `mapstructure:"code_max_retries"`     // 单据编号冲突时的最大重试次数
	GracePeriodDays    int     `mapstructure:"grace_period_days"`    // 逾期宽限天数
	DistributionRate   float64 `mapstructure:"distribution_rate"`    // 投资人分红比例
	RollupYearsBack    int     `mapstructure:"rollup_years_back"`    // 年度汇总回溯年数
	SweepIntervalMin   int     `mapstructure:"sweep_interval_min"`   // 逾期扫描间隔（分钟）
	RevenueIntervalMin int     `mapstructure:"revenue_interval_min"` // 营收快照重算间隔（分钟）
	MaxRetryCount      int     `mapstructure:"max_retry_count"`      // outbox 消息最大重试次数
}

// 业务参数缺省值
const (
	DefaultDistributionRate = 0.65
	DefaultGracePeriodDays  = 7
	DefaultCodeMaxRetries   = 5
	DefaultRollupYearsBack  = 5
)

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

	applyDefaults(config)
	GlobalConfig = config
	return config
}

func applyDefaults(c *Config) {
	if c.Business.DistributionRate <= 0 {
		c.Business.DistributionRate = DefaultDistributionRate
	}
	if c.Business.GracePeriodDays <= 0 {
		c.Business.GracePeriodDays = DefaultGracePeriodDays
	}
	if c.Business.CodeMaxRetries <= 0 {
		c.Business.CodeMaxRetries = DefaultCodeMaxRetries
	}
	if c.Business.RollupYearsBack <= 0 {
		c.Business.RollupYearsBack = DefaultRollupYearsBack
	}
}

// Default 返回一份只填了业务缺省值的配置，测试用
func Default() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}
