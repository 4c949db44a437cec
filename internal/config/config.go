// Package config 负责加载和管理各个批处理阶段的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Log           LogConfig           `mapstructure:"log"`
	Database      DatabaseConfig      `mapstructure:"database"`
	DocStore      DocStoreConfig      `mapstructure:"docstore"`
	BioC          BioCConfig          `mapstructure:"bioc"`
	Taggers       []TaggerConfig      `mapstructure:"taggers"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// DatabaseConfig 存储关系库和 Redis 的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储关系库的配置。Driver 为 mysql 或 sqlite。
type MySQLConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时不启用断点续跑。
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// DocStoreConfig 存储原始文档库的配置。
// Backend 为 gorm（与关系库共用驱动）或 badger（嵌入式）。
type DocStoreConfig struct {
	Backend string `mapstructure:"backend"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
	Path    string `mapstructure:"path"`
}

// BioCConfig 存储外部文献 API 的配置。
type BioCConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Encoding  string        `mapstructure:"encoding"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// TaggerConfig 描述一个 NER 标注器。
// Type 为 http（远端模型服务）或 dictionary（词表匹配）。
type TaggerConfig struct {
	Name     string            `mapstructure:"name"`
	Type     string            `mapstructure:"type"`
	Endpoint string            `mapstructure:"endpoint"`
	Timeout  time.Duration     `mapstructure:"timeout"`
	Terms    map[string]string `mapstructure:"terms"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses   string        `mapstructure:"addresses"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	APIKey      string        `mapstructure:"api_key"`
	PaperIndex  string        `mapstructure:"paper_index"`
	AuthorIndex string        `mapstructure:"author_index"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// KafkaConfig 存储阶段事件主题的配置。Brokers 为空时不发送事件。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// MinIOConfig 存储失败报告上传的配置。Endpoint 为空时只写本地文件。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// PipelineConfig 存储三个阶段共享的批处理参数。
type PipelineConfig struct {
	RefreshEvery      int           `mapstructure:"refresh_every"`
	PublishBatchSize  int           `mapstructure:"publish_batch_size"`
	ScanPageSize      int           `mapstructure:"scan_page_size"`
	TopK              int           `mapstructure:"top_k"`
	MaxFieldLength    int           `mapstructure:"max_field_length"`
	FailureReportPath string        `mapstructure:"failure_report_path"`
	IDColumn          string        `mapstructure:"id_column"`
	WriteAttempts     int           `mapstructure:"write_attempts"`
	WriteBackoff      time.Duration `mapstructure:"write_backoff"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.mysql.driver", "mysql")
	v.SetDefault("database.redis.key_prefix", "starkeys")

	v.SetDefault("docstore.backend", "gorm")

	v.SetDefault("bioc.base_url", "https://www.ncbi.nlm.nih.gov/research/bionlp/RESTful/pmcoa.cgi/BioC_json")
	v.SetDefault("bioc.encoding", "unicode")
	v.SetDefault("bioc.user_agent", "starkeys-go/1.0")

	v.SetDefault("elasticsearch.paper_index", "papers")
	v.SetDefault("elasticsearch.author_index", "authors")
	v.SetDefault("elasticsearch.timeout", 10*time.Hour)

	v.SetDefault("kafka.topic", "starkeys-stage-events")

	v.SetDefault("pipeline.refresh_every", 200)
	v.SetDefault("pipeline.publish_batch_size", 50)
	v.SetDefault("pipeline.scan_page_size", 100)
	v.SetDefault("pipeline.top_k", 10)
	v.SetDefault("pipeline.max_field_length", 100)
	v.SetDefault("pipeline.failure_report_path", "./err_ids.csv")
	v.SetDefault("pipeline.id_column", "Link")
	v.SetDefault("pipeline.write_attempts", 1)
}

// Load 从指定路径读取 YAML 配置，环境变量 STARKEYS_* 可以覆盖文件中的值。
// configPath 为空时只使用默认值和环境变量。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("STARKEYS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if len(conf.Taggers) == 0 {
		conf.Taggers = defaultTaggers()
	}
	return &conf, nil
}

// defaultTaggers 对应两个 scispaCy 模型服务：bc5cdr 与 bionlp13cg。
func defaultTaggers() []TaggerConfig {
	return []TaggerConfig{
		{Name: "bc5cdr", Type: "http", Endpoint: "http://localhost:8001/ner"},
		{Name: "bionlp13cg", Type: "http", Endpoint: "http://localhost:8002/ner"},
	}
}
