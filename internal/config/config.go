// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件和环境变量加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	YouCom        YouComConfig        `mapstructure:"youcom"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Sanity        SanityConfig        `mapstructure:"sanity"`
	Retrieval     RetrievalConfig     `mapstructure:"retrieval"`
	Store         StoreConfig         `mapstructure:"store"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	Enrichment    EnrichmentConfig    `mapstructure:"enrichment"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Tika          TikaConfig          `mapstructure:"tika"`
	Ingest        IngestConfig        `mapstructure:"ingest"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	Mode        string   `mapstructure:"mode"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// DefaultUserID 仅在 debug 模式下用于本地测试。
	DefaultUserID string `mapstructure:"default_user_id"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// YouComConfig 存储 You.com 搜索与 Express 接口的配置。
type YouComConfig struct {
	APIKey            string `mapstructure:"api_key"`
	SearchURL         string `mapstructure:"search_url"`
	ExpressURL        string `mapstructure:"express_url"`
	SearchTimeoutSecs int    `mapstructure:"search_timeout_secs"`
}

// LLMConfig 存储大语言模型相关的配置。
// Provider 取值: express | openai | anthropic | gemini。
type LLMConfig struct {
	Provider    string              `mapstructure:"provider"`
	APIKey      string              `mapstructure:"api_key"`
	BaseURL     string              `mapstructure:"base_url"`
	Model       string              `mapstructure:"model"`
	TimeoutSecs int                 `mapstructure:"timeout_secs"`
	Generation  LLMGenerationConfig `mapstructure:"generation"`
	Vertex      VertexConfig        `mapstructure:"vertex"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// VertexConfig 存储 Vertex AI (Gemini) 的项目与区域。
type VertexConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Region    string `mapstructure:"region"`
}

// SanityConfig 存储 Sanity 文档数据库的配置。
type SanityConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	Dataset         string `mapstructure:"dataset"`
	Token           string `mapstructure:"token"`
	APIVersion      string `mapstructure:"api_version"`
	BaseURL         string `mapstructure:"base_url"`
	EmbeddingsIndex string `mapstructure:"embeddings_index"`
	TimeoutSecs     int    `mapstructure:"timeout_secs"`
}

// RetrievalConfig 配置上下文检索。Index 取值: sanity | elasticsearch。
type RetrievalConfig struct {
	Index string `mapstructure:"index"`
	TopK  int    `mapstructure:"top_k"`
}

// StoreConfig 选择答案记录的存储驱动: sanity | mysql | redis。
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
	// TimeoutSecs 是单次索引或检索请求的时间上限。
	TimeoutSecs int `mapstructure:"timeout_secs"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// EnrichmentConfig 配置概念扩展。
type EnrichmentConfig struct {
	MaxConcepts  int `mapstructure:"max_concepts"`
	ConceptLimit int `mapstructure:"concept_limit"`
}

// JWTConfig 存储 JWT 相关的配置。Secret 为空时不启用身份解析。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// IngestConfig 配置教材导入流程。
type IngestConfig struct {
	Concurrency      int     `mapstructure:"concurrency"`
	EmbeddingsPerSec float64 `mapstructure:"embeddings_per_sec"`
	WorkDir          string  `mapstructure:"work_dir"`
}

// 外部部署使用的环境变量名，与 viper 键一一对应。
var envBindings = map[string]string{
	"youcom.api_key":          "YOU_COM_API_KEY",
	"youcom.search_url":       "YOU_COM_SEARCH_URL",
	"youcom.express_url":      "YOU_COM_EXPRESS_URL",
	"sanity.project_id":       "SANITY_PROJECT_ID",
	"sanity.dataset":          "SANITY_DATASET",
	"sanity.token":            "SANITY_WRITE_TOKEN",
	"server.default_user_id":  "SANITY_DEFAULT_USER_ID",
	"llm.vertex.project_id":   "GOOGLE_CLOUD_PROJECT",
	"llm.api_key":             "LLM_API_KEY",
	"embedding.api_key":       "EMBEDDING_API_KEY",
	"database.mysql.dsn":      "MYSQL_DSN",
	"database.redis.addr":     "REDIS_ADDR",
	"elasticsearch.addresses": "ELASTICSEARCH_ADDRESSES",
	"kafka.brokers":           "KAFKA_BROKERS",
	"jwt.secret":              "JWT_SECRET",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5328")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("youcom.search_url", "https://ydc-index.io/v1/search")
	v.SetDefault("youcom.express_url", "https://api.you.com/v1/agents/runs")
	v.SetDefault("youcom.search_timeout_secs", 10)
	v.SetDefault("llm.provider", "express")
	v.SetDefault("llm.timeout_secs", 25)
	v.SetDefault("llm.vertex.region", "us-central1")
	v.SetDefault("sanity.dataset", "production")
	v.SetDefault("sanity.api_version", "v2021-06-07")
	v.SetDefault("sanity.embeddings_index", "textbook-pages")
	v.SetDefault("sanity.timeout_secs", 10)
	v.SetDefault("retrieval.index", "sanity")
	v.SetDefault("retrieval.top_k", 3)
	v.SetDefault("store.driver", "sanity")
	v.SetDefault("elasticsearch.index_name", "textbook_pages")
	v.SetDefault("elasticsearch.timeout_secs", 10)
	v.SetDefault("embedding.dimensions", 1024)
	v.SetDefault("enrichment.max_concepts", 3)
	v.SetDefault("enrichment.concept_limit", 5)
	v.SetDefault("jwt.access_token_expire_hours", 24)
	v.SetDefault("kafka.topic", "textbook-ingest")
	v.SetDefault("kafka.group_id", "neural-trace-ingest")
	v.SetDefault("minio.bucket_name", "textbooks")
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.embeddings_per_sec", 5)
	v.SetDefault("ingest.work_dir", os.TempDir())
}

// Load 从可选的 YAML 文件与环境变量构建配置。文件不存在时只使用默认值与环境变量。
func Load(configPath string) (Config, error) {
	// .env 不存在不是错误
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("NT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, "NT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("绑定环境变量 %s 失败: %w", env, err)
		}
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return cfg, nil
}

// Init 初始化配置加载，并将结果写入全局 Conf 变量。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
