package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Portal   PortalConfig   `mapstructure:"portal"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Chat     ChatConfig     `mapstructure:"chat"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port    int        `mapstructure:"port"`
	BaseURL string     `mapstructure:"base_url"`
	CORS    CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PortalConfig 教学网抓取配置
type PortalConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	LandingURLs      []string      `mapstructure:"landing_urls"`       // 按顺序尝试，命中课程列表即停止
	CourseListMarker string        `mapstructure:"course_list_marker"` // 当前学期课程 <ul> 的 class 片段
	AssignmentsLabel string        `mapstructure:"assignments_label"`
	TitleColor       string        `mapstructure:"title_color"` // 作业标题 span 的 style 特征
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	UserAgent        string        `mapstructure:"user_agent"`
	SSO              SSOConfig     `mapstructure:"sso"`
}

// SSOConfig 统一身份认证配置
type SSOConfig struct {
	LoginURL    string `mapstructure:"login_url"`
	AppID       string `mapstructure:"app_id"`
	RedirectURL string `mapstructure:"redirect_url"`
	LoginHost   string `mapstructure:"login_host"` // 会话失效时被重定向到的主机
}

// LLMConfig 大模型调用配置（OpenAI 兼容的 chat/completions 接口）
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	BatchSize   int           `mapstructure:"batch_size"`
	Timezone    string        `mapstructure:"timezone"`
}

// StorageConfig 附件存储配置
type StorageConfig struct {
	Root          string `mapstructure:"root"`
	MaxUploadSize int64  `mapstructure:"max_upload_size"` // 字节
}

// SyncConfig 教学网同步配置
type SyncConfig struct {
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

// ChatConfig 智能助手配置，模型与接口地址沿用 llm 配置
type ChatConfig struct {
	SystemPrompt    string        `mapstructure:"system_prompt"`
	Model           string        `mapstructure:"model"` // 为空时使用 llm.model
	Temperature     float64       `mapstructure:"temperature"`
	MaxHistory      int           `mapstructure:"max_history"` // 保留的对话条数，不含系统提示
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	MaxDocumentSize int64         `mapstructure:"max_document_size"` // 字节
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("STUDYDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "studydesk")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Shanghai")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "30m")
	v.SetDefault("auth.refresh_token_ttl", "168h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("portal.base_url", "https://course.pku.edu.cn/")
	v.SetDefault("portal.landing_urls", []string{
		"https://course.pku.edu.cn/",
		"https://course.pku.edu.cn/webapps/portal/execute/tabs/tabAction?tab_tab_group_id=_1_1",
	})
	v.SetDefault("portal.course_list_marker", "coursefakeclass")
	v.SetDefault("portal.assignments_label", "课程作业")
	v.SetDefault("portal.title_color", "color:#000000")
	v.SetDefault("portal.request_timeout", "15s")
	v.SetDefault("portal.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("portal.sso.login_url", "https://iaaa.pku.edu.cn/iaaa/oauthlogin.do")
	v.SetDefault("portal.sso.app_id", "blackboard")
	v.SetDefault("portal.sso.redirect_url", "https://course.pku.edu.cn/webapps/bb-sso-BBLEARN/execute/authValidate/campusLogin")
	v.SetDefault("portal.sso.login_host", "iaaa.pku.edu.cn")

	v.SetDefault("llm.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "qwen-plus")
	v.SetDefault("llm.temperature", 0.5)
	v.SetDefault("llm.max_tokens", 4000)
	v.SetDefault("llm.timeout", "600s")
	v.SetDefault("llm.batch_size", 2)
	v.SetDefault("llm.timezone", "Asia/Shanghai")

	v.SetDefault("storage.root", "./data/attachments")
	v.SetDefault("storage.max_upload_size", 20<<20)

	v.SetDefault("sync.lock_ttl", "15m")

	v.SetDefault("chat.system_prompt", "你是一个由北京大学团队开发的智能助手，名叫 PKU Intelligence。")
	v.SetDefault("chat.model", "")
	v.SetDefault("chat.temperature", 0.7)
	v.SetDefault("chat.max_history", 40)
	v.SetDefault("chat.session_ttl", "24h")
	v.SetDefault("chat.max_document_size", 512<<10)
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.LLM.BatchSize < 1 {
		return fmt.Errorf("配置校验失败: llm.batch_size 必须大于 0")
	}
	if len(c.Portal.LandingURLs) == 0 {
		return fmt.Errorf("配置校验失败: portal.landing_urls 不能为空")
	}
	return nil
}

// LoadPipeline 仅加载抓取与大模型相关配置（供 CLI 使用，不要求 JWT 等服务端配置）
func LoadPipeline(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("STUDYDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if cfg.LLM.BatchSize < 1 {
		return nil, fmt.Errorf("配置校验失败: llm.batch_size 必须大于 0")
	}
	return &cfg, nil
}
