package configs

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLocalURL 本地开发环境的预测服务地址
	DefaultLocalURL = "http://localhost:5000/api"
	// DefaultDeployedURL 线上部署的预测服务地址
	DefaultDeployedURL = "https://agropulsee.onrender.com/api"
	// DefaultGeocodeURL 地理编码服务地址
	DefaultGeocodeURL = "https://nominatim.openstreetmap.org"
)

// LogConfig 日志配置
type LogConfig struct {
	LogFormat string `yaml:"log_format"`
	LogLevel  string `yaml:"log_level"`
	LogDir    string `yaml:"log_dir"`
	LogFile   string `yaml:"log_file"`
}

// GatewayConfig 预测网关配置
type GatewayConfig struct {
	Env         string `yaml:"env"`          // development / production
	BaseURL     string `yaml:"base_url"`     // 显式指定时优先
	LocalURL    string `yaml:"local_url"`    // 开发环境地址
	DeployedURL string `yaml:"deployed_url"` // 生产环境地址
	Timeout     string `yaml:"timeout"`      // 为空表示不设置超时
}

// GeocodeConfig 地理编码配置
type GeocodeConfig struct {
	URL       string `yaml:"url"`
	UserAgent string `yaml:"user_agent"`
	Timeout   string `yaml:"timeout"`
}

// SecurityConfig 上传图片安全配置结构
type SecurityConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`    // 最大文件大小（字节）
	MaxPixels      int64    `yaml:"max_pixels"`       // 最大像素数量
	MaxWidth       int      `yaml:"max_width"`        // 最大宽度
	MaxHeight      int      `yaml:"max_height"`       // 最大高度
	AllowedFormats []string `yaml:"allowed_formats"`  // 允许的图片格式
	EnableDeepScan bool     `yaml:"enable_deep_scan"` // 启用深度安全扫描
}

// AdvisorConfig 建议模型配置（OpenAI 兼容接口）
type AdvisorConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ModelName   string  `yaml:"model_name"`
	BaseURL     string  `yaml:"url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// StatusConfig 后端状态监控配置
type StatusConfig struct {
	Interval string `yaml:"interval"`
}

// Config 主配置结构
type Config struct {
	Server struct {
		IP   string `yaml:"ip"`
		Port int    `yaml:"port"`
		Auth struct {
			Enabled bool   `yaml:"enabled"`
			Secret  string `yaml:"secret"`
		} `yaml:"auth"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Log LogConfig `yaml:"log"`

	Web struct {
		StaticDir string `yaml:"static_dir"`
	} `yaml:"web"`

	Gateway GatewayConfig  `yaml:"gateway"`
	Geocode GeocodeConfig  `yaml:"geocode"`
	Upload  SecurityConfig `yaml:"upload"`
	Advisor AdvisorConfig  `yaml:"advisor"`
	Status  StatusConfig   `yaml:"status"`
}

// LoadConfig 从文件加载配置，文件不存在时使用默认配置
func LoadConfig() (*Config, string, error) {
	path := ".config.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = "config.yaml"
	}

	config := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, path, fmt.Errorf("解析配置文件失败: %w", err)
		}
	case os.IsNotExist(err):
		path = ""
	default:
		return nil, path, err
	}

	config.ApplyDefaults()
	config.ApplyEnv()
	return config, path, nil
}

// Parse 从 YAML 内容解析配置
func Parse(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	config.ApplyDefaults()
	return config, nil
}

// ApplyDefaults 为未设置的字段填充默认值
func (c *Config) ApplyDefaults() {
	if c.Server.IP == "" {
		c.Server.IP = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{
			"https://agropulsee.netlify.app",
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		}
	}
	if c.Log.LogLevel == "" {
		c.Log.LogLevel = "info"
	}
	if c.Log.LogFile == "" {
		c.Log.LogFile = "agropulse.log"
	}
	if c.Gateway.Env == "" {
		c.Gateway.Env = "development"
	}
	if c.Gateway.LocalURL == "" {
		c.Gateway.LocalURL = DefaultLocalURL
	}
	if c.Gateway.DeployedURL == "" {
		c.Gateway.DeployedURL = DefaultDeployedURL
	}
	if c.Geocode.URL == "" {
		c.Geocode.URL = DefaultGeocodeURL
	}
	if c.Geocode.UserAgent == "" {
		c.Geocode.UserAgent = "agropulse/1.0"
	}
	if c.Geocode.Timeout == "" {
		c.Geocode.Timeout = "10s"
	}
	if c.Upload.MaxFileSize == 0 {
		c.Upload.MaxFileSize = 5 * 1024 * 1024
	}
	if c.Upload.MaxWidth == 0 {
		c.Upload.MaxWidth = 8192
	}
	if c.Upload.MaxHeight == 0 {
		c.Upload.MaxHeight = 8192
	}
	if c.Upload.MaxPixels == 0 {
		c.Upload.MaxPixels = 40_000_000
	}
	if len(c.Upload.AllowedFormats) == 0 {
		c.Upload.AllowedFormats = []string{"jpeg", "jpg", "png", "webp", "gif"}
	}
	if c.Advisor.MaxTokens == 0 {
		c.Advisor.MaxTokens = 500
	}
	if c.Status.Interval == "" {
		c.Status.Interval = "30s"
	}
}

// ApplyEnv 使用环境变量覆盖配置
func (c *Config) ApplyEnv() {
	if v := os.Getenv("AGROPULSE_API_URL"); v != "" {
		c.Gateway.BaseURL = v
	}
	if v := os.Getenv("AGROPULSE_ENV"); v != "" {
		c.Gateway.Env = v
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" && !slices.Contains(c.Server.AllowedOrigins, v) {
		c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, v)
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Advisor.APIKey == "" {
		c.Advisor.APIKey = v
	}
	if v := os.Getenv("AGROPULSE_AUTH_SECRET"); v != "" {
		c.Server.Auth.Secret = v
	}
}

// ResolveBaseURL 按优先级确定预测服务地址：显式地址 > 环境选择
func (g GatewayConfig) ResolveBaseURL() string {
	if g.BaseURL != "" {
		return strings.TrimRight(g.BaseURL, "/")
	}
	if strings.EqualFold(g.Env, "production") {
		return strings.TrimRight(g.DeployedURL, "/")
	}
	return strings.TrimRight(g.LocalURL, "/")
}

// ParseDuration 解析时间配置，空值或非法值返回 fallback
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
