package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

// Config 保存应用程序配置。
type Config struct {
	App     AppConfig     `json:"app"`
	MySQL   MySQLConfig   `json:"mysql"`
	Redis   RedisConfig   `json:"redis"`
	EBay    EBayConfig    `json:"ebay"`
	Storage StorageConfig `json:"storage"`
	Email   EmailConfig   `json:"email"`
}

// AppConfig 应用程序基础配置。
type AppConfig struct {
	Env              string        `json:"env"`                // 运行环境: local / prod
	LogLevel         string        `json:"log_level"`          // 日志级别: debug / info / warn / error
	HTTPAddr         string        `json:"http_addr"`          // API 服务监听地址
	WorkerPoolSize   int           `json:"worker_pool_size"`   // pipeline worker 数量
	PoolCapacity     int           `json:"pool_capacity"`      // pipeline 队列容量
	ResultPopTimeout time.Duration `json:"result_pop_timeout"` // 结果队列阻塞弹出超时（如 "5s"）
	TaskTimeout      time.Duration `json:"task_timeout"`       // 单个拉取任务的处理超时
	JanitorInterval  time.Duration `json:"janitor_interval"`   // 卡死任务救援周期
	DedupWindow      int           `json:"dedup_window"`       // 查询去重窗口（秒）
	NotifyEmail      string        `json:"notify_email"`       // 分析完成通知收件人，为空则不发
}

// MySQLConfig MySQL 数据库配置。
type MySQLConfig struct {
	DSN string `json:"dsn"` // 数据库连接字符串
}

// RedisConfig Redis 配置。
type RedisConfig struct {
	Addr     string `json:"addr"`     // Redis 地址 (host:port)
	Password string `json:"password"` // Redis 密码
}

// EBayConfig eBay Finding API 配置。
type EBayConfig struct {
	AppID          string        `json:"app_id"`          // SECURITY-APPNAME
	Endpoint       string        `json:"endpoint"`        // 为空使用官方生产地址
	RequestTimeout time.Duration `json:"request_timeout"` // 单次 HTTP 请求超时
	MaxResults     int           `json:"max_results"`     // 每次检索条数上限
	Concurrency    int           `json:"concurrency"`     // fetcher 并发拉取数
	PopTimeout     time.Duration `json:"pop_timeout"`     // 任务队列阻塞弹出超时
}

// StorageConfig 上传图片的本地存储配置。
type StorageConfig struct {
	Dir           string        `json:"dir"`            // 存储根目录
	BaseURL       string        `json:"base_url"`       // 对外访问前缀
	RetentionDays int           `json:"retention_days"` // 文件保留天数，0 表示不清理
	SweepInterval time.Duration `json:"sweep_interval"` // 过期清理周期
}

// EmailConfig 邮件通知配置。
type EmailConfig struct {
	SMTPHost  string `json:"smtp_host"`
	SMTPPort  int    `json:"smtp_port"`
	SMTPUser  string `json:"smtp_user"`
	SMTPPass  string `json:"smtp_pass"`
	FromEmail string `json:"from_email"`
}

// Load 从 JSON 文件加载配置。
//
// 配置文件不存在时使用默认值，环境变量始终优先覆盖。
//
// 参数:
//
//	configPath: 配置文件路径（为空则使用默认路径 "configs/config.json"）
//
// 返回值:
//
//	*Config: 加载完成的配置对象
//	error: 加载失败返回错误
func Load(configPath ...string) (*Config, error) {
	path := "configs/config.json"
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := getDefaultConfig()
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadOrDefault 加载配置，失败时返回默认配置（不报错）。
func LoadOrDefault(configPath ...string) *Config {
	cfg, err := Load(configPath...)
	if err != nil {
		fallback := getDefaultConfig()
		applyEnvOverrides(fallback)
		return fallback
	}
	return cfg
}

// Save 保存配置到 JSON 文件。
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// getDefaultConfig 返回默认配置。
func getDefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Env:              "local",
			LogLevel:         "info",
			HTTPAddr:         ":8081",
			WorkerPoolSize:   10,
			PoolCapacity:     200,
			ResultPopTimeout: 5 * time.Second,
			TaskTimeout:      2 * time.Minute,
			JanitorInterval:  time.Minute,
			DedupWindow:      300,
			NotifyEmail:      "",
		},
		MySQL: MySQLConfig{
			DSN: "root:password@tcp(localhost:3306)/fliplister?parseTime=true&loc=Local",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
		},
		EBay: EBayConfig{
			AppID:          "",
			Endpoint:       "",
			RequestTimeout: 15 * time.Second,
			MaxResults:     50,
			Concurrency:    5,
			PopTimeout:     5 * time.Second,
		},
		Storage: StorageConfig{
			Dir:           "uploads",
			BaseURL:       "/uploads",
			RetentionDays: 30,
			SweepInterval: time.Hour,
		},
		Email: EmailConfig{
			SMTPHost:  "smtp.gmail.com",
			SMTPPort:  587,
			SMTPUser:  "",
			SMTPPass:  "",
			FromEmail: "",
		},
	}
}

// applyDefaults 对未设置的字段应用默认值。
func applyDefaults(cfg *Config) {
	defaults := getDefaultConfig()

	if cfg.App.Env == "" {
		cfg.App.Env = defaults.App.Env
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = defaults.App.LogLevel
	}
	if cfg.App.HTTPAddr == "" {
		cfg.App.HTTPAddr = defaults.App.HTTPAddr
	}
	if cfg.App.WorkerPoolSize == 0 {
		cfg.App.WorkerPoolSize = defaults.App.WorkerPoolSize
	}
	if cfg.App.PoolCapacity == 0 {
		cfg.App.PoolCapacity = defaults.App.PoolCapacity
	}
	if cfg.App.ResultPopTimeout == 0 {
		cfg.App.ResultPopTimeout = defaults.App.ResultPopTimeout
	}
	if cfg.App.TaskTimeout == 0 {
		cfg.App.TaskTimeout = defaults.App.TaskTimeout
	}
	if cfg.App.JanitorInterval == 0 {
		cfg.App.JanitorInterval = defaults.App.JanitorInterval
	}
	if cfg.App.DedupWindow == 0 {
		cfg.App.DedupWindow = defaults.App.DedupWindow
	}
	if cfg.MySQL.DSN == "" {
		cfg.MySQL.DSN = defaults.MySQL.DSN
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = defaults.Redis.Addr
	}
	if cfg.EBay.RequestTimeout == 0 {
		cfg.EBay.RequestTimeout = defaults.EBay.RequestTimeout
	}
	if cfg.EBay.MaxResults == 0 {
		cfg.EBay.MaxResults = defaults.EBay.MaxResults
	}
	if cfg.EBay.Concurrency == 0 {
		cfg.EBay.Concurrency = defaults.EBay.Concurrency
	}
	if cfg.EBay.PopTimeout == 0 {
		cfg.EBay.PopTimeout = defaults.EBay.PopTimeout
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = defaults.Storage.Dir
	}
	if cfg.Storage.BaseURL == "" {
		cfg.Storage.BaseURL = defaults.Storage.BaseURL
	}
	if cfg.Storage.SweepInterval == 0 {
		cfg.Storage.SweepInterval = defaults.Storage.SweepInterval
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = defaults.Email.SMTPPort
	}
}

func applyEnvOverrides(cfg *Config) {
	viper.AutomaticEnv()

	_ = viper.BindEnv("db_host", "DB_HOST")
	_ = viper.BindEnv("db_password", "DB_PASSWORD")
	_ = viper.BindEnv("redis_addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = viper.BindEnv("smtp_pass", "SMTP_PASS")
	_ = viper.BindEnv("ebay_app_id", "EBAY_APP_ID")

	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("APP_LOG_LEVEL"); v != "" {
		cfg.App.LogLevel = v
	}
	if v := os.Getenv("APP_HTTP_ADDR"); v != "" {
		cfg.App.HTTPAddr = v
	}
	if v := os.Getenv("APP_WORKER_POOL_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.WorkerPoolSize = i
		}
	}
	if v := os.Getenv("APP_POOL_CAPACITY"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.PoolCapacity = i
		}
	}
	if v := os.Getenv("APP_RESULT_POP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.App.ResultPopTimeout = d
		}
	}
	if v := os.Getenv("APP_TASK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.App.TaskTimeout = d
		}
	}
	if v := os.Getenv("APP_JANITOR_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.App.JanitorInterval = d
		}
	}
	if v := os.Getenv("APP_DEDUP_WINDOW"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.DedupWindow = i
		}
	}
	if v := os.Getenv("APP_NOTIFY_EMAIL"); v != "" {
		cfg.App.NotifyEmail = v
	}

	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.MySQL.DSN = v
	} else if hasAnyEnv("DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME") || viper.GetString("db_host") != "" || viper.GetString("db_password") != "" {
		parsed := parseMySQLDSN(cfg.MySQL.DSN)
		if v := viper.GetString("db_host"); v != "" {
			port := getenvDefault("DB_PORT", parsed.Addr, "3306")
			parsed.Addr = v + ":" + port
		} else if v := os.Getenv("DB_PORT"); v != "" {
			host := parsed.Addr
			if strings.Contains(host, ":") {
				host = strings.Split(host, ":")[0]
			}
			parsed.Addr = host + ":" + v
		}
		if v := os.Getenv("DB_USER"); v != "" {
			parsed.User = v
		}
		if v := viper.GetString("db_password"); v != "" {
			parsed.Passwd = v
		}
		if v := os.Getenv("DB_NAME"); v != "" {
			parsed.DBName = v
		}
		cfg.MySQL.DSN = parsed.FormatDSN()
	}

	if v := viper.GetString("redis_addr"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := viper.GetString("redis_password"); v != "" {
		cfg.Redis.Password = v
	}

	if v := viper.GetString("ebay_app_id"); v != "" {
		cfg.EBay.AppID = v
	}
	if v := os.Getenv("EBAY_ENDPOINT"); v != "" {
		cfg.EBay.Endpoint = v
	}
	if v := os.Getenv("EBAY_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.EBay.RequestTimeout = d
		}
	}
	if v := os.Getenv("EBAY_MAX_RESULTS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.EBay.MaxResults = i
		}
	}
	if v := os.Getenv("EBAY_CONCURRENCY"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.EBay.Concurrency = i
		}
	}
	if v := os.Getenv("EBAY_POP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.EBay.PopTimeout = d
		}
	}

	if v := os.Getenv("STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("STORAGE_BASE_URL"); v != "" {
		cfg.Storage.BaseURL = v
	}
	if v := os.Getenv("STORAGE_RETENTION_DAYS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Storage.RetentionDays = i
		}
	}
	if v := os.Getenv("STORAGE_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Storage.SweepInterval = d
		}
	}

	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Email.SMTPHost = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Email.SMTPPort = i
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.Email.SMTPUser = v
	}
	if v := viper.GetString("smtp_pass"); v != "" {
		cfg.Email.SMTPPass = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		cfg.Email.FromEmail = v
	}
}

func hasAnyEnv(keys ...string) bool {
	for _, key := range keys {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

func getenvDefault(envKey, fallbackAddr, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if fallbackAddr == "" {
		return defaultValue
	}
	if strings.Contains(fallbackAddr, ":") {
		parts := strings.Split(fallbackAddr, ":")
		if len(parts) == 2 && parts[1] != "" {
			return parts[1]
		}
	}
	return defaultValue
}

func parseMySQLDSN(dsn string) *mysql.Config {
	fallback := &mysql.Config{
		User:   "root",
		Passwd: "",
		Net:    "tcp",
		Addr:   "localhost:3306",
		DBName: "fliplister",
		Params: map[string]string{
			"parseTime": "true",
			"loc":       "Local",
		},
	}
	if dsn == "" {
		return fallback
	}
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return fallback
	}
	return parsed
}

// UnmarshalJSON 自定义 JSON 解析，支持 Duration 字符串。
func (a *AppConfig) UnmarshalJSON(data []byte) error {
	type Alias AppConfig
	aux := &struct {
		ResultPopTimeout string `json:"result_pop_timeout"`
		TaskTimeout      string `json:"task_timeout"`
		JanitorInterval  string `json:"janitor_interval"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.ResultPopTimeout != "" {
		d, err := time.ParseDuration(aux.ResultPopTimeout)
		if err != nil {
			return fmt.Errorf("invalid result_pop_timeout format: %w", err)
		}
		a.ResultPopTimeout = d
	}
	if aux.TaskTimeout != "" {
		d, err := time.ParseDuration(aux.TaskTimeout)
		if err != nil {
			return fmt.Errorf("invalid task_timeout format: %w", err)
		}
		a.TaskTimeout = d
	}
	if aux.JanitorInterval != "" {
		d, err := time.ParseDuration(aux.JanitorInterval)
		if err != nil {
			return fmt.Errorf("invalid janitor_interval format: %w", err)
		}
		a.JanitorInterval = d
	}

	return nil
}

// MarshalJSON 自定义 JSON 序列化，将 Duration 转为字符串。
func (a AppConfig) MarshalJSON() ([]byte, error) {
	type Alias AppConfig
	return json.Marshal(&struct {
		ResultPopTimeout string `json:"result_pop_timeout"`
		TaskTimeout      string `json:"task_timeout"`
		JanitorInterval  string `json:"janitor_interval"`
		*Alias
	}{
		ResultPopTimeout: a.ResultPopTimeout.String(),
		TaskTimeout:      a.TaskTimeout.String(),
		JanitorInterval:  a.JanitorInterval.String(),
		Alias:            (*Alias)(&a),
	})
}

// UnmarshalJSON 自定义 JSON 解析，支持 Duration 字符串。
func (e *EBayConfig) UnmarshalJSON(data []byte) error {
	type Alias EBayConfig
	aux := &struct {
		RequestTimeout string `json:"request_timeout"`
		PopTimeout     string `json:"pop_timeout"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.RequestTimeout != "" {
		d, err := time.ParseDuration(aux.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout format: %w", err)
		}
		e.RequestTimeout = d
	}
	if aux.PopTimeout != "" {
		d, err := time.ParseDuration(aux.PopTimeout)
		if err != nil {
			return fmt.Errorf("invalid pop_timeout format: %w", err)
		}
		e.PopTimeout = d
	}

	return nil
}

// MarshalJSON 自定义 JSON 序列化，将 Duration 转为字符串。
func (e EBayConfig) MarshalJSON() ([]byte, error) {
	type Alias EBayConfig
	return json.Marshal(&struct {
		RequestTimeout string `json:"request_timeout"`
		PopTimeout     string `json:"pop_timeout"`
		*Alias
	}{
		RequestTimeout: e.RequestTimeout.String(),
		PopTimeout:     e.PopTimeout.String(),
		Alias:          (*Alias)(&e),
	})
}

// UnmarshalJSON 自定义 JSON 解析，支持 Duration 字符串。
func (s *StorageConfig) UnmarshalJSON(data []byte) error {
	type Alias StorageConfig
	aux := &struct {
		SweepInterval string `json:"sweep_interval"`
		*Alias
	}{
		Alias: (*Alias)(s),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.SweepInterval != "" {
		d, err := time.ParseDuration(aux.SweepInterval)
		if err != nil {
			return fmt.Errorf("invalid sweep_interval format: %w", err)
		}
		s.SweepInterval = d
	}

	return nil
}

// MarshalJSON 自定义 JSON 序列化，将 Duration 转为字符串。
func (s StorageConfig) MarshalJSON() ([]byte, error) {
	type Alias StorageConfig
	return json.Marshal(&struct {
		SweepInterval string `json:"sweep_interval"`
		*Alias
	}{
		SweepInterval: s.SweepInterval.String(),
		Alias:         (*Alias)(&s),
	})
}
