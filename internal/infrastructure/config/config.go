package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 儲存後端 API、資料庫與客戶端的執行設定。
type Config struct {
	HTTP   HTTPConfig   `yaml:"http"`
	DB     DBConfig     `yaml:"db"`
	Auth   AuthConfig   `yaml:"auth"`
	Client ClientConfig `yaml:"client"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type DBConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxIdleTime  time.Duration `yaml:"max_idle_time"`
}

type AuthConfig struct {
	TokenTTL   time.Duration `yaml:"token_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
	Secret     string        `yaml:"secret"`
	// SeedUsers 啟動時建立 admin/user 測試帳號。
	SeedUsers bool `yaml:"seed_users"`
	// SweepInterval 清理過期 session 的間隔。
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// ClientConfig 客戶端連線與憑證儲存設定。
type ClientConfig struct {
	BaseURL         string           `yaml:"base_url"`
	Timeout         time.Duration    `yaml:"timeout"`
	CoalesceRefresh *bool            `yaml:"coalesce_refresh"`
	TokenStore      TokenStoreConfig `yaml:"token_store"`
}

// TokenStoreConfig Driver 可為 memory、file、sqlite。
type TokenStoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// ShouldCoalesceRefresh 未設定時預設合併並行的 refresh。
func (c ClientConfig) ShouldCoalesceRefresh() bool {
	return c.CoalesceRefresh == nil || *c.CoalesceRefresh
}

// LoadFromFile 從 YAML 組態檔載入設定。
func LoadFromFile(path string) (Config, error) {
	// 嘗試載入 .env 檔案（如果存在）
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg = applyDefaults(cfg)
	cfg = applyEnv(cfg)
	return cfg, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 5
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 2
	}
	if cfg.DB.MaxIdleTime == 0 {
		cfg.DB.MaxIdleTime = 15 * time.Minute
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 30 * time.Minute
	}
	if cfg.Auth.RefreshTTL == 0 {
		cfg.Auth.RefreshTTL = 24 * time.Hour * 30
	}
	if cfg.Auth.SweepInterval == 0 {
		cfg.Auth.SweepInterval = time.Hour
	}
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret = "dev-secret-change-me"
	}
	if cfg.Client.BaseURL == "" {
		cfg.Client.BaseURL = "http://localhost:8080"
	}
	if cfg.Client.Timeout == 0 {
		cfg.Client.Timeout = 15 * time.Second
	}
	if cfg.Client.TokenStore.Driver == "" {
		cfg.Client.TokenStore.Driver = "file"
	}
	if cfg.Client.TokenStore.Path == "" {
		cfg.Client.TokenStore.Path = defaultTokenPath(cfg.Client.TokenStore.Driver)
	}
	return cfg
}

func applyEnv(cfg Config) Config {
	if val := os.Getenv("HTTP_ADDR"); val != "" {
		cfg.HTTP.Addr = val
	}
	if val := os.Getenv("PORT"); val != "" {
		cfg.HTTP.Addr = ":" + val
	}
	if val := os.Getenv("DB_DSN"); val != "" {
		cfg.DB.DSN = val
	}
	if val := os.Getenv("AUTH_SECRET"); val != "" {
		cfg.Auth.Secret = val
	}
	if val := os.Getenv("AUTH_SEED_USERS"); val != "" {
		cfg.Auth.SeedUsers = (val == "true")
	}
	if val := os.Getenv("QUIZZ_API_URL"); val != "" {
		cfg.Client.BaseURL = val
	}
	if val := os.Getenv("QUIZZ_TOKEN_STORE"); val != "" {
		cfg.Client.TokenStore.Driver = val
	}
	if val := os.Getenv("QUIZZ_TOKEN_PATH"); val != "" {
		cfg.Client.TokenStore.Path = val
	}
	if val := os.Getenv("QUIZZ_CLIENT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Client.Timeout = d
		}
	}
	return cfg
}

// defaultTokenPath 放在使用者設定目錄下，例如 ~/.config/master-o-quizz/tokens.yaml。
func defaultTokenPath(driver string) string {
	name := "tokens.yaml"
	if driver == "sqlite" {
		name = "tokens.db"
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	return dir + string(os.PathSeparator) + "master-o-quizz" + string(os.PathSeparator) + name
}
