package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const defaultSecret = "your-secret-key-change-in-production"

// Config 应用配置
type Config struct {
	Env         string
	AppSecret   string
	DatabaseURL string
	Port        string

	// StorageDriver postgres 或 memory
	StorageDriver string

	// Bangumi 目录 API
	BangumiBase      string
	BangumiUserAgent string
	BangumiTimeout   time.Duration

	DefaultAvatar       string
	TrustIdentityHeader bool
	ReconcileInterval   time.Duration
}

// Load 加载配置
func Load() *Config {
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "animelog")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	appSecret := getEnv("APP_SECRET", defaultSecret)
	env := getEnv("APP_ENV", "development")
	if env == "production" && appSecret == defaultSecret {
		fmt.Println("【严重警告】生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	timeoutSec := getEnvInt("BANGUMI_TIMEOUT_SECONDS", 15)
	reconcileHours := getEnvInt("RECONCILE_INTERVAL_HOURS", 24)
	trustHeader, _ := strconv.ParseBool(getEnv("TRUST_IDENTITY_HEADER", "false"))

	return &Config{
		Env:                 env,
		AppSecret:           appSecret,
		DatabaseURL:         dbURL,
		Port:                getEnv("PORT", "5005"),
		StorageDriver:       getEnv("STORAGE_DRIVER", "postgres"),
		BangumiBase:         getEnv("BANGUMI_API_BASE", "https://api.bgm.tv"),
		BangumiUserAgent:    getEnv("BANGUMI_USER_AGENT", "animelog/1.0 (https://github.com/user/animelog)"),
		BangumiTimeout:      time.Duration(timeoutSec) * time.Second,
		DefaultAvatar:       getEnv("DEFAULT_AVATAR_URL", "https://static.bgm.tv/img/avatar/ls.jpg"),
		TrustIdentityHeader: trustHeader,
		ReconcileInterval:   time.Duration(reconcileHours) * time.Hour,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}
