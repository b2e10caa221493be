package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	Env       string
	AppSecret string
	Port      string
	SiteName  string
	SiteUrl   string

	LogLevel  string
	LogFormat string

	// 存储：badger（默认，本地嵌入式）、postgres、memory
	StorageBackend string
	DataDir        string
	StorageKey     string
	DatabaseURL    string

	TMDBAPIKey    string
	TMDBLanguage  string
	TMDBBaseURL   string
	TMDBRateLimit float64 // 每秒请求数
	TMDBTimeout   time.Duration
}

// DefaultStorageKey 用户文档的存储键
const DefaultStorageKey = "yourDirectoryUserData"

// Load 加载配置
func Load() *Config {
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "filmdiary")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	appSecret := getEnv("APP_SECRET", "your-secret-key-change-in-production")

	if getEnv("APP_ENV", "development") == "production" && appSecret == "your-secret-key-change-in-production" {
		fmt.Println("【严重警告】生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	rateLimit, err := strconv.ParseFloat(getEnv("TMDB_RATE_LIMIT", "20"), 64)
	if err != nil || rateLimit <= 0 {
		rateLimit = 20
	}
	timeoutSec, err := strconv.Atoi(getEnv("TMDB_TIMEOUT_SECONDS", "10"))
	if err != nil || timeoutSec <= 0 {
		timeoutSec = 10
	}

	return &Config{
		Env:       getEnv("APP_ENV", "development"),
		AppSecret: appSecret,
		Port:      getEnv("PORT", "5005"),
		SiteName:  getEnv("SITE_NAME", "Film Diary"),
		SiteUrl:   getEnv("SITE_URL", "http://localhost:5005"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		StorageBackend: getEnv("STORAGE_BACKEND", "badger"),
		DataDir:        getEnv("DATA_DIR", "./data"),
		StorageKey:     getEnv("STORAGE_KEY", DefaultStorageKey),
		DatabaseURL:    getEnv("DATABASE_URL", dbURL),

		TMDBAPIKey:    getEnv("TMDB_API_KEY", ""),
		TMDBLanguage:  getEnv("TMDB_LANGUAGE", "es-ES"),
		TMDBBaseURL:   getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBRateLimit: rateLimit,
		TMDBTimeout:   time.Duration(timeoutSec) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
