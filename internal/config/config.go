// Package config 统一配置管理
//
// 配置加载策略：
//  1. 从 .env 加载敏感信息（MONGO_URI、JWT_SECRET、REDIS_PASSWORD）和 APP_ENV
//  2. 根据 APP_ENV 加载对应的 configs/{env}.yaml 配置文件
//  3. 环境变量可覆盖 YAML 配置
//
// 凭据单一数据源：密码/密钥只存在 .env 中，YAML 不存储任何密码。
//
// 使用方式：
//   - 开发环境: APP_ENV=dev (默认)
//   - 测试环境: APP_ENV=test
//   - 生产环境: APP_ENV=prod
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
// 时长字段为字符串（如 "15m"、"24h"），加载时 time.ParseDuration 解析
type YAMLConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	URI  string `yaml:"uri"` // MongoDB 连接 URI，MONGO_URI 环境变量可覆盖
	Name string `yaml:"name"`
}

type RedisConfig struct {
	Host     string `yaml:"host"` // 留空关闭限流
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"-"` // 只从 REDIS_PASSWORD 环境变量读取
}

// AuthConfig 认证配置
// JWTSecret 只从 JWT_SECRET 环境变量读取，不存储在 YAML 中
type AuthConfig struct {
	JWTSecret string `yaml:"-"`
	TokenTTL  string `yaml:"token_ttl"` // 例如 "24h"
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Window     string `yaml:"window"` // 例如 "15m"
	Max        int64  `yaml:"max"`
	AuthWindow string `yaml:"auth_window"`
	AuthMax    int64  `yaml:"auth_max"`
}

type CORSConfig struct {
	Origin string `yaml:"origin"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env Environment

	APIPort     string
	MongoURI    string
	MongoDBName string

	RedisURL      string // REDIS_URL 直接指定连接串，优先于 host/port/db
	RedisAddr     string // 与 RedisURL 均为空表示限流关闭
	RedisPassword string
	RedisDB       int

	JWTSecret string
	TokenTTL  time.Duration

	RateLimitWindow     time.Duration
	RateLimitMax        int64
	RateLimitAuthWindow time.Duration
	RateLimitAuthMax    int64

	CORSOrigin string
}

var configPaths = []string{
	"configs",
	"../configs",
	"../../configs",
	"../../../configs",
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
	"../../../.env",
}

// Load 加载配置
// 1. 加载 .env（敏感信息 + APP_ENV）
// 2. 根据 APP_ENV 加载 configs/{env}.yaml
// 3. 环境变量覆盖，构建最终配置
func Load() *Config {
	// 加载 .env
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// 解析环境
	env := parseEnv(getEnv("APP_ENV", "dev"))

	// 加载 YAML 配置
	yamlCfg := loadYAMLConfig(env)

	redisAddr := ""
	if host := getEnv("REDIS_HOST", yamlCfg.Redis.Host); host != "" {
		redisAddr = fmt.Sprintf("%s:%d", host, yamlCfg.Redis.Port)
	}

	cfg := &Config{
		Env:         env,
		APIPort:     getEnv("PORT", yamlCfg.Server.Port),
		MongoURI:    getEnv("MONGO_URI", yamlCfg.Database.URI),
		MongoDBName: getEnv("MONGO_DB_NAME", yamlCfg.Database.Name),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisAddr:     redisAddr,
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       yamlCfg.Redis.DB,

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  parseDuration(yamlCfg.Auth.TokenTTL, 24*time.Hour),

		RateLimitWindow:     parseDuration(yamlCfg.RateLimit.Window, 15*time.Minute),
		RateLimitMax:        yamlCfg.RateLimit.Max,
		RateLimitAuthWindow: parseDuration(yamlCfg.RateLimit.AuthWindow, 15*time.Minute),
		RateLimitAuthMax:    yamlCfg.RateLimit.AuthMax,

		CORSOrigin: getEnv("CORS_ORIGIN", yamlCfg.CORS.Origin),
	}

	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *YAMLConfig {
	cfg := &YAMLConfig{
		Server:   ServerConfig{Port: "8080"},
		Database: DatabaseConfig{URI: "mongodb://localhost:27017", Name: "questions_admin"},
		Redis:    RedisConfig{Host: "", Port: 6379, DB: 0},
		Auth:     AuthConfig{TokenTTL: "24h"},
		RateLimit: RateLimitConfig{
			Window: "15m", Max: 300,
			AuthWindow: "15m", AuthMax: 20,
		},
		CORS: CORSConfig{Origin: "*"},
	}

	// common.yaml（公共配置）
	for _, base := range configPaths {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	// {env}.yaml（环境特定配置，覆盖公共配置）
	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range configPaths {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	return cfg
}

func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	if s == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// String 返回配置摘要（隐藏密码）
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Mongo: %s/%s, Redis: %s}",
		c.Env, maskPassword(c.MongoURI), c.MongoDBName, c.RedisAddr)
}

// maskPassword 隐藏连接串中的密码
func maskPassword(url string) string {
	re := regexp.MustCompile(`(://[^:/]+:)([^@]+)(@)`)
	return re.ReplaceAllString(url, "${1}***${3}")
}
