package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"RelayProject/logger"
	ka "RelayProject/service/dispatcher/kafka"
	"RelayProject/service/storage"
	"RelayProject/tools/ids"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

var Global = AppConfig{
	Env:           EnvDevelopment,
	Port:          3000,
	MongoURI:      "mongodb://localhost:27017",
	MongoDatabase: "relayChat",
	RedisAddr:     "127.0.0.1:6379",
	KafkaBrokers:  []string{"localhost:9092"},
	PresenceTTL:   2 * time.Minute,
}

type AppConfig struct {
	Env  string
	Port int

	MongoURI      string
	MongoDatabase string
	MongoUsername string
	MongoPassword string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PresenceTTL   time.Duration

	KafkaEnabled bool
	KafkaBrokers []string
}

// Load 环境变量覆盖默认值；变量名沿用旧部署的约定
func Load() {
	if v := os.Getenv("APP_ENV"); v != "" {
		Global.Env = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			Global.Port = p
		}
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		Global.MongoURI = v
	}
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		Global.MongoDatabase = v
	}
	if v := os.Getenv("MONGO_USERNAME"); v != "" {
		Global.MongoUsername = v
	}
	if v := os.Getenv("MONGO_PASSWORD"); v != "" {
		Global.MongoPassword = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		Global.RedisAddr = v
		Global.RedisEnabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		Global.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			Global.RedisDB = db
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		Global.KafkaBrokers = strings.Split(v, ",")
		Global.KafkaEnabled = true
	}
}

// CleanupInterval 注册表清理周期：生产环境清得更勤
func (c *AppConfig) CleanupInterval() time.Duration {
	if c.Env == EnvProduction {
		return 15 * time.Second
	}
	return 30 * time.Second
}

func GetJwtSecret() []byte {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		return []byte(v)
	}
	b := []byte("mN9b1f8zPq+W2xjX/45sKcVd0TfyoG+3Hp5Z8q9Rj1o=")
	return b
}

func ConfigAll() {
	ConfigIds()
	ConfigRedis()
	ConfigKafka()
}

func ConfigIds() {
	ids.SetNodeID(100)
}

func ConfigRedis() {
	if !Global.RedisEnabled {
		return
	}
	err := storage.InitRedis(storage.Config{
		Addr:     Global.RedisAddr,
		Password: Global.RedisPassword,
		DB:       Global.RedisDB,
	})
	if err != nil {
		logger.Errorf("[Config] init redis: %v", err)
	}
}

func ConfigKafka() {
	if !Global.KafkaEnabled {
		return
	}
	ka.Cfg.Brokers = Global.KafkaBrokers
	if err := ka.InitKafkaClient(); err != nil {
		logger.Errorf("[Kafka][ERR] init client: %v", err)
		return
	}
	if err := ka.InitSyncProducerFromClient(); err != nil {
		logger.Errorf("[Kafka][ERR] init producer: %v", err)
	}
}
