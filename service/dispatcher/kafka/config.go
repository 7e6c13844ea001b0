package kafka

import (
	"strings"
	"time"

	"github.com/Shopify/sarama"
)

// Cfg 包级配置；main() 在启动前按需覆盖
var Cfg = AppConfig{
	Brokers:             []string{"localhost:9092"},
	JournalTopic:        "relay_message_journal",
	ProducerRetries:     1,
	ProducerCompression: "none",
}

type AppConfig struct {
	Brokers             []string
	JournalTopic        string
	KafkaVersion        sarama.KafkaVersion
	ProducerRetries     int
	ProducerCompression string // none/snappy/lz4/zstd
}

func BuildBaseConfig() *sarama.Config {
	cfg := sarama.NewConfig()

	// Kafka 版本（给个兜底，避免零值触发 sarama 校验失败）
	if Cfg.KafkaVersion == (sarama.KafkaVersion{}) {
		cfg.Version = sarama.V2_8_0_0
	} else {
		cfg.Version = Cfg.KafkaVersion
	}

	// Producer
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll

	retries := Cfg.ProducerRetries
	if retries <= 0 {
		retries = 1
	}
	cfg.Producer.Retry.Max = retries

	// Key 控制分区：同一收件人的流水落同一分区
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	switch strings.ToLower(Cfg.ProducerCompression) {
	case "snappy":
		cfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		cfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		cfg.Producer.Compression = sarama.CompressionZSTD
	default:
		cfg.Producer.Compression = sarama.CompressionNone
	}

	// Net
	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second

	return cfg
}
