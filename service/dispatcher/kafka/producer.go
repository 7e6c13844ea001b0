package kafka

import (
	"encoding/json"
	"time"

	"github.com/Shopify/sarama"

	"RelayProject/logger"
	"RelayProject/tools/safe"
)

var (
	KafkaClient sarama.Client
	Producer    sarama.SyncProducer
)

func InitKafkaClient() error {
	cfg := BuildBaseConfig()
	c, err := sarama.NewClient(Cfg.Brokers, cfg)
	if err != nil {
		return err
	}
	KafkaClient = c
	return nil
}

func InitSyncProducerFromClient() error {
	p, err := sarama.NewSyncProducerFromClient(KafkaClient)
	if err != nil {
		return err
	}
	Producer = p
	return nil
}

// JournalEntry 已投递消息的审计流水。
// 只做旁路记录，不参与投递，也不用于补发。
type JournalEntry struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
	Ts      int64  `json:"ts"`
}

// JournalDelivery 异步写入一条投递流水；producer 未初始化时为 no-op。
func JournalDelivery(from, to, event string, payload any) {
	if Producer == nil {
		return
	}
	entry := JournalEntry{
		From:    from,
		To:      to,
		Event:   event,
		Payload: payload,
		Ts:      time.Now().UnixMilli(),
	}
	safe.Go(func() {
		value, err := json.Marshal(entry)
		if err != nil {
			logger.Errorf("[Kafka] marshal journal entry: %v", err)
			return
		}
		msg := &sarama.ProducerMessage{
			Topic: Cfg.JournalTopic,
			Key:   sarama.StringEncoder(to),
			Value: sarama.ByteEncoder(value),
		}
		if _, _, err := Producer.SendMessage(msg); err != nil {
			logger.Errorf("[Kafka] send journal entry: %v", err)
		}
	})
}

func CloseProducer() {
	if Producer != nil {
		_ = Producer.Close()
	}
	if KafkaClient != nil {
		_ = KafkaClient.Close()
	}
}
