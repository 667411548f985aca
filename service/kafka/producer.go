package kafka

import (
	"time"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"

	"github.com/streamverse/realtime-gateway/logger"
)

// 归档生产者：网关把路由成功的聊天消息异步写进 Kafka，
// 由下游 persist 服务落库。网关不回查历史。

type Archiver struct {
	producer sarama.AsyncProducer
	topic    string
}

func BuildBaseConfig() *sarama.Config {
	cfg := sarama.NewConfig()

	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Partitioner = sarama.NewHashPartitioner // Key 控制分区，同房间保序
	cfg.Producer.Compression = sarama.CompressionSnappy

	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg
}

// NewArchiver 连接 brokers 并启动错误消费协程
func NewArchiver(brokers []string, topic string) (*Archiver, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers missing")
	}
	p, err := sarama.NewAsyncProducer(brokers, BuildBaseConfig())
	if err != nil {
		return nil, errors.Wrap(err, "kafka producer")
	}
	a := &Archiver{producer: p, topic: topic}
	go func() {
		for perr := range p.Errors() {
			logger.Warnf("[kafka] archive failed topic=%s err=%v", perr.Msg.Topic, perr.Err)
		}
	}()
	return a, nil
}

// Archive 非阻塞投递；key 取 roomID，保证单房间进同一分区
func (a *Archiver) Archive(key string, payload []byte) {
	if a == nil {
		return
	}
	a.producer.Input() <- &sarama.ProducerMessage{
		Topic: a.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}
}

// Close 等待缓冲区排空
func (a *Archiver) Close() error {
	if a == nil {
		return nil
	}
	return a.producer.Close()
}
