package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// TopicHeader names the device topic on every produced message.
const TopicHeader = "topic"

func InitKafkaProducer(brokers []string, clientID string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	// Device key hashing keeps one rack's events on one partition, in order.
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	config.ClientID = clientID
	config.Producer.MaxMessageBytes = 1000000

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return producer, nil
}

// DevicePublisher publishes device events the way rack controllers do:
// keyed by device key with the device topic in a header.
type DevicePublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewDevicePublisher(producer sarama.SyncProducer, topic string) *DevicePublisher {
	return &DevicePublisher{producer: producer, topic: topic}
}

// NewDeviceMessage builds the kafka message for one device event.
func NewDeviceMessage(kafkaTopic, deviceKey, kind string, payload []byte, at time.Time) *sarama.ProducerMessage {
	return &sarama.ProducerMessage{
		Topic: kafkaTopic,
		Key:   sarama.StringEncoder(deviceKey),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte(TopicHeader), Value: []byte(fmt.Sprintf("racks/%s/%s", deviceKey, kind))},
		},
		Timestamp: at,
	}
}

// Publish sends payload for deviceKey on the given kind (sensors, status, alerts).
func (p *DevicePublisher) Publish(deviceKey, kind string, payload []byte) (partition int32, offset int64, err error) {
	msg := NewDeviceMessage(p.topic, deviceKey, kind, payload, time.Now())
	return p.producer.SendMessage(msg)
}

func (p *DevicePublisher) Close() error {
	return p.producer.Close()
}
