package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/rms/internal/messaging/kafka"
)

// initKafkaProducer создаёт producer событий, если заданы brokers.
// Возвращает nil, nil, если brokers пустой.
func initKafkaProducer(brokers []string, topic string, logger *log.Entry) (*kafka.Producer, error) {
	brokers = normalizeBrokers(brokers)
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers, topic)
	if err != nil {
		return nil, err
	}

	logger.WithFields(log.Fields{"brokers": brokers, "topic": topic}).Info("kafka producer initialized")
	return producer, nil
}

// closeKafkaProducer закрывает producer, если он не nil.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
