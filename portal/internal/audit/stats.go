package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Astemirdum/library-portal/pkg/kafka"
	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrDropped is returned when the producer cannot take another event right away.
var ErrDropped = errors.New("audit event dropped: producer buffer is full")

// StatsLog publishes audit events of user actions.
type StatsLog interface {
	Log(sl kafka.EventStats) error
}

type statsLog struct {
	producer sarama.AsyncProducer
	topic    string
	now      func() time.Time
}

// NewStatsLog returns a log writing to producer. A nil producer yields a log that drops everything.
func NewStatsLog(producer sarama.AsyncProducer, topic string) StatsLog {
	if producer == nil {
		return (*statsLog)(nil)
	}
	return &statsLog{
		producer: producer,
		topic:    topic,
		now:      time.Now,
	}
}

func (l *statsLog) Log(sl kafka.EventStats) error {
	if l == nil {
		return nil
	}
	if sl.Timestamp.IsZero() {
		sl.Timestamp = l.now()
	}
	data, err := json.Marshal(sl)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: l.topic,
		Key:   sarama.StringEncoder(sl.UserName),
		Value: sarama.ByteEncoder(data),
	}
	select {
	case l.producer.Input() <- msg:
		return nil
	default:
		return ErrDropped
	}
}

// DrainErrors logs delivery failures of producer until ctx is done or the producer is closed.
func DrainErrors(ctx context.Context, log *zap.Logger, producer sarama.AsyncProducer) {
	for {
		select {
		case <-ctx.Done():
			return
		case perr, ok := <-producer.Errors():
			if !ok {
				return
			}
			log.Warn("audit event not delivered", zap.String("topic", perr.Msg.Topic), zap.Error(perr.Err))
		}
	}
}
