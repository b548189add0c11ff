package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

type Config struct {
	Addrs []string `envconfig:"KAFKA_ADDRS"`
	Topic string   `envconfig:"KAFKA_TOPIC" default:"portal-audit"`
}

func (c Config) Enabled() bool {
	return len(c.Addrs) > 0
}

func NewAsyncProducer(cfg Config) (sarama.AsyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForLocal
	defaultCfg.Producer.Return.Successes = false
	defaultCfg.Producer.Return.Errors = true

	return sarama.NewAsyncProducer(cfg.Addrs, defaultCfg)
}

// EventStats is one audit record of a user action in the portal.
type EventStats struct {
	UserName  string    `json:"username"`
	Role      string    `json:"role,omitempty"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id,omitempty"`
	Outcome   string    `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`
}
