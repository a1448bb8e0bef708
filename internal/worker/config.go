package worker

import (
	"github.com/caarlos0/env"
)

type Config struct {
	KafkaTransactionsGroupID    string `json:"kafka_transactions_group_id" env:"KAFKA_TRANSACTIONS_GROUP_ID" envDefault:"txgate_processing_consumer_group"`
	KafkaPartitionWatchInterval int    `json:"kafka_partition_watch_interval" env:"KAFKA_PARTITION_WATCH_INTERVAL" envDefault:"50000"`
	KafkaMaxWaitInterval        int    `json:"kafka_max_wait_interval" env:"KAFKA_MAX_WAIT_INTERVAL" envDefault:"250"`
	WorkersCount                int64  `json:"workers_count" env:"WORKERS_COUNT" envDefault:"5"`

	// SettlementDelay models the latency of the external settlement call, in
	// milliseconds. SettlementTimeout bounds the whole call.
	SettlementDelay   int `json:"settlement_delay" env:"SETTLEMENT_DELAY" envDefault:"15000"`
	SettlementTimeout int `json:"settlement_timeout" env:"SETTLEMENT_TIMEOUT" envDefault:"30000"`
}

func MustNewConfig() *Config {
	c := &Config{}
	env.Parse(c)

	return c
}
