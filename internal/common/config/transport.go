package config

import (
	"time"

	"github.com/102326/PyLab/internal/common/cnst"
)

type (
	// TransportConfig selects and configures the pub/sub backend
	TransportConfig struct {
		Type  string               `yaml:"type" validate:"oneof=redis nats memory"`
		Redis TransportRedisConfig `yaml:"redis"`
		NATS  TransportNATSConfig  `yaml:"nats"`
	}

	// TransportRedisConfig represents the Redis pub/sub configuration
	TransportRedisConfig struct {
		ClusterType     string        `yaml:"cluster_type" validate:"omitempty,oneof=single sentinel cluster"`
		Addr            string        `yaml:"addr"` // multiple addresses separated by ',' or ';'
		MasterName      string        `yaml:"master_name"`
		Username        string        `yaml:"username"`
		Password        string        `yaml:"password"`
		DB              int           `yaml:"db" validate:"gte=0"`
		MinRetryBackoff time.Duration `yaml:"min_retry_backoff"`
		MaxRetryBackoff time.Duration `yaml:"max_retry_backoff"`
	}

	// TransportNATSConfig represents the NATS configuration
	TransportNATSConfig struct {
		URL           string        `yaml:"url"`
		Name          string        `yaml:"name"`
		ReconnectWait time.Duration `yaml:"reconnect_wait"`
		MaxReconnects int           `yaml:"max_reconnects"` // -1 reconnects forever
	}
)

func (c *TransportConfig) setDefaults() {
	if c.Type == "" {
		c.Type = string(cnst.TransportRedis)
	}
	if c.Redis.ClusterType == "" {
		c.Redis.ClusterType = cnst.RedisClusterTypeSingle
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Redis.MinRetryBackoff <= 0 {
		c.Redis.MinRetryBackoff = 8 * time.Millisecond
	}
	if c.Redis.MaxRetryBackoff <= 0 {
		c.Redis.MaxRetryBackoff = 512 * time.Millisecond
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://127.0.0.1:4222"
	}
	if c.NATS.Name == "" {
		c.NATS.Name = cnst.AppName
	}
	if c.NATS.ReconnectWait <= 0 {
		c.NATS.ReconnectWait = 2 * time.Second
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = -1
	}
}
