package cnst

const (
	// NotifydYaml is the default configuration file name
	NotifydYaml = "notifyd.yaml"
)

const (
	RedisClusterTypeSingle   = "single"
	RedisClusterTypeSentinel = "sentinel"
	RedisClusterTypeCluster  = "cluster"
)

// TransportType selects the pub/sub backend
type TransportType string

const (
	TransportRedis  TransportType = "redis"
	TransportNATS   TransportType = "nats"
	TransportMemory TransportType = "memory"
)
