package config

// HubConfig sizes the live-update fan-out.
type HubConfig struct {
	Shards     int
	Buffer     int  // events buffered per websocket subscriber
	QueueSize  int  // dispatcher queue between the engine and the hub
	RedisRelay bool // fan out through Redis so every instance sees every event
}

func LoadHubConfig() HubConfig {
	return HubConfig{
		Shards:     envInt("HUB_SHARDS", 16),
		Buffer:     envInt("HUB_SUBSCRIBER_BUFFER", 64),
		QueueSize:  envInt("HUB_QUEUE_SIZE", 1024),
		RedisRelay: envBool("HUB_REDIS_RELAY", false),
	}
}
