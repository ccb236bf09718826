package config

import (
	"github.com/mohitkumar/conveyor/analytics"
)

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type Config struct {
	RedisConfig           RedisStorageConfig
	HttpPort              int
	StorageType           StorageType
	SlotCount             int
	MaxParallelJobs       int
	SlotWaitSeconds       int
	ArchiveRetentionHours int
	LogDebug              bool
	AnalyticsConfig       analytics.DataCollectorConfig
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
	PoolSize  int
	Password  string
}
