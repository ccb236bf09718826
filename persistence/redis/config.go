package redis

import "time"

type Config struct {
	Addrs     []string
	Namespace string
	PoolSize  int
	Password  string
	// ArchiveRetention bounds how long finished run reports are kept.
	// Zero means keep forever.
	ArchiveRetention time.Duration
}
