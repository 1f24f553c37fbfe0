package sqldb

import "time"

// PoolConfig configures the underlying *sql.DB connection pool, mirroring
// server/datasource/sql's SQLConfig pool fields.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPoolConfig returns sensible pool defaults for a single-writer
// controller backend: a handful of connections is plenty since Write
// already serializes write jobs through one mutex.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}
