package cache

import "time"

type ICache interface {
	RegisterInstance(id string) error
	PruneInstances() error
	StartIdentityTicker(id string)

	GetRateLimit(userIdentifier string, requestsPerMinute int) (int, error)

	// TryAcquireLock takes a worker lock with SET NX EX.
	TryAcquireLock(key string, instanceID string, ttlSeconds int) (bool, error)
	// RefreshLock extends a lock held by instanceID.
	RefreshLock(key string, instanceID string, ttlSeconds int) (bool, error)

	// GetJSON loads a cached JSON document into target. It returns false on a miss.
	GetJSON(key string, target any) (bool, error)
	SetJSON(key string, value any, ttl time.Duration) error

	Close() error
}
