package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"figures/internal/configuration"
	"figures/internal/models"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// RueidisCache backs ICache with any RESP server reachable by rueidis.
type RueidisCache struct {
	client rueidis.Client
}

// NewRedisCache connects to a Redis deployment.
func NewRedisCache(config *models.RedisCacheConfiguration) (*RueidisCache, error) {
	return dial("redis", config.Hosts, config.Password, config.TLSEnabled, config.TLSServerName)
}

// NewValkeyCache connects to a Valkey deployment.
func NewValkeyCache(config *models.ValkeyCacheConfiguration) (*RueidisCache, error) {
	return dial("valkey", config.Hosts, config.Password, config.TLSEnabled, config.TLSServerName)
}

func dial(kind string, hosts []string, password string, tlsEnabled bool, tlsServerName string) (*RueidisCache, error) {
	option := rueidis.ClientOption{InitAddress: hosts, Password: password}
	if tlsEnabled {
		option.TLSConfig = &tls.Config{ServerName: tlsServerName, MinVersion: tls.VersionTLS12}
	}

	client, err := rueidis.NewClient(option)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", kind, err)
	}
	return &RueidisCache{client: client}, nil
}

// RegisterInstance records a heartbeat for a running Figures process.
func (r *RueidisCache) RegisterInstance(id string) error {
	ctx := context.Background()
	now := float64(time.Now().Unix())
	return r.client.Do(ctx, r.client.B().Zadd().Key(configuration.CacheInstancesKey).
		ScoreMember().ScoreMember(now, id).Build()).Error()
}

// PruneInstances drops processes whose heartbeat is older than the instance lifetime.
func (r *RueidisCache) PruneInstances() error {
	ctx := context.Background()
	cutoff := time.Now().Unix() - configuration.CacheInstanceLifetime
	return r.client.Do(ctx, r.client.B().Zremrangebyscore().Key(configuration.CacheInstancesKey).
		Min("-inf").Max(strconv.FormatInt(cutoff, 10)).Build()).Error()
}

func (r *RueidisCache) heartbeat(id string) error {
	if err := r.RegisterInstance(id); err != nil {
		return err
	}
	return r.PruneInstances()
}

// StartIdentityTicker sends a heartbeat every minute. A failing first
// heartbeat is fatal, later failures are only logged.
func (r *RueidisCache) StartIdentityTicker(id string) {
	if err := r.heartbeat(id); err != nil {
		zap.L().Fatal("Failed to register instance", zap.String("instance", id), zap.Error(err))
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		if err := r.heartbeat(id); err != nil {
			zap.L().Error("Instance heartbeat failed", zap.String("instance", id), zap.Error(err))
		}
	}
}

// GetRateLimit counts a request for client in the current one minute
// window. It returns the seconds to wait once the budget is spent, zero
// otherwise.
func (r *RueidisCache) GetRateLimit(client string, requestsPerMinute int) (int, error) {
	ctx := context.Background()
	key := fmt.Sprintf(configuration.CacheRateLimitKey, client)

	count, err := r.client.Do(ctx, r.client.B().Incr().Key(key).Build()).AsInt64()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err = r.client.Do(ctx, r.client.B().Expire().Key(key).Seconds(60).Build()).Error(); err != nil {
			return 0, err
		}
	}
	if count <= int64(requestsPerMinute) {
		return 0, nil
	}

	ttl, err := r.client.Do(ctx, r.client.B().Ttl().Key(key).Build()).AsInt64()
	if err != nil {
		return 0, err
	}
	return int(max(ttl, 1)), nil
}

func (r *RueidisCache) TryAcquireLock(key string, instanceID string, ttlSeconds int) (bool, error) {
	ctx := context.Background()
	err := r.client.Do(ctx, r.client.B().Set().Key(key).Value(instanceID).
		Nx().ExSeconds(int64(ttlSeconds)).Build()).Error()
	if rueidis.IsRedisNil(err) {
		return false, nil
	}
	return err == nil, err
}

func (r *RueidisCache) RefreshLock(key string, instanceID string, ttlSeconds int) (bool, error) {
	ctx := context.Background()
	holder, err := r.client.Do(ctx, r.client.B().Get().Key(key).Build()).ToString()
	if rueidis.IsRedisNil(err) {
		return false, nil
	}
	if err != nil || holder != instanceID {
		return false, err
	}

	extended, err := r.client.Do(ctx, r.client.B().Expire().Key(key).Seconds(int64(ttlSeconds)).Build()).AsInt64()
	return extended == 1, err
}

func (r *RueidisCache) GetJSON(key string, target any) (bool, error) {
	ctx := context.Background()
	raw, err := r.client.Do(ctx, r.client.B().Get().Key(key).Build()).AsBytes()
	if rueidis.IsRedisNil(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err = json.Unmarshal(raw, target); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (r *RueidisCache) SetJSON(key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	ctx := context.Background()
	return r.client.Do(ctx, r.client.B().Set().Key(key).Value(rueidis.BinaryString(raw)).Ex(ttl).Build()).Error()
}

func (r *RueidisCache) Close() error {
	r.client.Close()
	return nil
}
