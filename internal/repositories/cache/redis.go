package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"custodia/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func NewRedisClient(cfg *RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

const walletTTL = 5 * time.Minute

// WalletCache is a cache-aside layer for wallet reads. Writers must
// invalidate after every balance mutation.
type WalletCache struct {
	client *redis.Client
}

func NewWalletCache(client *redis.Client) *WalletCache {
	return &WalletCache{client: client}
}

func walletKey(userID, symbol string) string {
	return fmt.Sprintf("wallet:%s:%s", userID, symbol)
}

func (c *WalletCache) GetWallet(ctx context.Context, userID, symbol string) (*models.Wallet, error) {
	val, err := c.client.Get(ctx, walletKey(userID, symbol)).Result()
	if err != nil {
		return nil, err
	}
	var wallet models.Wallet
	if err := json.Unmarshal([]byte(val), &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (c *WalletCache) SetWallet(ctx context.Context, wallet *models.Wallet) error {
	data, err := json.Marshal(wallet)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, walletKey(wallet.UserID, wallet.Symbol), data, walletTTL).Err()
}

func (c *WalletCache) InvalidateWallet(ctx context.Context, userID, symbol string) error {
	return c.client.Del(ctx, walletKey(userID, symbol)).Err()
}

func (c *WalletCache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

func (c *WalletCache) Close() error {
	return c.client.Close()
}

// Lease is a coarse SetNX lock. Scheduler and yield runs take one so
// concurrently running instances do not process the same batch.
type Lease struct {
	client *redis.Client
}

func NewLease(client *redis.Client) *Lease {
	return &Lease{client: client}
}

// Acquire returns true when this caller owns the lease for ttl.
func (l *Lease) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, "lease:"+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}
	return ok, nil
}

// Release drops the lease early.
func (l *Lease) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, "lease:"+key).Err()
}
