package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// SaveToRedis caches each record as JSON under {prefix}{key} with a TTL,
// plus a {prefix}latest_run summary the booking dashboard polls.
type SaveToRedis struct {
	client    *redis.Client
	keyPrefix string
	keyField  string
	ttl       time.Duration
}

type redisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
	KeyField  string
	TTLHours  int
}

func NewSaveToRedis(config map[string]interface{}) (*SaveToRedis, error) {
	redisConfig, err := parseRedisConfig(config)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Address,
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &SaveToRedis{
		client:    client,
		keyPrefix: redisConfig.KeyPrefix,
		keyField:  redisConfig.KeyField,
		ttl:       time.Duration(redisConfig.TTLHours) * time.Hour,
	}, nil
}

func parseRedisConfig(config map[string]interface{}) (redisConfig, error) {
	var cfg redisConfig

	addr, ok := types.GetString(config, "address")
	if !ok {
		return cfg, fmt.Errorf("missing Redis address")
	}
	cfg.Address = addr

	cfg.Password, _ = types.GetString(config, "password")

	if db, ok := types.GetInt(config, "db"); ok {
		cfg.DB = db
	}

	if prefix, ok := types.GetString(config, "key_prefix"); ok {
		cfg.KeyPrefix = prefix
	} else {
		cfg.KeyPrefix = "trilha:"
	}

	keyField, ok := types.GetString(config, "key_field")
	if !ok {
		return cfg, fmt.Errorf("missing key_field in config")
	}
	cfg.KeyField = keyField

	if ttl, ok := types.GetInt(config, "ttl_hours"); ok {
		cfg.TTLHours = ttl
	} else {
		cfg.TTLHours = 24
	}

	return cfg, nil
}

func (c *SaveToRedis) Name() string {
	return "SaveToRedis"
}

func (c *SaveToRedis) Load(ctx context.Context, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, rec := range records {
		key, err := recordKey(rec, c.keyField)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", key, err)
		}
		pipe.Set(ctx, c.keyPrefix+key, payload, c.ttl)
	}

	summary, err := json.Marshal(map[string]interface{}{
		"records":   len(records),
		"loaded_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	pipe.Set(ctx, c.keyPrefix+"latest_run", summary, c.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}

	log.Printf("[INFO] SaveToRedis cached %d records under %s*", len(records), c.keyPrefix)
	return nil
}

func (c *SaveToRedis) Close() error {
	return c.client.Close()
}
