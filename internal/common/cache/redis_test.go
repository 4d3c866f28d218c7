// Package cache Redis 缓存模块单元测试
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/config"
)

// setupMiniRedis 创建 miniredis 测试实例
func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// setupTestRedis 初始化测试 Redis 客户端
func setupTestRedis(t *testing.T, s *miniredis.Miniredis) {
	rdb = redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
		rdb = nil
	})
}

// ==================== Init 函数测试 ====================

func TestInit_Success(t *testing.T) {
	s := setupMiniRedis(t)

	cfg := &config.RedisConfig{
		Host:         s.Host(),
		Port:         s.Server().Addr().Port,
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5,
		ReadTimeout:  3,
		WriteTimeout: 3,
	}

	client, err := Init(cfg)
	assert.NoError(t, err)
	assert.NotNil(t, client)
	t.Cleanup(func() {
		_ = Close()
	})
}

func TestInit_ConnectionFailed(t *testing.T) {
	cfg := &config.RedisConfig{
		Host:        "invalid-host",
		Port:        9999,
		DialTimeout: 1,
	}

	client, err := Init(cfg)
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "failed to connect redis")
}

// ==================== GetClient / Close 测试 ====================

func TestGetClient(t *testing.T) {
	s := setupMiniRedis(t)
	setupTestRedis(t, s)

	client := GetClient()
	assert.NotNil(t, client)
	assert.Equal(t, rdb, client)
}

func TestClose_WithNilClient(t *testing.T) {
	rdb = nil
	err := Close()
	assert.NoError(t, err)
}

// ==================== Set / Get 测试 ====================

func TestSet_And_Get(t *testing.T) {
	s := setupMiniRedis(t)
	setupTestRedis(t, s)
	ctx := context.Background()

	type balanceSnapshot struct {
		SellerID  int64   `json:"seller_id"`
		Pending   float64 `json:"pending"`
		Available float64 `json:"available"`
	}
	data := balanceSnapshot{SellerID: 1, Pending: 800, Available: 200}

	err := Set(ctx, BuildKey(KeyPrefixBalance, "1"), data, time.Minute)
	assert.NoError(t, err)

	var result balanceSnapshot
	err = Get(ctx, BuildKey(KeyPrefixBalance, "1"), &result)
	assert.NoError(t, err)
	assert.Equal(t, data, result)
}

func TestGet_KeyNotFound(t *testing.T) {
	s := setupMiniRedis(t)
	setupTestRedis(t, s)
	ctx := context.Background()

	var result map[string]string
	err := Get(ctx, "missing:key", &result)
	assert.Error(t, err)
}

func TestSetString_And_GetString(t *testing.T) {
	s := setupMiniRedis(t)
	setupTestRedis(t, s)
	ctx := context.Background()

	err := SetString(ctx, "tier:1", "gold", time.Minute)
	assert.NoError(t, err)

	value, err := GetString(ctx, "tier:1")
	assert.NoError(t, err)
	assert.Equal(t, "gold", value)
}

// ==================== Delete / Exists 测试 ====================

func TestDelete_And_Exists(t *testing.T) {
	s := setupMiniRedis(t)
	setupTestRedis(t, s)
	ctx := context.Background()

	require.NoError(t, SetString(ctx, "seller:1", "cached", time.Minute))

	exists, err := Exists(ctx, "seller:1")
	assert.NoError(t, err)
	assert.True(t, exists)

	assert.NoError(t, Delete(ctx, "seller:1"))

	exists, err = Exists(ctx, "seller:1")
	assert.NoError(t, err)
	assert.False(t, exists)
}

// ==================== 计数器测试 ====================

func TestIncr_And_Decr(t *testing.T) {
	s := setupMiniRedis(t)
	setupTestRedis(t, s)
	ctx := context.Background()

	v, err := Incr(ctx, "ratelimit:ip:127.0.0.1")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = IncrBy(ctx, "ratelimit:ip:127.0.0.1", 5)
	assert.NoError(t, err)
	assert.Equal(t, int64(6), v)

	v, err = Decr(ctx, "ratelimit:ip:127.0.0.1")
	assert.NoError(t, err)
	assert.Equal(t, int64(5), v)
}

func TestSetNX(t *testing.T) {
	s := setupMiniRedis(t)
	setupTestRedis(t, s)
	ctx := context.Background()

	ok, err := SetNX(ctx, "lock:settlement:run", 1, time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok)

	// 已存在的键不可重复抢占
	ok, err = SetNX(ctx, "lock:settlement:run", 1, time.Minute)
	assert.NoError(t, err)
	assert.False(t, ok)
}

// ==================== BuildKey 测试 ====================

func TestBuildKey(t *testing.T) {
	assert.Equal(t, "seller:1", BuildKey(KeyPrefixSeller, "1"))
	assert.Equal(t, "balance:1:pending", BuildKey(KeyPrefixBalance, "1", "pending"))
	assert.Equal(t, "lock:batch:SB123", BuildKey(KeyPrefixLock, "batch", "SB123"))
}
