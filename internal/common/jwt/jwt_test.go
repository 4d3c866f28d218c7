// Package jwt 令牌管理单元测试
package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestManager 创建测试用的 JWT Manager
func setupTestManager() *Manager {
	config := &Config{
		Secret:            "test-secret-key-for-jwt-token-signing",
		AccessExpireTime:  15 * time.Minute,
		RefreshExpireTime: 7 * 24 * time.Hour,
		Issuer:            "test-issuer",
	}
	return NewManager(config)
}

// ==================== NewManager 测试 ====================

func TestNewManager(t *testing.T) {
	config := &Config{
		Secret:            "secret",
		AccessExpireTime:  time.Hour,
		RefreshExpireTime: 24 * time.Hour,
		Issuer:            "test",
	}

	manager := NewManager(config)
	assert.NotNil(t, manager)
	assert.Equal(t, config, manager.config)
}

// ==================== IssuePair 测试 ====================

func TestManager_IssuePair_Success(t *testing.T) {
	manager := setupTestManager()

	tests := []struct {
		name      string
		actorID   int64
		actorType string
		role      string
	}{
		{"卖家令牌", 12345, ActorSeller, ""},
		{"配送员令牌", 54321, ActorPartner, ""},
		{"管理员令牌", 99999, ActorAdmin, "finance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenPair, err := manager.IssuePair(tt.actorID, tt.actorType, tt.role)
			require.NoError(t, err)
			assert.NotNil(t, tokenPair)
			assert.NotEmpty(t, tokenPair.AccessToken)
			assert.NotEmpty(t, tokenPair.RefreshToken)
			assert.Greater(t, tokenPair.ExpiresAt, time.Now().Unix())

			// access token 和 refresh token 过期时间不同，内容必定不同
			assert.NotEqual(t, tokenPair.AccessToken, tokenPair.RefreshToken)

			claims, err := manager.Parse(tokenPair.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, tt.actorID, claims.ActorID)
			assert.Equal(t, tt.actorType, claims.ActorType)
			assert.Equal(t, tt.role, claims.Role)

			refreshClaims, err := manager.Parse(tokenPair.RefreshToken)
			require.NoError(t, err)
			assert.Equal(t, tt.actorID, refreshClaims.ActorID)
		})
	}
}

func TestManager_IssuePair_ExpiryTime(t *testing.T) {
	manager := setupTestManager()

	tokenPair, err := manager.IssuePair(123, ActorSeller, "")
	require.NoError(t, err)

	// ExpiresAt 应该是大约 15 分钟后
	expectedExpireAt := time.Now().Add(15 * time.Minute).Unix()
	assert.InDelta(t, expectedExpireAt, tokenPair.ExpiresAt, 5) // 允许5秒误差
}

// ==================== Parse 测试 ====================

func TestManager_Parse_Success(t *testing.T) {
	manager := setupTestManager()

	tokenPair, err := manager.IssuePair(99999, ActorAdmin, "super_admin")
	require.NoError(t, err)

	claims, err := manager.Parse(tokenPair.AccessToken)
	require.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, int64(99999), claims.ActorID)
	assert.Equal(t, ActorAdmin, claims.ActorType)
	assert.Equal(t, "super_admin", claims.Role)
	assert.Equal(t, manager.config.Issuer, claims.Issuer)
	assert.Equal(t, ActorAdmin, claims.Subject)
}

func TestManager_Parse_InvalidToken(t *testing.T) {
	manager := setupTestManager()

	tests := []struct {
		name  string
		token string
	}{
		{"空令牌", ""},
		{"非法格式", "invalid.token.format"},
		{"随机字符串", "this-is-not-a-jwt-token"},
		{"不完整的JWT", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := manager.Parse(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
			assert.Equal(t, ErrTokenMalformed, err)
		})
	}
}

func TestManager_Parse_WrongSecret(t *testing.T) {
	// 用一个 secret 签发
	manager1 := NewManager(&Config{
		Secret:            "secret-1",
		AccessExpireTime:  time.Hour,
		RefreshExpireTime: 24 * time.Hour,
		Issuer:            "test",
	})

	tokenPair, err := manager1.IssuePair(123, ActorSeller, "")
	require.NoError(t, err)

	// 用另一个 secret 解析
	manager2 := NewManager(&Config{
		Secret:            "secret-2",
		AccessExpireTime:  time.Hour,
		RefreshExpireTime: 24 * time.Hour,
		Issuer:            "test",
	})

	claims, err := manager2.Parse(tokenPair.AccessToken)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestManager_Parse_ExpiredToken(t *testing.T) {
	manager := NewManager(&Config{
		Secret:            "test-secret",
		AccessExpireTime:  1 * time.Millisecond,
		RefreshExpireTime: 1 * time.Millisecond,
		Issuer:            "test",
	})

	tokenPair, err := manager.IssuePair(123, ActorPartner, "")
	require.NoError(t, err)

	// 等待令牌过期
	time.Sleep(10 * time.Millisecond)

	claims, err := manager.Parse(tokenPair.AccessToken)
	assert.Error(t, err)
	assert.Equal(t, ErrTokenExpired, err)
	assert.Nil(t, claims)
}

// ==================== Refresh 测试 ====================

func TestManager_Refresh_Success(t *testing.T) {
	manager := setupTestManager()

	originalPair, err := manager.IssuePair(12345, ActorPartner, "")
	require.NoError(t, err)

	// refresh token 是完整会话声明，换发后主体信息保持不变
	newPair, err := manager.Refresh(originalPair.RefreshToken)
	require.NoError(t, err)
	assert.NotNil(t, newPair)
	assert.NotEmpty(t, newPair.AccessToken)
	assert.NotEmpty(t, newPair.RefreshToken)

	claims, err := manager.Parse(newPair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), claims.ActorID)
	assert.Equal(t, ActorPartner, claims.ActorType)
}

func TestManager_Refresh_InvalidToken(t *testing.T) {
	manager := setupTestManager()

	newPair, err := manager.Refresh("invalid-refresh-token")
	assert.Error(t, err)
	assert.Nil(t, newPair)
}

func TestManager_Refresh_ExpiredToken(t *testing.T) {
	manager := NewManager(&Config{
		Secret:            "test-secret",
		AccessExpireTime:  1 * time.Millisecond,
		RefreshExpireTime: 1 * time.Millisecond,
		Issuer:            "test",
	})

	tokenPair, err := manager.IssuePair(123, ActorSeller, "")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	newPair, err := manager.Refresh(tokenPair.RefreshToken)
	assert.Error(t, err)
	assert.Equal(t, ErrTokenExpired, err)
	assert.Nil(t, newPair)
}

// ==================== 边界条件测试 ====================

func TestManager_TokenWithZeroActorID(t *testing.T) {
	manager := setupTestManager()

	tokenPair, err := manager.IssuePair(0, ActorSeller, "")
	require.NoError(t, err)

	claims, err := manager.Parse(tokenPair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(0), claims.ActorID)
}

func TestManager_TokenWithEmptyRole(t *testing.T) {
	manager := setupTestManager()

	tokenPair, err := manager.IssuePair(123, ActorPartner, "")
	require.NoError(t, err)

	claims, err := manager.Parse(tokenPair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "", claims.Role)
}

// ==================== 性能测试 ====================

func BenchmarkIssuePair(b *testing.B) {
	manager := setupTestManager()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = manager.IssuePair(12345, ActorSeller, "")
	}
}

func BenchmarkParse(b *testing.B) {
	manager := setupTestManager()
	tokenPair, _ := manager.IssuePair(12345, ActorSeller, "")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = manager.Parse(tokenPair.AccessToken)
	}
}
