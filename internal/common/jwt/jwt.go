// Package jwt 提供登录态令牌的签发与校验
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 会话主体类型（封闭集合，鉴权中间件按此区分访问面）
const (
	ActorSeller  = "seller"
	ActorPartner = "partner"
	ActorAdmin   = "admin"
)

// Claims 会话声明
type Claims struct {
	ActorID   int64  `json:"actor_id"`
	ActorType string `json:"actor_type"` // seller, partner, admin
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Config 令牌配置
type Config struct {
	Secret            string
	AccessExpireTime  time.Duration
	RefreshExpireTime time.Duration
	Issuer            string
}

// Manager 令牌管理器
type Manager struct {
	config *Config
}

// TokenPair 令牌对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// 预定义错误
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenNotActive = errors.New("token not active yet")
)

// NewManager 创建令牌管理器
func NewManager(config *Config) *Manager {
	return &Manager{
		config: config,
	}
}

// IssuePair 为指定主体签发访问/刷新令牌对
func (m *Manager) IssuePair(actorID int64, actorType, role string) (*TokenPair, error) {
	now := time.Now()
	accessExpireAt := now.Add(m.config.AccessExpireTime)
	refreshExpireAt := now.Add(m.config.RefreshExpireTime)

	accessToken, err := m.issue(actorID, actorType, role, accessExpireAt)
	if err != nil {
		return nil, err
	}

	refreshToken, err := m.issue(actorID, actorType, role, refreshExpireAt)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExpireAt.Unix(),
	}, nil
}

func (m *Manager) issue(actorID int64, actorType, role string, expireAt time.Time) (string, error) {
	claims := &Claims{
		ActorID:   actorID,
		ActorType: actorType,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   actorType,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expireAt),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.Secret))
}

// Parse 解析并校验令牌
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(m.config.Secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrTokenMalformed
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotActive
		}
		return nil, ErrTokenInvalid
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrTokenInvalid
}

// Refresh 用刷新令牌换发新令牌对
func (m *Manager) Refresh(refreshTokenString string) (*TokenPair, error) {
	claims, err := m.Parse(refreshTokenString)
	if err != nil {
		return nil, err
	}

	return m.IssuePair(claims.ActorID, claims.ActorType, claims.Role)
}
