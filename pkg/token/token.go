package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// secretKey 是一个全局变量，用于存储服务器在启动时生成的32字节密钥。
// 密钥每次启动重新生成，重启会使所有已签发的令牌失效。
var secretKey []byte

// GenerateSecretKey 生成一个密码学安全的32字节随机密钥。
func GenerateSecretKey() {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	if err != nil {
		panic("无法生成安全的密钥: " + err.Error())
	}
	secretKey = key
	fmt.Println("访问令牌签名密钥已成功生成。")
}

// IssueAccessToken 为指定用户签发一个HS256访问令牌。
func IssueAccessToken(userID uint, ttl time.Duration) (string, error) {
	if len(secretKey) == 0 {
		return "", errors.New("签名密钥尚未初始化")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("无法签发访问令牌: %w", err)
	}
	return signed, nil
}

// ParseAccessToken 验证令牌签名和有效期，并返回其中的用户ID。
func ParseAccessToken(tokenString string) (uint, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("不支持的签名算法: %v", t.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil {
		return 0, fmt.Errorf("访问令牌无效: %w", err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return 0, errors.New("访问令牌无效")
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, errors.New("访问令牌的subject不是有效的用户ID")
	}
	return uint(userID), nil
}
