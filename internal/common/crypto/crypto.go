// Package crypto 提供密码哈希与敏感信息脱敏工具
package crypto

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPassword 对密码进行哈希
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// VerifyPassword 验证密码
func VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// MaskBankCard 银行卡号脱敏
// 对外接口只回显首尾各四位，打款走的是库内原值。
func MaskBankCard(cardNo string) string {
	if len(cardNo) < 8 {
		return cardNo
	}
	return cardNo[:4] + " **** **** " + cardNo[len(cardNo)-4:]
}
