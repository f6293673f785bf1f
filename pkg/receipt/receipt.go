package receipt

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

// 本包实现预测的防篡改回执指纹。
//
// 规范序列化格式（回执验证契约，任何第三方都可以据此独立复算）：
//
//	"<作者ID>:<标题>:<内容>:<创建时间 UTC RFC3339Nano>"
//
// 对该字符串取SHA-256，得到64位小写十六进制摘要。
// 摘要在预测创建时计算一次，之后永不重算；标题和内容不可编辑，
// 因此同一条预测的回执在其整个生命周期内保持稳定。

// VerificationURLTemplate 是回执中对外展示的人类可读验证地址模板
const VerificationURLTemplate = "https://callingitnow.com/predictions/%d"

// Compute 根据四个输入字段计算预测的内容指纹。
// 相同输入永远得到相同摘要；时间统一转换为UTC，避免时区影响结果。
func Compute(authorID uint, title, content string, createdAt time.Time) string {
	payload := fmt.Sprintf("%d:%s:%s:%s", authorID, title, content, createdAt.UTC().Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Verify 重新计算指纹并与存储值比较，用于回执校验。
// 使用恒定时间比较，避免逐字节早退的时序差异。
func Verify(authorID uint, title, content string, createdAt time.Time, storedHash string) bool {
	expected := Compute(authorID, title, content, createdAt)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(storedHash)) == 1
}

// VerificationURL 生成某条预测的验证地址
func VerificationURL(predictionID uint) string {
	return fmt.Sprintf(VerificationURLTemplate, predictionID)
}
