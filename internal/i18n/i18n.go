package i18n

import (
	"fmt"
	"strings"

	"github.com/gocart-next/internal/constants"

	"github.com/gin-gonic/gin"
)

// DefaultLocale 默认站点语言
const DefaultLocale = constants.LocaleZhCN

// ResolveLocale 解析请求语言：lang 查询参数优先，其次 Accept-Language，最后回退默认。
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return DefaultLocale
	}
	if lang := normalizeLocale(c.Query("lang")); lang != "" {
		return lang
	}
	accept := c.GetHeader("Accept-Language")
	for _, part := range strings.Split(accept, ",") {
		if idx := strings.Index(part, ";"); idx >= 0 {
			part = part[:idx]
		}
		if lang := normalizeLocale(part); lang != "" {
			return lang
		}
	}
	return DefaultLocale
}

// T 翻译消息键；缺失时逐级回退（当前语言 -> 默认语言 -> 键本身）。
func T(locale, key string) string {
	if messages, ok := catalog[locale]; ok {
		if msg, ok := messages[key]; ok {
			return msg
		}
	}
	if locale != DefaultLocale {
		if msg, ok := catalog[DefaultLocale][key]; ok {
			return msg
		}
	}
	return key
}

// Sprintf 翻译带占位符的消息键并格式化。
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

func normalizeLocale(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "zh"):
		return constants.LocaleZhCN
	case strings.HasPrefix(lower, "en"):
		return constants.LocaleEnUS
	default:
		return ""
	}
}
