package moderation

import (
	"regexp"
	"strings"
)

// 内容审核过滤器。对提交的标题和正文做敏感词扫描：
// 命中的词在落库前被替换为掩码，同时为该预测打上 contains_profanity 标记，
// 供 safe_search 过滤使用。原始未打码文本不会被保留。

// censorMask 是所有命中词统一替换成的掩码
const censorMask = "****"

// baseLexicon 是内置的基础词表，可通过配置追加自定义词
var baseLexicon = []string{
	"ass",
	"asshole",
	"bastard",
	"bitch",
	"bullshit",
	"crap",
	"cunt",
	"damn",
	"dick",
	"douche",
	"fuck",
	"piss",
	"prick",
	"shit",
	"slut",
	"whore",
}

// Filter 持有编译好的词表匹配器。匹配是整词、大小写不敏感的。
type Filter struct {
	pattern *regexp.Regexp
}

// NewFilter 用基础词表加上自定义扩展词构建一个过滤器。
func NewFilter(customWords []string) *Filter {
	words := make([]string, 0, len(baseLexicon)+len(customWords))
	seen := make(map[string]bool)
	for _, w := range append(append([]string{}, baseLexicon...), customWords...) {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, regexp.QuoteMeta(w))
	}

	// 整词匹配，忽略大小写
	pattern := regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)\b`)
	return &Filter{pattern: pattern}
}

// Censor 返回打码后的文本，以及原文是否命中词表。
func (f *Filter) Censor(text string) (censored string, containsProfanity bool) {
	if !f.pattern.MatchString(text) {
		return text, false
	}
	return f.pattern.ReplaceAllString(text, censorMask), true
}

// --- 全局默认过滤器 ---

var defaultFilter = NewFilter(nil)

// Initialize 用配置中的自定义词表重建全局过滤器。
// 在应用启动时调用一次。
func Initialize(customWords []string) {
	defaultFilter = NewFilter(customWords)
}

// Censor 使用全局过滤器打码文本。
func Censor(text string) (string, bool) {
	return defaultFilter.Censor(text)
}
