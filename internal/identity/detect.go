package identity

import (
	"strings"
	"time"
)

// 多语言拦截/验证码页面特征
var botPhrases = []string{
	"captcha",
	"access denied",
	"acceso denegado",
	"zugriff verweigert",
	"accès refusé",
	"acces refuse",
	"accesso negato",
	"accès interdit",
	"you have been blocked",
	"sorry, you have been blocked",
	"security check",
	"unusual traffic",
	"verify you are human",
	"verifica que eres humano",
	"are you a robot",
	"checking your browser",
	"protected by recaptcha",
	"attention required",
	"request unsuccessful",
	"please enable cookies",
	"challenge-platform",
}

type challengeProvider struct {
	name     string
	markers  []string
	cooldown time.Duration
}

var challengeProviders = []challengeProvider{
	{"cloudflare", []string{"cloudflare", "cf-chl", "challenge-platform", "cf-ray"}, 300 * time.Second},
	{"imperva", []string{"incapsula", "imperva", "_incap_"}, 600 * time.Second},
	{"datadome", []string{"datadome"}, 180 * time.Second},
	{"perimeterx", []string{"perimeterx", "px-captcha", "_pxhd"}, 240 * time.Second},
	{"hcaptcha", []string{"hcaptcha"}, 120 * time.Second},
	{"recaptcha", []string{"recaptcha", "g-recaptcha"}, 120 * time.Second},
}

// DefaultChallengeCooldown 未识别厂商时的冷却时间
const DefaultChallengeCooldown = 300 * time.Second

// IsBotDetectionResponse 判断响应内容是否为反爬拦截页（不区分大小写）
func IsBotDetectionResponse(body string) bool {
	s := strings.ToLower(body)
	for _, p := range botPhrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	// 仅包含裸脚本标签的极短页面通常是JS挑战；带 type 的 JSON-LD 不算
	return len(s) < 500 && strings.Contains(s, "<script>")
}

// DetectChallenge 识别拦截厂商，未识别返回空串
func DetectChallenge(body string) string {
	s := strings.ToLower(body)
	for _, p := range challengeProviders {
		for _, m := range p.markers {
			if strings.Contains(s, m) {
				return p.name
			}
		}
	}
	return ""
}

// ChallengeCooldown 不同厂商建议的冷却时间
func ChallengeCooldown(provider string) time.Duration {
	for _, p := range challengeProviders {
		if p.name == provider {
			return p.cooldown
		}
	}
	return DefaultChallengeCooldown
}
