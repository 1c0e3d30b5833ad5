// Package analytics records privacy-first post view counts. Visitors are
// identified only by a salted hash of IP and User-Agent; bots are counted
// separately and Do Not Track is honoured.
package analytics

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// View is one counted read of a post.
type View struct {
	PostID    string
	Slug      string
	VisitorID string
	IPHash    string
	Browser   string
	OS        string
	Device    string
	Referrer  string
	Timestamp time.Time
}

// BotView is a crawler hit on a post page.
type BotView struct {
	PostID    string
	BotName   string
	IPHash    string
	UserAgent string
	Timestamp time.Time
}

// DailyView is the view count for one day.
type DailyView struct {
	Date  string
	Views int
}

// PostStats summarises the views of one post.
type PostStats struct {
	PostID         string
	Views          int
	UniqueVisitors int
	TopReferrers   []DimensionStat
	Daily          []DailyView
}

// DimensionStat is a named count (referrer, browser).
type DimensionStat struct {
	Name  string
	Count int
}

// LoadSalt returns the per-installation hashing salt, generating and
// persisting one on first use.
func LoadSalt(ctx context.Context, store *Store) (string, error) {
	s, err := store.GetSetting(ctx, "hash_salt")
	if err != nil {
		return "", fmt.Errorf("read hash salt: %w", err)
	}
	if s != "" {
		return s, nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	s = hex.EncodeToString(b)
	if err := store.SetSetting(ctx, "hash_salt", s); err != nil {
		return "", fmt.Errorf("store hash salt: %w", err)
	}
	return s, nil
}

// HashIP creates a salted SHA-256 hash of an IP address.
func HashIP(salt, ip string) string {
	h := sha256.New()
	h.Write([]byte(salt + ip))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// VisitorID derives an anonymous visitor id from IP and User-Agent.
func VisitorID(salt, ip, userAgent string) string {
	h := sha256.New()
	h.Write([]byte(salt + ip + "|" + userAgent))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ParseUserAgent extracts browser, OS, and device from a User-Agent string.
func ParseUserAgent(ua string) (browser, os, device string) {
	ua = strings.ToLower(ua)

	// more specific patterns first: Edge and Opera UAs also contain "chrome"
	switch {
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr/"):
		browser = "Opera"
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	default:
		browser = "Other"
	}

	// Android UAs contain "linux"
	switch {
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		os = "iOS"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	default:
		os = "Other"
	}

	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		device = "Tablet"
	case strings.Contains(ua, "mobile"):
		device = "Mobile"
	default:
		device = "Desktop"
	}
	return
}

var botPatterns = []struct {
	pattern string
	name    string
}{
	{"googlebot", "Googlebot"},
	{"bingbot", "Bingbot"},
	{"yandex", "Yandex"},
	{"baidu", "Baidu"},
	{"duckduckbot", "DuckDuckBot"},
	{"facebookexternalhit", "Facebook"},
	{"twitterbot", "Twitterbot"},
	{"linkedinbot", "LinkedIn"},
	{"telegrambot", "Telegram"},
	{"whatsapp", "WhatsApp"},
	{"slackbot", "Slack"},
	{"discordbot", "Discord"},
	{"ahrefsbot", "Ahrefs"},
	{"semrushbot", "SEMrush"},
	{"gptbot", "GPTBot"},
	{"slurp", "Yahoo Slurp"},
	{"crawler", "Generic Crawler"},
	{"spider", "Generic Spider"},
}

// IsBot reports whether the User-Agent is likely a crawler or link unfurler.
// Share links to chat apps trigger these, so they must not count as reads.
func IsBot(ua string) bool {
	if strings.TrimSpace(ua) == "" {
		return true
	}
	ua = strings.ToLower(ua)
	if strings.Contains(ua, "bot") || strings.Contains(ua, "crawl") || strings.Contains(ua, "scrape") {
		return true
	}
	for _, p := range botPatterns {
		if strings.Contains(ua, p.pattern) {
			return true
		}
	}
	return false
}

// BotName names the crawler behind ua.
func BotName(ua string) string {
	ua = strings.ToLower(ua)
	for _, p := range botPatterns {
		if strings.Contains(ua, p.pattern) {
			return p.name
		}
	}
	if strings.Contains(ua, "bot") {
		return "Other Bot"
	}
	return "Unknown"
}

var referrerDomainRegex = regexp.MustCompile(`^https?://(?:www\.)?([^/:]+)`)

// CleanReferrer reduces a referrer URL to a display name.
func CleanReferrer(ref, siteHost string) string {
	if ref == "" {
		return "Direct"
	}
	m := referrerDomainRegex.FindStringSubmatch(ref)
	if len(m) < 2 {
		return "Other"
	}
	host := strings.ToLower(m[1])
	switch {
	case siteHost != "" && host == strings.ToLower(siteHost):
		return "Internal"
	case strings.Contains(host, "google."):
		return "Google"
	case strings.Contains(host, "bing."):
		return "Bing"
	case strings.Contains(host, "duckduckgo."):
		return "DuckDuckGo"
	case strings.Contains(host, "github."):
		return "GitHub"
	case host == "t.co" || strings.Contains(host, "twitter.") || host == "x.com":
		return "Twitter"
	case strings.Contains(host, "linkedin."):
		return "LinkedIn"
	case strings.Contains(host, "facebook."):
		return "Facebook"
	}
	return host
}
