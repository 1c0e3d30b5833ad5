package analytics

import "testing"

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		ua                  string
		browser, os, device string
	}{
		{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			"Chrome", "Windows", "Desktop",
		},
		{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 Edg/120.0",
			"Edge", "Windows", "Desktop",
		},
		{
			"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			"Firefox", "Linux", "Desktop",
		},
		{
			"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36",
			"Chrome", "Android", "Mobile",
		},
		{
			"Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			"Safari", "iOS", "Tablet",
		},
	}
	for _, tt := range tests {
		b, o, d := ParseUserAgent(tt.ua)
		if b != tt.browser || o != tt.os || d != tt.device {
			t.Errorf("ParseUserAgent(%q) = %s/%s/%s, want %s/%s/%s", tt.ua, b, o, d, tt.browser, tt.os, tt.device)
		}
	}
}

func TestIsBot(t *testing.T) {
	bots := []string{
		"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
		"TelegramBot (like TwitterBot)",
		"WhatsApp/2.23.20.0",
		"facebookexternalhit/1.1",
		"",
	}
	for _, ua := range bots {
		if !IsBot(ua) {
			t.Errorf("IsBot(%q) = false, want true", ua)
		}
	}
	if IsBot("Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0") {
		t.Error("Firefox flagged as bot")
	}
}

func TestBotName(t *testing.T) {
	tests := map[string]string{
		"Mozilla/5.0 (compatible; Googlebot/2.1)": "Googlebot",
		"LinkedInBot/1.0":                         "LinkedIn",
		"SomeRandomBot/0.1":                       "Other Bot",
		"curl/8.0":                                "Unknown",
	}
	for ua, want := range tests {
		if got := BotName(ua); got != want {
			t.Errorf("BotName(%q) = %q, want %q", ua, got, want)
		}
	}
}

func TestCleanReferrer(t *testing.T) {
	tests := []struct {
		ref, want string
	}{
		{"", "Direct"},
		{"https://www.google.com/search?q=go", "Google"},
		{"https://t.co/abc", "Twitter"},
		{"https://blog.example.com/blogs/", "Internal"},
		{"https://news.ycombinator.com/item?id=1", "news.ycombinator.com"},
		{"not a url", "Other"},
	}
	for _, tt := range tests {
		if got := CleanReferrer(tt.ref, "blog.example.com"); got != tt.want {
			t.Errorf("CleanReferrer(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestHashingIsSalted(t *testing.T) {
	if HashIP("a", "203.0.113.1") == HashIP("b", "203.0.113.1") {
		t.Error("HashIP ignores salt")
	}
	if got := len(VisitorID("s", "203.0.113.1", "ua")); got != 16 {
		t.Errorf("VisitorID length = %d, want 16", got)
	}
}
