package validation

import (
	"strings"
	"testing"
	"time"
)

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		valid  bool
		reason Reason
	}{
		{name: "plain", text: "The garbage on road 5 was not collected", valid: true},
		{name: "empty", text: "", reason: ReasonEmpty},
		{name: "whitespace only", text: " \n\t ", reason: ReasonEmpty},
		{name: "max length", text: strings.Repeat("ab ", 1666) + "ab", valid: true},
		{name: "too long", text: strings.Repeat("x ", 2500) + "y", reason: ReasonTooLong},
		{name: "twenty five repeated chars", text: strings.Repeat("a", 25), reason: ReasonSpam},
		{name: "fifteen repeated chars", text: strings.Repeat("a", 15), valid: true},
		{name: "twenty one mixed case", text: strings.Repeat("aA", 10) + "a", reason: ReasonSpam},
		{name: "twenty repeated chars", text: strings.Repeat("z", 20), valid: true},
		{name: "five urls", text: "http://a.io https://b.io http://c.io http://d.io http://e.io", reason: ReasonSpam},
		{name: "four urls", text: "http://a.io https://b.io http://c.io http://d.io", valid: true},
		{name: "spam phrase", text: "CLICK HERE for a prize", reason: ReasonSpam},
		{name: "phrase inside word", text: "doubleclick here is fine", valid: true},
		{name: "word repeated eleven times", text: strings.TrimSpace(strings.Repeat("drain ", 11)), reason: ReasonRepetition},
		{name: "word repeated ten times", text: strings.TrimSpace(strings.Repeat("drain ", 10)), valid: true},
		{name: "short word repeated", text: strings.TrimSpace(strings.Repeat("bin ", 30)), valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateMessage(tt.text)
			if got.Valid != tt.valid {
				t.Fatalf("ValidateMessage valid = %v, want %v (%s)", got.Valid, tt.valid, got.Error)
			}
			if !tt.valid && got.Reason != tt.reason {
				t.Fatalf("reason = %s, want %s", got.Reason, tt.reason)
			}
			if !tt.valid && got.Error == "" {
				t.Fatal("expected error message")
			}
		})
	}
}

func TestValidateMessageLengthCountsCharacters(t *testing.T) {
	bengali := strings.Repeat("অ", MaxMessageLength)
	if res := ValidateMessage(bengali); res.Reason == ReasonTooLong {
		t.Fatal("5000 multi-byte characters should not exceed the limit")
	}
	if res := ValidateMessage(bengali + "আ"); res.Reason != ReasonTooLong {
		t.Fatalf("expected too_long, got %+v", res)
	}
}

func TestSanitizeMessage(t *testing.T) {
	tests := map[string]string{
		"  hello   world  ":         "hello world",
		"a\x00b":                    "ab",
		"line1\n\n\n\n\n\nline2":    "line1\n\n\nline2",
		"line1 \n \n line2":         "line1\n\nline2",
		"tab\tseparated\r\nwindows": "tab separated\nwindows",
		"\x00\x00":                  "",
	}
	for in, want := range tests {
		if got := SanitizeMessage(in); got != want {
			t.Fatalf("SanitizeMessage(%q) = %q, want %q", in, got, want)
		}
	}
}

func FuzzSanitizeMessageIdempotent(f *testing.F) {
	for _, seed := range []string{"", " a ", "x\n\n\n\n\ny", "\x00 \x00\n", "a  b", "\r\n\r\n\r\n\r\n"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, in string) {
		once := SanitizeMessage(in)
		if twice := SanitizeMessage(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	})
}

func TestValidateImageURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"", true},
		{"https://x.com/a.jpg", true},
		{"http://cdn.example.com/photos/A.PNG", true},
		{"ftp://x.com/a.jpg", false},
		{"https://x.com/a.bmp", false},
		{"/relative/a.jpg", false},
		{"https:///a.jpg", false},
	}
	for _, tt := range tests {
		if got := ValidateImageURL(tt.url); got.Valid != tt.valid {
			t.Fatalf("ValidateImageURL(%q) = %+v, want valid=%v", tt.url, got, tt.valid)
		}
	}
	if got := ValidateImageURL("ftp://x.com/a.jpg"); got.Error != "Invalid image URL protocol" {
		t.Fatalf("unexpected error %q", got.Error)
	}
}

func TestValidateVoiceURL(t *testing.T) {
	for _, u := range []string{"", "https://x.com/v.mp3", "https://x.com/v.m4a", "https://x.com/v.mp4"} {
		if !ValidateVoiceURL(u).Valid {
			t.Fatalf("expected %q to be valid", u)
		}
	}
	for _, u := range []string{"https://x.com/v.jpg", "mailto:a@b.c", "x.com/v.mp3"} {
		if ValidateVoiceURL(u).Valid {
			t.Fatalf("expected %q to be invalid", u)
		}
	}
}

func TestDetectSuspiciousActivity(t *testing.T) {
	now := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	old := now.Add(-10 * time.Minute)

	msgs := func(n int, at time.Time, text func(i int) string) []RecentMessage {
		out := make([]RecentMessage, n)
		for i := range out {
			out[i] = RecentMessage{Message: text(i), CreatedAt: at}
		}
		return out
	}
	distinct := func(i int) string { return strings.Repeat("m", i+1) }
	same := func(int) string { return "help" }

	if DetectSuspiciousActivity(msgs(4, now, same), now) {
		t.Fatal("fewer than five messages should never be suspicious")
	}
	if !DetectSuspiciousActivity(msgs(5, old, same), now) {
		t.Fatal("five identical messages should be suspicious")
	}
	if DetectSuspiciousActivity(msgs(10, now, distinct), now) {
		t.Fatal("ten messages in a minute is allowed")
	}
	if !DetectSuspiciousActivity(msgs(11, now.Add(-30*time.Second), distinct), now) {
		t.Fatal("eleven messages in a minute should be suspicious")
	}
	if DetectSuspiciousActivity(msgs(15, old, distinct), now) {
		t.Fatal("old distinct messages should not be suspicious")
	}
}

func TestStats(t *testing.T) {
	stats := Stats("see https://x.io\nnow 😀")
	if stats.Words != 4 || stats.Lines != 2 || !stats.HasURLs || !stats.HasEmojis {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
