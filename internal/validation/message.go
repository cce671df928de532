// Package validation checks and normalizes chat message content before it
// is stored. Every function here is pure: no I/O and no clock reads.
package validation

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	MaxMessageLength = 5000

	maxCharRun          = 20
	maxURLs             = 4
	minRepeatedWordLen  = 4
	maxWordRepetitions  = 10
	maxNewlines         = 3
	suspiciousWindow    = 60 * time.Second
	suspiciousBurst     = 10
	suspiciousIdentical = 5
	emojiRangeLo        = 0x1F600
	emojiRangeHi        = 0x1F64F
)

type Reason string

const (
	ReasonEmpty      Reason = "empty"
	ReasonTooLong    Reason = "too_long"
	ReasonSpam       Reason = "spam"
	ReasonRepetition Reason = "repetition"
	ReasonImageURL   Reason = "image_url"
	ReasonVoiceURL   Reason = "voice_url"
	ReasonSuspicious Reason = "suspicious"
)

// Result is the outcome of a single check. Error is only set when Valid is
// false.
type Result struct {
	Valid  bool
	Reason Reason
	Error  string
}

var accepted = Result{Valid: true}

func invalid(reason Reason, msg string) Result {
	return Result{Valid: false, Reason: reason, Error: msg}
}

var (
	urlPattern        = regexp.MustCompile(`(?i)https?://\S+`)
	spamPhrasePattern = regexp.MustCompile(`(?i)\b(buy now|click here|limited offer|act now)\b`)
	imageExtensions   = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	voiceExtensions   = []string{".mp3", ".wav", ".ogg", ".m4a", ".aac", ".mp4"}
)

// ValidateMessage rejects empty, oversized, spam-like and repetitive text.
// Length is counted in characters, not bytes.
func ValidateMessage(text string) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return invalid(ReasonEmpty, "Message cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > MaxMessageLength {
		return invalid(ReasonTooLong, "Message is too long (max 5000 characters)")
	}
	if isSpam(trimmed) {
		return invalid(ReasonSpam, "Message appears to be spam")
	}
	if hasExcessiveRepetition(trimmed) {
		return invalid(ReasonRepetition, "Message contains excessive repetition")
	}
	return accepted
}

func isSpam(text string) bool {
	if longestCharRun(text) > maxCharRun {
		return true
	}
	if len(urlPattern.FindAllStringIndex(text, maxURLs+1)) > maxURLs {
		return true
	}
	return spamPhrasePattern.MatchString(text)
}

// longestCharRun returns the longest run of one character, compared without
// case. Newlines break runs.
func longestCharRun(text string) int {
	longest, current := 0, 0
	var prev rune = -1
	for _, r := range text {
		if r == '\n' {
			prev, current = -1, 0
			continue
		}
		r = unicode.ToLower(r)
		if r == prev {
			current++
		} else {
			prev, current = r, 1
		}
		if current > longest {
			longest = current
		}
	}
	return longest
}

func hasExcessiveRepetition(text string) bool {
	counts := make(map[string]int)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if utf8.RuneCountInString(word) < minRepeatedWordLen {
			continue
		}
		counts[word]++
		if counts[word] > maxWordRepetitions {
			return true
		}
	}
	return false
}

// SanitizeMessage strips NUL bytes, collapses whitespace and trims. A
// whitespace run that contains line breaks keeps up to three of them; any
// other run becomes a single space. SanitizeMessage(SanitizeMessage(x)) ==
// SanitizeMessage(x).
func SanitizeMessage(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")

	var b strings.Builder
	b.Grow(len(text))

	newlines, inRun := 0, false
	flush := func() {
		if !inRun {
			return
		}
		if newlines > 0 {
			b.WriteString(strings.Repeat("\n", min(newlines, maxNewlines)))
		} else {
			b.WriteByte(' ')
		}
		newlines, inRun = 0, false
	}

	for _, r := range text {
		if unicode.IsSpace(r) {
			inRun = true
			if r == '\n' {
				newlines++
			}
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()

	return strings.TrimSpace(b.String())
}

func ValidateImageURL(raw string) Result {
	return validateMediaURL(raw, imageExtensions, ReasonImageURL, "image")
}

func ValidateVoiceURL(raw string) Result {
	return validateMediaURL(raw, voiceExtensions, ReasonVoiceURL, "voice")
}

// validateMediaURL accepts an empty value. Otherwise the URL must be absolute
// http(s) and end in one of the allowed extensions.
func validateMediaURL(raw string, extensions []string, reason Reason, kind string) Result {
	if raw == "" {
		return accepted
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" {
		return invalid(reason, "Invalid "+kind+" URL")
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return invalid(reason, "Invalid "+kind+" URL protocol")
	}
	if parsed.Host == "" {
		return invalid(reason, "Invalid "+kind+" URL")
	}

	lower := strings.ToLower(raw)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return accepted
		}
	}
	return invalid(reason, "Invalid "+kind+" format")
}

// RecentMessage is one prior message from the same sender.
type RecentMessage struct {
	Message   string
	CreatedAt time.Time
}

// DetectSuspiciousActivity reports flooding by a single sender. recent must
// be ordered newest first. It fires when the five newest messages are
// identical or when more than ten were sent in the minute before now.
func DetectSuspiciousActivity(recent []RecentMessage, now time.Time) bool {
	if len(recent) < suspiciousIdentical {
		return false
	}

	first := recent[0].Message
	identical := true
	for _, msg := range recent[1:suspiciousIdentical] {
		if msg.Message != first {
			identical = false
			break
		}
	}
	if identical {
		return true
	}

	cutoff := now.Add(-suspiciousWindow)
	burst := 0
	for _, msg := range recent {
		if msg.CreatedAt.After(cutoff) {
			burst++
		}
	}
	return burst > suspiciousBurst
}

type MessageStats struct {
	Length    int  `json:"length"`
	Words     int  `json:"words"`
	Lines     int  `json:"lines"`
	HasURLs   bool `json:"hasUrls"`
	HasEmojis bool `json:"hasEmojis"`
}

func Stats(text string) MessageStats {
	hasEmoji := strings.IndexFunc(text, func(r rune) bool {
		return r >= emojiRangeLo && r <= emojiRangeHi
	}) >= 0

	return MessageStats{
		Length:    utf8.RuneCountInString(text),
		Words:     len(strings.Fields(text)),
		Lines:     strings.Count(text, "\n") + 1,
		HasURLs:   urlPattern.MatchString(text),
		HasEmojis: hasEmoji,
	}
}
