package emoji

// emojiMap holds [emoji, fallback] pairs
var emojiMap = map[string][2]string{
	"error":      {"❌", "[ERR]"},
	"warning":    {"⚠️", "[WRN]"},
	"info":       {"ℹ️", "[INF]"},
	"success":    {"✅", "[OK]"},
	"cluster":    {"🧩", "[CLU]"},
	"outlier":    {"🔸", "[OUT]"},
	"statistics": {"📊", "[STATS]"},
	"sweep":      {"🧪", "[SWP]"},
	"customers":  {"👥", "[CUS]"},
	"file":       {"💾", "[OUT]"},
	"theme":      {"🏷️", "[TAG]"},
	"history":    {"🕘", "[HIS]"},
	"watch":      {"👀", "[WCH]"},
	"target":     {"🎯", "[>]"},
	"door":       {"🚪", "[EXIT]"},
}

var emojiDisabled bool

// SetEmojiDisabled sets the global emoji disabled state
func SetEmojiDisabled(disabled bool) {
	emojiDisabled = disabled
}

// IsEmojiDisabled returns the current emoji disabled state
func IsEmojiDisabled() bool {
	return emojiDisabled
}

// GetEmoji returns emoji or fallback based on no-emoji setting
func GetEmoji(key string) string {
	mapping, exists := emojiMap[key]
	if !exists {
		return "[?]"
	}
	if emojiDisabled {
		return mapping[1]
	}
	return mapping[0]
}
