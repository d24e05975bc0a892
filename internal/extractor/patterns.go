package extractor

import "regexp"

// Pattern families, one per media category. Each family is an ordered list of
// alternative phrasings; the first capture group is the candidate title.
// Tuning happens here, not in control flow.

var animePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|[\s,;:])(?:re)?watch(?:ing|ed)?\s+([^,.!?\n]+)`),
	regexp.MustCompile(`(?i)\banime\s+(?:called|named|like)\s+([^,.!?\n]+)`),
	regexp.MustCompile(`(?i)\b([\w' :&-]{2,50}?)\s+is\s+(?:an?\s+)?(?:great|good|amazing|awesome|solid)\s+anime\b`),
}

var tvPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bbinge[\s-]?watch(?:ing|ed)?\s+([^,.!?\n]+)`),
	regexp.MustCompile(`(?i)\b([\w' :&-]{2,50}?)\s+season\s+\d+\b`),
	regexp.MustCompile(`(?i)\b(?:series|show)\s+(?:called|named|like)\s+([^,.!?\n]+)`),
	regexp.MustCompile(`(?i)\b([\w' :&-]{2,50}?)\s+is\s+(?:an?\s+)?(?:great|good|amazing|awesome)\s+(?:show|series)\b`),
}

var gamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|[\s,;:])play(?:ing|ed)\s+([^,.!?\n]+)`),
	regexp.MustCompile(`(?i)\b([\w' :&-]{2,50}?)\s+is\s+(?:an?\s+)?(?:great|good|amazing|awesome|fun)\s+game\b`),
	regexp.MustCompile(`(?i)\bgame\s+(?:called|named|like)\s+([^,.!?\n]+)`),
}

// videoLinkPattern captures the video id of a YouTube watch or short link.
var videoLinkPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/shorts/)([A-Za-z0-9_-]{6,12})`)

// urlPattern matches any URL, used for attaching links found near a title.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// serviceNudges lists streaming/storefront names whose co-occurrence with a
// found title nudges its confidence up, and the boost applied per service.
var serviceNudges = []nudgeRule{
	{service: "netflix", boost: 0.1},
	{service: "crunchyroll", boost: 0.1},
	{service: "hulu", boost: 0.1},
	{service: "funimation", boost: 0.1},
	{service: "disney+", boost: 0.1},
	{service: "hbo", boost: 0.1},
	{service: "prime video", boost: 0.1},
	{service: "steam", boost: 0.1},
	{service: "epic games", boost: 0.1},
	{service: "gog", boost: 0.1},
	{service: "game pass", boost: 0.1},
	{service: "playstation", boost: 0.1},
}

// stopWords may be dropped from the tail of a multi-word title.
var stopWords = map[string]bool{
	"it":     true,
	"its":    true,
	"it's":   true,
	"that":   true,
	"this":   true,
	"though": true,
	"tho":    true,
	"too":    true,
	"now":    true,
	"again":  true,
	"lol":    true,
	"btw":    true,
}
