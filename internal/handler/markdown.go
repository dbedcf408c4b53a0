package handler

import "regexp"

// The generation API returns markdown; the reply surfaces are plain text.
var (
	mdBold      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	mdUnder     = regexp.MustCompile(`__(.+?)__`)
	mdItalic    = regexp.MustCompile(`\*(.+?)\*`)
	mdItalicU   = regexp.MustCompile(`_(.+?)_`)
	mdHeader    = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	mdCodeBlock = regexp.MustCompile("```[\\s\\S]*?```")
	mdCode      = regexp.MustCompile("`(.+?)`")
)

func stripMarkdown(text string) string {
	text = mdBold.ReplaceAllString(text, "$1")
	text = mdUnder.ReplaceAllString(text, "$1")
	text = mdItalic.ReplaceAllString(text, "$1")
	text = mdItalicU.ReplaceAllString(text, "$1")
	text = mdHeader.ReplaceAllString(text, "")
	text = mdCodeBlock.ReplaceAllString(text, "")
	text = mdCode.ReplaceAllString(text, "$1")
	return text
}
