package domain

// Content and Part mirror the generation endpoint's wire format. They are
// used both for conversation history and request bodies, so history entries
// can be sent back verbatim as multi-turn context.

const (
	RoleUser  = "user"
	RoleModel = "model"
)

type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

type InlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// TextContent builds a single-part text message for the given role.
func TextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{{Text: text}}}
}
