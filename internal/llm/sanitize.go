package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var reCodeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// StripCodeFence removes a surrounding ``` block some models wrap their answers in.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := reCodeFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// CategoryFromContent pulls a bare label out of a model reply.
// It accepts {"category": "..."} JSON or plain text; the first line of plain text wins.
func CategoryFromContent(content string) string {
	content = StripCodeFence(content)
	if strings.HasPrefix(content, "{") {
		var out struct {
			Category string `json:"category"`
		}
		if err := json.Unmarshal([]byte(content), &out); err == nil {
			return strings.TrimSpace(out.Category)
		}
	}
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		content = content[:i]
	}
	return strings.Trim(strings.TrimSpace(content), "\"'*.")
}
