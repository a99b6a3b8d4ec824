// Package render turns a response definition into an outbound payload.
package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"chanfinder/pkg/catalog"
)

const (
	buttonsPerRow = 2

	// OptionPrefix marks placeholder button tokens.
	OptionPrefix = "option_"

	// MaxMessageRunes is the longest text Telegram accepts in one message.
	MaxMessageRunes = 4000
)

// Button is either a link (URL set) or a placeholder carrying Token.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
	Token string `json:"token,omitempty"`
}

// IsLink reports whether the button navigates somewhere.
func (b Button) IsLink() bool {
	return b.URL != ""
}

// Payload is what the transport sends: text plus optional button rows.
type Payload struct {
	Text string     `json:"text"`
	Rows [][]Button `json:"rows,omitempty"`
}

// HasButtons reports whether the payload carries a keyboard.
func (p Payload) HasButtons() bool {
	return len(p.Rows) > 0
}

// Render builds the payload for the response selected under name.
//
// Plain definitions render their content. When the content lines name the
// link labels, every non-empty line becomes a button (a link when the label
// has a URL, a placeholder otherwise). Links whose labels never appear in the
// content are rendered verbatim in stored order.
func Render(name string, def catalog.Definition) Payload {
	if !def.UsesButtons && !def.HasLinks() {
		return Payload{Text: def.Content}
	}

	labels := contentLines(def.Content)
	if def.HasLinks() && !anyLabelLinked(labels, def.ButtonLinks) {
		buttons := make([]Button, 0, len(def.ButtonLinks))
		for _, link := range def.ButtonLinks {
			buttons = append(buttons, Button{Label: link.Label, URL: link.URL})
		}
		return Payload{Text: def.Content, Rows: Rows(buttons)}
	}

	buttons := make([]Button, 0, len(labels))
	for i, label := range labels {
		if url, ok := def.ButtonLinks.Lookup(label); ok {
			buttons = append(buttons, Button{Label: label, URL: url})
			continue
		}
		buttons = append(buttons, Button{Label: label, Token: OptionToken(i)})
	}

	return Payload{Text: fmt.Sprintf("Options for '%s':", name), Rows: Rows(buttons)}
}

// Rows groups buttons two per row, keeping order.
func Rows(buttons []Button) [][]Button {
	if len(buttons) == 0 {
		return nil
	}

	rows := make([][]Button, 0, (len(buttons)+buttonsPerRow-1)/buttonsPerRow)
	for start := 0; start < len(buttons); start += buttonsPerRow {
		end := min(start+buttonsPerRow, len(buttons))
		rows = append(rows, buttons[start:end:end])
	}
	return rows
}

// OptionToken is the opaque token of the placeholder button at index.
func OptionToken(index int) string {
	return fmt.Sprintf("%s%d", OptionPrefix, index)
}

func contentLines(content string) []string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func anyLabelLinked(labels []string, links catalog.Links) bool {
	for _, label := range labels {
		if _, ok := links.Lookup(label); ok {
			return true
		}
	}
	return false
}

// ChunkText splits text into pieces of at most limit runes, preferring to cut
// after a newline.
func ChunkText(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
