package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Link is one labelled button destination.
type Link struct {
	Label string
	URL   string
}

// Links is an ordered label -> URL mapping. It is stored as an object whose key
// order is the button order.
type Links []Link

// Lookup returns the URL for label.
func (l Links) Lookup(label string) (string, bool) {
	for _, link := range l {
		if link.Label == label {
			return link.URL, true
		}
	}
	return "", false
}

// set replaces the URL of an existing label or appends a new one.
func (l Links) set(label string, url string) Links {
	for i := range l {
		if l[i].Label == label {
			l[i].URL = url
			return l
		}
	}
	return append(l, Link{Label: label, URL: url})
}

func (l Links) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, link := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(link.Label)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(link.URL)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func (l *Links) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("button_links must be an object")
	}

	var out Links
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("button_links key must be a string")
		}

		var url string
		if err := dec.Decode(&url); err != nil {
			return fmt.Errorf("button_links[%q]: %w", label, err)
		}
		out = out.set(label, url)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*l = out
	return nil
}

func (l *Links) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*l = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("button_links must be a mapping (line %d)", node.Line)
	}

	var out Links
	for i := 0; i+1 < len(node.Content); i += 2 {
		var label, url string
		if err := node.Content[i].Decode(&label); err != nil {
			return err
		}
		if err := node.Content[i+1].Decode(&url); err != nil {
			return fmt.Errorf("button_links[%q]: %w", label, err)
		}
		out = out.set(label, url)
	}

	*l = out
	return nil
}
