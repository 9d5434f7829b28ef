package notify

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Message is a rendered notification.
type Message struct {
	Subject string
	Text    string
}

type entry struct {
	Subject string `yaml:"subject"`
	Text    string `yaml:"text"`
}

type compiled struct {
	subject *template.Template
	text    *template.Template
}

// Catalogue holds the canned messages keyed by template key.
type Catalogue struct {
	entries map[string]compiled
}

// DefaultCatalogue parses the embedded message catalogue.
func DefaultCatalogue() (*Catalogue, error) {
	return ParseCatalogue(defaultTemplates)
}

func ParseCatalogue(data []byte) (*Catalogue, error) {
	var raw map[string]entry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}

	c := &Catalogue{entries: make(map[string]compiled, len(raw))}
	for key, e := range raw {
		subject, err := template.New(key + ".subject").Option("missingkey=zero").Parse(e.Subject)
		if err != nil {
			return nil, fmt.Errorf("template %s subject: %w", key, err)
		}
		text, err := template.New(key + ".text").Option("missingkey=zero").Parse(e.Text)
		if err != nil {
			return nil, fmt.Errorf("template %s text: %w", key, err)
		}
		c.entries[key] = compiled{subject: subject, text: text}
	}
	return c, nil
}

// Render executes the template registered under key.
func (c *Catalogue) Render(key string, vars map[string]string) (Message, error) {
	e, ok := c.entries[key]
	if !ok {
		return Message{}, fmt.Errorf("unknown template %q", key)
	}

	var subject, text bytes.Buffer
	if err := e.subject.Execute(&subject, vars); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", key, err)
	}
	if err := e.text.Execute(&text, vars); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", key, err)
	}
	return Message{
		Subject: strings.TrimSpace(subject.String()),
		Text:    strings.TrimSpace(text.String()),
	}, nil
}
