// Package terms loads the visitor terms and conditions shown at the kiosk.
package terms

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed terms.yaml
var defaultDoc []byte

// Section is one numbered heading with its bullet points.
type Section struct {
	Heading string   `yaml:"heading" json:"heading"`
	Items   []string `yaml:"items" json:"items"`
}

// Document is the full terms text.
type Document struct {
	Title    string    `yaml:"title" json:"title"`
	Intro    string    `yaml:"intro" json:"intro"`
	Sections []Section `yaml:"sections" json:"sections"`
}

// Default returns the built-in document.
func Default() Document {
	doc, err := Parse(defaultDoc)
	if err != nil {
		panic(fmt.Sprintf("terms: embedded document is invalid: %v", err))
	}
	return doc
}

// Load reads the document at path, or the built-in one when path is empty.
// ${VAR} placeholders are replaced from the environment.
func Load(path string) (Document, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("error reading terms file: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes a YAML terms document.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("error parsing terms: %w", err)
	}
	doc.Title = strings.TrimSpace(doc.Title)
	if doc.Title == "" {
		return Document{}, errors.New("terms: title is required")
	}
	if len(doc.Sections) == 0 {
		return Document{}, errors.New("terms: at least one section is required")
	}
	return doc, nil
}
