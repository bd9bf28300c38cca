package cue

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sheet is the document form of a cue file in YAML or JSON.
type Sheet struct {
	Cues []Cue `json:"subtitles" yaml:"subtitles"`
}

// Load reads a cue file. The format is chosen from the extension:
// .lrc, .yaml/.yml or .json.
func Load(path string) ([]Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".lrc":
		return ParseLRC(f)
	case ".yaml", ".yml":
		return ParseYAML(f)
	case ".json":
		return ParseJSON(f)
	default:
		return nil, fmt.Errorf("unsupported cue file format: %s", ext)
	}
}

// ParseYAML reads a YAML cue sheet. Both a bare list of cues and a document
// with a top-level "subtitles" list are accepted.
func ParseYAML(r io.Reader) ([]Cue, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var cues []Cue
	if node.Content[0].Kind == yaml.SequenceNode {
		if err := node.Content[0].Decode(&cues); err != nil {
			return nil, fmt.Errorf("decode cues: %w", err)
		}
	} else {
		var sheet Sheet
		if err := node.Content[0].Decode(&sheet); err != nil {
			return nil, fmt.Errorf("decode cue sheet: %w", err)
		}
		cues = sheet.Cues
	}

	sortCues(cues)
	return cues, nil
}

// ParseJSON reads a JSON cue sheet, either a bare array or {"subtitles": [...]}.
func ParseJSON(r io.Reader) ([]Cue, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var cues []Cue
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &cues); err != nil {
			return nil, fmt.Errorf("decode cues: %w", err)
		}
	} else {
		var sheet Sheet
		if err := json.Unmarshal(data, &sheet); err != nil {
			return nil, fmt.Errorf("decode cue sheet: %w", err)
		}
		cues = sheet.Cues
	}

	sortCues(cues)
	return cues, nil
}
