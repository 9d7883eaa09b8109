package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadProfile loads a Profile from a JSON or YAML file.
func LoadProfile(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return Profile{}, err
	}
	defer f.Close()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return DecodeProfile(f, ext)
}

// DecodeProfile reads a Profile from r and validates it.
func DecodeProfile(r io.Reader, format string) (Profile, error) {
	var p Profile
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&p); err != nil {
			return p, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&p); err != nil {
			return p, err
		}
	default:
		return p, fmt.Errorf("unsupported format: %s", format)
	}
	return p, p.Validate()
}
