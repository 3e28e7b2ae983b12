package sources

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"ordermail/internal/util"
)

// Override tunes one source without a rebuild. Zero values keep the
// built-in setting.
type Override struct {
	Disabled       bool            `yaml:"disabled"`
	Window         int             `yaml:"window"`
	QtyMax         int             `yaml:"qty_max"`
	Senders        []string        `yaml:"senders"`
	SenderPatterns []string        `yaml:"sender_patterns"`
	Subject        string          `yaml:"subject"`
	SearchSubject  string          `yaml:"search_subject"`
	Retailers      []string        `yaml:"retailers"`
	Sizes          *util.SizeRange `yaml:"sizes"`
}

type overrideFile struct {
	Sources map[string]Override `yaml:"sources"`
}

// LoadOverrides applies the YAML file at path. A missing file is not an
// error.
func (r *Registry) LoadOverrides(path string) error {
	if path == "" {
		return nil
	}
	blob, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var file overrideFile
	if err := yaml.Unmarshal(blob, &file); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return r.Apply(file.Sources)
}

func (r *Registry) Apply(overrides map[string]Override) error {
	for name, o := range overrides {
		src, err := r.Get(name)
		if err != nil {
			return err
		}
		if o.Disabled {
			r.remove(name)
			continue
		}
		if o.Window > 0 {
			src.Window = o.Window
		}
		if o.QtyMax > 0 {
			src.QtyMax = o.QtyMax
		}
		if len(o.Senders) > 0 {
			src.Senders = append(src.Senders, o.Senders...)
			src.Query.From = append(src.Query.From, o.Senders...)
		}
		if len(o.SenderPatterns) > 0 {
			src.SenderPatterns = append(src.SenderPatterns, o.SenderPatterns...)
		}
		if o.Subject != "" {
			re, err := regexp.Compile("(?i)" + o.Subject)
			if err != nil {
				return fmt.Errorf("source %s subject: %w", name, err)
			}
			src.Subject = re
		}
		if o.SearchSubject != "" {
			src.Query.Subject = o.SearchSubject
		}
		if len(o.Retailers) > 0 {
			src.RetailerPatterns = o.Retailers
		}
		if o.Sizes != nil {
			src.Sizes = *o.Sizes
		}
	}
	return nil
}
