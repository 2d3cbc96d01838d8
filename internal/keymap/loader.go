package keymap

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Loader handles loading and validating a keymap file
type Loader struct {
	filePath string
	validate *validator.Validate
}

// NewLoader creates a new keymap loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Path returns the file the loader reads
func (l *Loader) Path() string {
	return l.filePath
}

// Load reads, parses and validates the keymap file. An empty path yields the
// default keymap.
func (l *Loader) Load() ([]Binding, error) {
	if l.filePath == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read keymap file: %w", err)
	}

	return l.Parse(data)
}

// Parse decodes and validates keymap YAML
func (l *Loader) Parse(data []byte) ([]Binding, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse keymap yaml: %w", err)
	}

	for i := range file.Buttons {
		b := &file.Buttons[i]
		b.Button = strings.ToLower(strings.TrimSpace(b.Button))
		b.Action = b.Action.Normalize()
		if b.Label == "" {
			b.Label = defaultLabel(b.Action)
		}
	}

	if err := l.validate.Struct(file); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fmt.Errorf("invalid keymap: %s", describe(verrs))
		}
		return nil, fmt.Errorf("invalid keymap: %w", err)
	}

	if err := checkUnique(file.Buttons); err != nil {
		return nil, err
	}

	return file.Buttons, nil
}

func describe(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

func checkUnique(bindings []Binding) error {
	names := make(map[string]bool, len(bindings))
	codes := make(map[int]string, len(bindings))

	for _, b := range bindings {
		if names[b.Button] {
			return fmt.Errorf("invalid keymap: duplicate button %q", b.Button)
		}
		names[b.Button] = true

		if b.Code == 0 {
			continue
		}
		if other, ok := codes[b.Code]; ok {
			return fmt.Errorf("invalid keymap: code %#x bound to both %q and %q", b.Code, other, b.Button)
		}
		codes[b.Code] = b.Button
	}
	return nil
}
