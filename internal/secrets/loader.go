package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes how to load a credential value.
type Source struct {
	// Name is used in error messages to give more context about the credential.
	Name string
	// Value is an inline credential provided via configuration or flags.
	Value string
	// File points to a file containing the credential. When set it takes
	// precedence over Value.
	File string
}

// Load returns the resolved credential from the provided source. When File is
// set it takes precedence over Value. The returned value is always trimmed. An
// error is returned when neither File nor Value contain a usable credential.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "credential"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		src.Value = string(data)
		src.File = file
	}

	value := strings.TrimSpace(src.Value)
	if value == "" {
		if src.File != "" {
			return "", fmt.Errorf("%s file %q is empty", name, src.File)
		}
		return "", fmt.Errorf("%s is not configured", name)
	}

	return value, nil
}
