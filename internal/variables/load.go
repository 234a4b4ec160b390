package variables

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadBindings reads predefined variable bindings from a file. Files ending in
// .yaml or .yml are decoded as a flat YAML mapping; everything else is parsed
// as a dotenv file. Binding names must be valid variable names.
func LoadBindings(path string) (map[string]string, error) {
	var bindings map[string]string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read bindings file %s: %w", path, err)
		}
		raw := make(map[string]interface{})
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse bindings file %s: %w", path, err)
		}
		bindings = make(map[string]string, len(raw))
		for k, v := range raw {
			if v == nil {
				bindings[k] = ""
				continue
			}
			bindings[k] = fmt.Sprint(v)
		}
	default:
		env, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read bindings file %s: %w", path, err)
		}
		bindings = env
	}

	for name := range bindings {
		if !isName(name) {
			return nil, fmt.Errorf("bindings file %s: invalid variable name %q", path, name)
		}
	}
	return bindings, nil
}
