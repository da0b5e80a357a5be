package envutil

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadYAML reads a yaml config file and exports every leaf as an environment
// variable. Nested keys are joined with "_" and upper-cased, so api.addr
// becomes API_ADDR. Variables already present in the environment win.
func LoadYAML(path string) error {
	values, err := ReadYAML(path)
	if err != nil {
		return err
	}
	for key, value := range values {
		setIfUnset(key, value)
	}
	return nil
}

// ReadYAML returns the flattened key/value view of a yaml config file.
// A missing file yields an empty map.
func ReadYAML(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := envVarPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	out := make(map[string]string)
	flatten("", doc, out)
	return out, nil
}

// MarshalYAML renders flattened values back into a nested yaml document,
// splitting keys on the first "_".
func MarshalYAML(values map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := make(map[string]any)
	for _, key := range keys {
		section, leaf, ok := strings.Cut(strings.ToLower(key), "_")
		if !ok {
			doc[section] = values[key]
			continue
		}
		nested, _ := doc[section].(map[string]any)
		if nested == nil {
			nested = make(map[string]any)
			doc[section] = nested
		}
		nested[leaf] = values[key]
	}
	return yaml.Marshal(doc)
}

func flatten(prefix string, node any, out map[string]string) {
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			flatten(joinKey(prefix, key), child, out)
		}
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, scalarString(item))
		}
		out[prefix] = strings.Join(parts, ",")
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = scalarString(v)
	}
}

func joinKey(prefix, key string) string {
	key = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(key), "-", "_"))
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

func scalarString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
