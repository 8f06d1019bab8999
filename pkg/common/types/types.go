package types

import (
	"fmt"
	"time"
)

// Record is a single row of domain data keyed by field name. Sources
// produce records, transformers rewrite them, loaders persist them.
// No schema is enforced at this level.
type Record map[string]interface{}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// SourceConfig defines configuration for a source adapter
type SourceConfig struct {
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}

// ProcessorConfig defines configuration for a transformer stage
type ProcessorConfig struct {
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}

// ConsumerConfig defines configuration for a loader
type ConsumerConfig struct {
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}

// GetString reads a string value from a component config map.
func GetString(config map[string]interface{}, key string) (string, bool) {
	v, ok := config[key].(string)
	return v, ok
}

// GetInt reads an integer value from a component config map. YAML gives
// us int, JSON float64; both are accepted.
func GetInt(config map[string]interface{}, key string) (int, bool) {
	switch i := config[key].(type) {
	case int:
		return i, true
	case int64:
		return int(i), true
	case float64:
		return int(i), true
	}
	return 0, false
}

// GetBool reads a boolean value from a component config map.
func GetBool(config map[string]interface{}, key string) (bool, bool) {
	v, ok := config[key].(bool)
	return v, ok
}

// GetStringSlice reads a list of strings from a component config map.
// yaml.v2 decodes lists as []interface{}.
func GetStringSlice(config map[string]interface{}, key string) ([]string, bool) {
	raw, ok := config[key].([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

// GetStringMap reads a map of string to string from a component config map.
// yaml.v2 decodes nested maps as map[interface{}]interface{}, so both key
// shapes are handled.
func GetStringMap(config map[string]interface{}, key string) (map[string]string, bool) {
	out := make(map[string]string)
	switch m := config[key].(type) {
	case map[string]interface{}:
		for k, v := range m {
			s, ok := v.(string)
			if !ok {
				return nil, false
			}
			out[k] = s
		}
	case map[interface{}]interface{}:
		for k, v := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			vs, ok := v.(string)
			if !ok {
				return nil, false
			}
			out[ks] = vs
		}
	default:
		return nil, false
	}
	return out, true
}

// ParseTimestamp parses an RFC3339 timestamp string.
func ParseTimestamp(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	return t, nil
}
