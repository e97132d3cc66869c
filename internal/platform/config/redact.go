package config

import (
	"strings"

	"gopkg.in/yaml.v3"
)

const maskedValue = "********"

// sensitiveKey reports whether a config key may carry credentials. Exported
// configuration must never contain these values in cleartext.
func sensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, marker := range []string{"secret", "key", "password", "token"} {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}

// Redacted returns the configuration as a generic map with every
// credential-bearing value masked. Safe for logging and the config export API.
func (c *Config) Redacted() (map[string]interface{}, error) {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}

	var tree map[string]interface{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}

	redactTree(tree)
	return tree, nil
}

func redactTree(node interface{}) {
	switch typed := node.(type) {
	case map[string]interface{}:
		for k, v := range typed {
			if sensitiveKey(k) {
				if s, ok := v.(string); ok && s != "" {
					typed[k] = maskedValue
					continue
				}
			}
			redactTree(v)
		}
	case []interface{}:
		for _, v := range typed {
			redactTree(v)
		}
	}
}
