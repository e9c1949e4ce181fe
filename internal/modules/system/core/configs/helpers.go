package configs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/clauselens/core/internal/config"
)

func deepMergeJSON(oldVal, newVal interface{}) interface{} {
	oldMap, oldIsMap := oldVal.(map[string]interface{})
	newMap, newIsMap := newVal.(map[string]interface{})
	if oldIsMap && newIsMap {
		out := make(map[string]interface{}, len(oldMap))
		for k, v := range oldMap {
			out[k] = v
		}
		for k, v := range newMap {
			if existing, ok := out[k]; ok {
				out[k] = deepMergeJSON(existing, v)
				continue
			}
			out[k] = v
		}
		return out
	}

	// Arrays should be replaced as a whole.
	if _, ok := newVal.([]interface{}); ok {
		return newVal
	}

	return newVal
}

func shouldEnableReports(partial map[string]json.RawMessage) bool {
	raw, ok := partial["ai"]
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return false
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false
	}
	for _, field := range []string{"enable_reports", "enableReports"} {
		enabled, ok := parseBoolFromAny(payload[field])
		if ok && enabled {
			return true
		}
	}
	return false
}

func hasEnabledAIProvider(providers []config.AIProvider) bool {
	for _, provider := range providers {
		if provider.Enabled {
			return true
		}
	}
	return false
}

func parseBoolFromAny(v interface{}) (bool, bool) {
	switch value := v.(type) {
	case bool:
		return value, true
	case string:
		trimmed := strings.TrimSpace(strings.ToLower(value))
		switch trimmed {
		case "1", "true", "yes", "on":
			return true, true
		case "0", "false", "no", "off":
			return false, true
		}
	case float64:
		return value != 0, true
	case float32:
		return value != 0, true
	case int:
		return value != 0, true
	case int8:
		return value != 0, true
	case int16:
		return value != 0, true
	case int32:
		return value != 0, true
	case int64:
		return value != 0, true
	case uint:
		return value != 0, true
	case uint8:
		return value != 0, true
	case uint16:
		return value != 0, true
	case uint32:
		return value != 0, true
	case uint64:
		return value != 0, true
	}
	return false, false
}

// normalizeConfigSection rewrites legacy key spellings inside a section so
// the map-level merge never ends up carrying a value under both the old and
// the canonical key.
func normalizeConfigSection(key string, v interface{}) interface{} {
	switch key {
	case "mail_options":
		return normalizeMailOptions(v)
	case "analysis_options":
		return normalizeAnalysisOptions(v)
	case "feature_list":
		return normalizeFeatureList(v)
	default:
		return v
	}
}

func normalizeMailOptions(v interface{}) interface{} {
	mailMap, ok := v.(map[string]interface{})
	if !ok {
		return v
	}

	smtpRaw, ok := mailMap["smtp"]
	if !ok || smtpRaw == nil {
		return mailMap
	}

	smtpMap, ok := smtpRaw.(map[string]interface{})
	if !ok {
		return mailMap
	}

	optionsMap := map[string]interface{}{}
	if rawOptions, ok := smtpMap["options"]; ok && rawOptions != nil {
		if parsedOptions, ok := rawOptions.(map[string]interface{}); ok {
			for key, value := range parsedOptions {
				optionsMap[key] = value
			}
		}
	}

	if host, ok := smtpMap["host"]; ok {
		optionsMap["host"] = host
	}
	if port, ok := smtpMap["port"]; ok {
		optionsMap["port"] = port
	}
	if secure, ok := smtpMap["secure"]; ok {
		optionsMap["secure"] = secure
	}

	if len(optionsMap) > 0 {
		smtpMap["options"] = optionsMap
	}

	delete(smtpMap, "host")
	delete(smtpMap, "port")
	delete(smtpMap, "secure")

	mailMap["smtp"] = smtpMap
	return mailMap
}

func normalizeAnalysisOptions(v interface{}) interface{} {
	sectionMap, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	if _, exists := sectionMap["pass_timeout_seconds"]; !exists {
		if legacy, ok := sectionMap["pass_timeout"]; ok {
			sectionMap["pass_timeout_seconds"] = legacy
		}
	}
	delete(sectionMap, "pass_timeout")
	if _, exists := sectionMap["max_document_kb"]; !exists {
		if legacy, ok := sectionMap["max_document_size"]; ok {
			sectionMap["max_document_kb"] = legacy
		}
	}
	delete(sectionMap, "max_document_size")
	return sectionMap
}

func normalizeFeatureList(v interface{}) interface{} {
	sectionMap, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	if _, exists := sectionMap["daily_digest"]; !exists {
		if legacy, ok := sectionMap["email_digest"]; ok {
			sectionMap["daily_digest"] = legacy
		}
	}
	delete(sectionMap, "email_digest")
	return sectionMap
}

var optionKeyAliases = map[string]string{
	"extension":        "extension",
	"url":              "url",
	"mail_options":     "mail_options",
	"analysis_options": "analysis_options",
	"alert_options":    "alert_options",
	"archive_options":  "archive_options",
	"s3_options":       "s3_options",
	"bark_options":     "bark_options",
	"auth_security":    "auth_security",
	"feature_list":     "feature_list",
	"ai":               "ai",
}

func normalizeOptionKey(key string) string {
	snake := camelToSnakeKey(key)
	if _, ok := optionKeyAliases[snake]; ok {
		return snake
	}
	return snake
}

func normalizeJSONKeys(raw json.RawMessage, keyFn func(string) string) (json.RawMessage, error) {
	var data interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("invalid json body")
	}
	normalized := convertMapKeys(data, keyFn)
	out, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func convertMapKeys(v interface{}, keyFn func(string) string) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			out[keyFn(k)] = convertMapKeys(child, keyFn)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, child := range val {
			out[i] = convertMapKeys(child, keyFn)
		}
		return out
	case *config.FullConfig:
		if val == nil {
			return nil
		}
		b, _ := json.Marshal(val)
		var m map[string]interface{}
		_ = json.Unmarshal(b, &m)
		return convertMapKeys(m, keyFn)
	case config.FullConfig:
		b, _ := json.Marshal(val)
		var m map[string]interface{}
		_ = json.Unmarshal(b, &m)
		return convertMapKeys(m, keyFn)
	default:
		return val
	}
}

func snakeToCamelKey(s string) string {
	if s == "" {
		return s
	}
	parts := strings.Split(s, "_")
	if len(parts) == 1 {
		return s
	}
	out := make([]rune, 0, len(s))
	out = append(out, []rune(parts[0])...)
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lower := strings.ToLower(part)
		switch lower {
		case "kb":
			out = append(out, []rune("KB")...)
			continue
		case "ttl":
			out = append(out, []rune("TTL")...)
			continue
		}
		runes := []rune(lower)
		runes[0] = unicode.ToUpper(runes[0])
		out = append(out, runes...)
	}
	return string(out)
}

func camelToSnakeKey(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.TrimSpace(s))
	if len(runes) == 0 {
		return ""
	}
	out := make([]rune, 0, len(runes)+4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || nextLower {
					out = append(out, '_')
				}
			}
			out = append(out, unicode.ToLower(r))
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
