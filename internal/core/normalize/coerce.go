package normalize

import (
	"strconv"
	"strings"

	"github.com/veslabs/litscreen/internal/core/domain"
)

// Loose coercion over decoded JSON/YAML values. Upstream exports are not
// trusted to keep a stable type for any field.

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	default:
		return ""
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func firstString(item domain.SourceItem, keys ...string) string {
	for _, key := range keys {
		if s := asString(item[key]); s != "" {
			return s
		}
	}
	return ""
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		out := make([]string, 0, len(list))
		for _, entry := range list {
			if s := strings.TrimSpace(entry); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(list))
		for _, entry := range list {
			if s := asString(entry); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
