package log

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// renderAttr turns one attribute into key=value pairs. Groups are
// flattened with dotted keys.
func renderAttr(prefix string, attr slog.Attr) []string {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return nil
	}

	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		if len(group) == 0 {
			return nil
		}
		key := prefix
		if attr.Key != "" {
			key = joinKey(prefix, attr.Key)
		}
		var out []string
		for _, a := range group {
			out = append(out, renderAttr(key, a)...)
		}
		return out
	}

	return []string{joinKey(prefix, attr.Key) + "=" + quote(formatValue(attr.Value))}
}

// formatValue converts a resolved, non-group value to text.
func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		switch a := v.Any().(type) {
		case nil:
			return "<nil>"
		case error:
			return a.Error()
		case fmt.Stringer:
			return a.String()
		default:
			if data, err := json.Marshal(a); err == nil {
				return string(data)
			}
			return fmt.Sprintf("%v", a)
		}
	default:
		return fmt.Sprintf("%v", v.Any())
	}
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
