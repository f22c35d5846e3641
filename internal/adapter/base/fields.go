package base

import (
	"strconv"
	"strings"
)

// StringField 按候选键读取字符串字段，数字按原样格式化
func StringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(t)
		case map[string]any:
			// {"name": "..."} 形式的嵌套对象
			if s := StringField(t, "name", "title", "value"); s != "" {
				return s
			}
		}
	}
	return ""
}

// BoolField 读取布尔字段，支持 true/"true"/"yes"/1
func BoolField(m map[string]any, keys ...string) *bool {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		var b bool
		switch t := v.(type) {
		case bool:
			b = t
		case float64:
			b = t != 0
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "true", "yes", "1", "y":
				b = true
			case "false", "no", "0", "n":
				b = false
			default:
				continue
			}
		default:
			continue
		}
		return &b
	}
	return nil
}

// SliceField 返回第一个数组类型的字段
func SliceField(m map[string]any, keys ...string) ([]any, bool) {
	for _, k := range keys {
		if v, ok := m[k].([]any); ok {
			return v, true
		}
	}
	return nil, false
}

// MapField 返回第一个对象类型的字段
func MapField(m map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if v, ok := m[k].(map[string]any); ok {
			return v, true
		}
	}
	return nil, false
}

// Maps 过滤出数组中的对象元素
func Maps(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
