package binding

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// 若 data 为空或路径不存在，则保留原占位符，不报错：
// 标签文本里的未知占位符原样画出，便于排查。
func Interpolate(text string, data any) string {
	if data == nil {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		path := strings.TrimSpace(groups[1])
		if path == "" {
			return match
		}
		if val, ok := Lookup(data, path); ok {
			return fmt.Sprint(val)
		}
		return match
	})
}

// Lookup 按点分路径在 data 中取值，支持 map 键与数组下标（a.b[0].c）。
func Lookup(data any, path string) (any, bool) {
	current := data
	for _, segment := range strings.Split(path, ".") {
		name, indexes, err := splitSegment(segment)
		if err != nil {
			return nil, false
		}
		if name != "" {
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			if current, ok = m[name]; !ok {
				return nil, false
			}
		}
		for _, idx := range indexes {
			arr, ok := current.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			current = arr[idx]
		}
	}
	return current, true
}

// splitSegment 把 "items[2][0]" 拆成键名与下标序列。
func splitSegment(segment string) (string, []int, error) {
	i := strings.IndexByte(segment, '[')
	if i == -1 {
		return segment, nil, nil
	}
	name := segment[:i]
	var indexes []int
	rest := segment[i:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			return "", nil, fmt.Errorf("路径片段 %q 格式不正确", segment)
		}
		end := strings.IndexByte(rest, ']')
		if end == -1 {
			return "", nil, fmt.Errorf("路径片段 %q 缺少右括号", segment)
		}
		idx, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return "", nil, fmt.Errorf("路径下标 %q 不是整数", rest[1:end])
		}
		indexes = append(indexes, idx)
		rest = rest[end+1:]
	}
	return name, indexes, nil
}

// LoadFile 读取 JSON 或 YAML 数据文件，返回可供 Interpolate 使用的通用结构。
// YAML 解码出的 map 统一归一化为 map[string]any。
func LoadFile(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取数据文件: %w", err)
	}

	var data any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("解析 JSON 数据文件 %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("解析 YAML 数据文件 %s: %w", path, err)
		}
		data = normalize(data)
	default:
		return nil, fmt.Errorf("不支持的数据文件格式 %q（应为 .json/.yaml/.yml）", ext)
	}
	return data, nil
}

// normalize 把 yaml 解码产生的 map[any]any 转成 map[string]any，
// 使 JSON 与 YAML 数据在 Lookup 中行为一致。
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	default:
		return v
	}
}
