package layout

import (
	"os"

	"github.com/goccy/go-json"
)

// WriteDebugJSON 将布局结果输出为 JSON，便于调试或可视化。
func WriteDebugJSON(sheet *Sheet, path string) error {
	if sheet == nil {
		return nil
	}
	data, err := json.MarshalIndent(sheet, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
