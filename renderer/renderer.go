package renderer

import "github.com/ByLCY/lifegrid/layout"

// Renderer 将布局结果渲染为某种输出格式的字节流。
type Renderer interface {
	Render(sheet *layout.Sheet) ([]byte, error)
}
