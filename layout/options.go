package layout

// BuildOptions 配置布局阶段所需的依赖，例如文本量取后端。
type BuildOptions struct {
	Measurer TextMeasurer
}

// TextMeasurer 负责量取一段文本（可含 \n 换行）的外接尺寸，单位毫米。
// 渲染器实现该接口，使标签避让计算与最终绘制使用同一套字体度量。
type TextMeasurer interface {
	MeasureText(content string, fontSize float64, bold bool) (w, h float64, err error)
}
