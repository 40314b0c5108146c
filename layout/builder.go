package layout

import (
	"fmt"
	"math"
	"time"

	"github.com/ByLCY/lifegrid/grid"
)

// 默认值沿用原始海报的比例：网格占页面中部偏左，上下留白放标题与留白带放标签。
var DefaultAxesRect = [4]float64{0.25, 0.1, 0.5, 0.8}

const (
	DefaultEpsilon = 0.2
	DefaultMaxAge  = 90

	// 数据坐标范围：x 方向左侧留半格，使方块不被裁切。
	dataXMin = -0.5
	dataXMax = float64(grid.WeeksPerYear)
)

// Input 是布局引擎的全部输入。颜色在进入布局前必须已经确定
//（随机配色由上层完成），因此 Build 是纯函数：同样的输入产出同样的 Sheet。
type Input struct {
	Birthdate time.Time
	Window    grid.Window
	Size      Papersize
	Epsilon   float64    // 标签最小间距（data 单位），<=0 时取 DefaultEpsilon
	AxesRect  [4]float64 // [left, bottom, width, height] 页面比例，零值取 DefaultAxesRect

	Title         string
	TitleFontSize float64 // pt，<=0 时按纸张缩放
	Watermark     string
	Image         *ImageSpec
	ShowMaxAge    bool

	XAxis AxisFormat
	YAxis AxisFormat

	Events []Event
	Eras   []Era
	Spans  []Span

	Meta DocumentMeta
}

// ImageSpec 描述铺底图片。
type ImageSpec struct {
	Path  string
	Alpha float64
}

// AxisFormat 是坐标轴标题的覆盖项，零值字段取默认。
type AxisFormat struct {
	Text     string
	Pos      *[2]float64 // axes 比例坐标
	Color    *Color
	FontSize float64 // pt
}

// Event 是一个已定色的生活事件。
type Event struct {
	Text        string
	Date        time.Time
	Color       Color
	Hint        *grid.Point
	Side        grid.Side
	PlainSquare bool // true 时不给事件方块上色
}

// Era 是一段着色的时代区间。
type Era struct {
	Text  string
	Start time.Time
	End   time.Time
	Color Color
	Side  grid.Side
	Alpha float64
}

// Span 是一段哑铃标注的区间。
type Span struct {
	Text           string
	Start          time.Time
	End            time.Time
	Color          Color
	Hint           *grid.Point
	Side           grid.Side
	ColorEndpoints bool
}

// 网格与文字的基准配色。
var (
	gridColor      = RGB(160, 160, 160)
	tickColor      = RGB(70, 70, 70)
	titleColor     = RGB(20, 20, 20)
	watermarkColor = RGB(128, 128, 128)
)

const (
	defaultXAxisLabel = "Week of the Year ⟶"
	defaultYAxisLabel = "⟵ Age"
)

// Build 根据输入生成整张海报的毫米级图元。
func Build(in Input, opts BuildOptions) (*Sheet, error) {
	if opts.Measurer == nil {
		return nil, fmt.Errorf("layout: 缺少文本量取后端 Measurer")
	}
	if in.Birthdate.IsZero() {
		return nil, fmt.Errorf("layout: 缺少出生日期")
	}
	win := in.Window
	if win.MaxAge == 0 {
		win.MaxAge = DefaultMaxAge
	}
	if err := win.Validate(); err != nil {
		return nil, err
	}
	eps := in.Epsilon
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	rect := in.AxesRect
	if rect == ([4]float64{}) {
		rect = DefaultAxesRect
	}

	params := NewParams(in.Size)
	wLen, hLen := params.Size.Dimensions()
	pageW, pageH := wLen.ToMM(), hLen.ToMM()

	axes := fitAxes(pageW, pageH, rect, win)

	sheet := &Sheet{
		Width:  pageW,
		Height: pageH,
		Axes:   axes,
		Meta:   in.Meta,
	}

	b := &builder{
		in:       in,
		win:      win,
		eps:      eps,
		params:   params,
		axes:     axes,
		sheet:    sheet,
		measurer: opts.Measurer,
	}

	b.buildImage()
	b.buildEras()
	b.buildSquares()
	if err := b.buildSpans(); err != nil {
		return nil, err
	}
	if err := b.buildEvents(); err != nil {
		return nil, err
	}
	if err := b.placeAnnotations(); err != nil {
		return nil, err
	}
	b.buildAxesFurniture()
	b.buildTitle()
	b.buildWatermark()
	b.buildMaxAge()

	return sheet, nil
}

// fitAxes 把数据坐标范围等比放进声明的页面矩形并居中（等宽高比，方块为正方形）。
func fitAxes(pageW, pageH float64, rect [4]float64, win grid.Window) AxesBox {
	yMin := float64(win.MinAge) - 0.5
	yMax := float64(win.MaxAge)

	boxX := pageW * rect[0]
	boxW := pageW * rect[2]
	boxH := pageH * rect[3]
	boxY := pageH * (1 - rect[1] - rect[3]) // 自下而上的 bottom 换算到顶部偏移

	unit := math.Min(boxW/(dataXMax-dataXMin), boxH/(yMax-yMin))
	gridW := unit * (dataXMax - dataXMin)
	gridH := unit * (yMax - yMin)

	return AxesBox{
		X:      boxX + (boxW-gridW)/2,
		Y:      boxY + (boxH-gridH)/2,
		Width:  gridW,
		Height: gridH,
		Unit:   unit,
		XMin:   dataXMin,
		XMax:   dataXMax,
		YMin:   yMin,
		YMax:   yMax,
	}
}

// builder 聚合一次 Build 的全部中间状态。
type builder struct {
	in       Input
	win      grid.Window
	eps      float64
	params   Params
	axes     AxesBox
	sheet    *Sheet
	measurer TextMeasurer

	anns []*annotation
}

// dataRect 把以 (cx, cy) 为中心、边长 side 的数据坐标方块换算为毫米矩形。
func (b *builder) dataRect(cx, cy, side float64) (x, y, w float64) {
	x, y = b.axes.ToMM(grid.Point{X: cx - side/2, Y: cy - side/2})
	return x, y, side * b.axes.Unit
}

func (b *builder) buildSquares() {
	side := b.params.SquareSide
	for year := b.win.MinAge; year < b.win.MaxAge; year++ {
		for week := 1; week <= grid.WeeksPerYear; week++ {
			x, y, w := b.dataRect(float64(week), float64(year), side)
			b.sheet.Squares = append(b.sheet.Squares, Rect{
				X: x, Y: y, Width: w, Height: w,
				StrokeColor: gridColor,
				StrokeWidth: b.params.GridLineWidth,
			})
		}
	}
}

func (b *builder) buildImage() {
	if b.in.Image == nil || b.in.Image.Path == "" {
		return
	}
	alpha := b.in.Image.Alpha
	if alpha <= 0 {
		alpha = 1
	}
	// 图片铺满网格单元覆盖的范围（首列左缘到末列右缘，首行上缘到末行下缘）。
	x0, y0 := b.axes.ToMM(grid.Point{X: 0.5, Y: float64(b.win.MinAge) - 0.5})
	x1, y1 := b.axes.ToMM(grid.Point{X: grid.WeeksPerYear + 0.5, Y: float64(b.win.MaxAge) - 0.5})
	b.sheet.Image = &ImageBox{
		Path:    b.in.Image.Path,
		X:       x0,
		Y:       y0,
		Width:   x1 - x0,
		Height:  y1 - y0,
		Opacity: alpha,
	}
}

func (b *builder) buildEras() {
	for _, era := range b.in.Eras {
		start := grid.Locate(b.in.Birthdate, era.Start)
		end := grid.Locate(b.in.Birthdate, era.End)
		if end.Year < b.win.MinAge || start.Year >= b.win.MaxAge {
			continue
		}
		alpha := era.Alpha
		if alpha <= 0 {
			alpha = 0.3
		}
		fill := era.Color.WithAlpha(alpha)

		fullL, fullR := 0.5, float64(grid.WeeksPerYear)+0.5
		for year := b.win.ClampYear(start.Year); year <= b.win.ClampYear(end.Year); year++ {
			l, r := fullL, fullR
			if year == start.Year {
				l = start.X - 0.5
			} else if year == end.Year {
				r = end.X + 0.5
			}
			x0, y0 := b.axes.ToMM(grid.Point{X: l, Y: float64(year) - 0.5})
			x1, y1 := b.axes.ToMM(grid.Point{X: r, Y: float64(year) + 0.5})
			f := fill
			b.sheet.Bands = append(b.sheet.Bands, Rect{
				X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0,
				FillColor: &f,
			})
		}

		// 时代标签锚定在网格边缘的时代中线上（左侧取 x=1），
		// 贴边后引线水平指回网格。
		midY := (float64(start.Year) + float64(end.Year)) / 2
		label := b.labelPoint(nil, era.Side, float64(grid.WeeksPerYear), midY, true)
		b.addAnnotation(era.Text, era.Color, label, label, false, false)
	}
}

func (b *builder) buildSpans() error {
	for _, span := range b.in.Spans {
		start := grid.Locate(b.in.Birthdate, span.Start)
		end := grid.Locate(b.in.Birthdate, span.End)
		if end.Year < b.win.MinAge || start.Year >= b.win.MaxAge {
			continue
		}
		sp := grid.Point{X: start.X, Y: float64(b.win.ClampYear(start.Year))}
		ep := grid.Point{X: end.X, Y: float64(b.win.ClampYear(end.Year))}

		r := b.params.SpanRadius
		for _, p := range []grid.Point{sp, ep} {
			cx, cy := b.axes.ToMM(p)
			b.sheet.Circles = append(b.sheet.Circles, Circle{
				CX: cx, CY: cy, R: r * b.axes.Unit,
				StrokeColor: span.Color,
				StrokeWidth: b.params.MarkerEdgeWidth,
			})
		}

		// 连接线从两个圆的边缘出发：用象限敏感的 atan2 求圆上最近点。
		a1 := math.Atan2(ep.Y-sp.Y, ep.X-sp.X)
		a2 := math.Atan2(sp.Y-ep.Y, sp.X-ep.X)
		p1 := grid.Point{X: sp.X + math.Cos(a1)*r, Y: sp.Y + math.Sin(a1)*r}
		p2 := grid.Point{X: ep.X + math.Cos(a2)*r, Y: ep.Y + math.Sin(a2)*r}
		x1, y1 := b.axes.ToMM(p1)
		x2, y2 := b.axes.ToMM(p2)
		b.sheet.Lines = append(b.sheet.Lines, Line{
			X1: x1, Y1: y1, X2: x2, Y2: y2,
			Color: span.Color,
			Width: b.params.AnnotationLineWidth,
		})

		if span.ColorEndpoints {
			for _, p := range []grid.Point{sp, ep} {
				x, y, w := b.dataRect(p.X, p.Y, b.params.SquareSide)
				b.sheet.Squares = append(b.sheet.Squares, Rect{
					X: x, Y: y, Width: w, Height: w,
					StrokeColor: span.Color,
					StrokeWidth: b.params.MarkerEdgeWidth,
				})
			}
		}

		mid := grid.Point{X: (sp.X + ep.X) / 2, Y: (sp.Y + ep.Y) / 2}
		label, hinted, err := b.hintedLabelPoint(span.Hint, span.Side, float64(grid.WeeksPerYear), mid.Y, false)
		if err != nil {
			return fmt.Errorf("era span %q: %w", span.Text, err)
		}
		b.addAnnotation(span.Text, span.Color, label, mid, false, hinted)
	}
	return nil
}

func (b *builder) buildEvents() error {
	for _, ev := range b.in.Events {
		pos := grid.Locate(b.in.Birthdate, ev.Date)
		if !b.win.Contains(pos.Year) {
			continue // 窗口外的事件静默裁剪
		}
		anchor := pos.Point()

		if !ev.PlainSquare {
			x, y, w := b.dataRect(anchor.X, anchor.Y, b.params.SquareSide)
			b.sheet.Squares = append(b.sheet.Squares, Rect{
				X: x, Y: y, Width: w, Height: w,
				StrokeColor: ev.Color,
				StrokeWidth: b.params.MarkerEdgeWidth,
			})
		}

		defaultX := 0.0
		if grid.DefaultSide(anchor.X) == grid.SideRight {
			defaultX = grid.WeeksPerYear
		}
		label, hinted, err := b.hintedLabelPoint(ev.Hint, ev.Side, defaultX, anchor.Y, false)
		if err != nil {
			return fmt.Errorf("life event %q: %w", ev.Text, err)
		}
		b.addAnnotation(ev.Text, ev.Color, label, anchor, true, hinted)
	}
	return nil
}

// labelPoint 按 side 与默认值决定标签初始位置（无 hint 的路径）。
func (b *builder) labelPoint(hint *grid.Point, side grid.Side, defaultX, defaultY float64, isEra bool) grid.Point {
	p := grid.Point{X: defaultX, Y: defaultY}
	if hint != nil {
		return sanitizeHint(*hint, b.win, dataXMax)
	}
	switch side {
	case grid.SideLeft:
		if isEra {
			p.X = 1
		} else {
			p.X = 0
		}
	case grid.SideRight:
		p.X = grid.WeeksPerYear
	}
	return p
}

// hintedLabelPoint 同时处理 hint 与 side，二者互斥。
func (b *builder) hintedLabelPoint(hint *grid.Point, side grid.Side, defaultX, defaultY float64, isEra bool) (grid.Point, bool, error) {
	if hint != nil && side != grid.SideAuto {
		return grid.Point{}, false, fmt.Errorf("hint 与 side 互斥，只能指定其一")
	}
	return b.labelPoint(hint, side, defaultX, defaultY, isEra), hint != nil, nil
}

// addAnnotation 量取文本尺寸并登记一条待布局的标注。
func (b *builder) addAnnotation(text string, color Color, label, anchor grid.Point, circle, hinted bool) {
	wMM, hMM, err := b.measurer.MeasureText(text, b.params.BaseFontSize, true)
	if err != nil || wMM <= 0 {
		// 量取失败时用字号粗估，布局照常进行。
		wMM = float64(len([]rune(text))) * b.params.BaseFontSize * 0.55
		hMM = b.params.BaseFontSize * 1.2
	}
	w := wMM / b.axes.Unit
	h := hMM / b.axes.Unit

	b.anns = append(b.anns, &annotation{
		text:   text,
		color:  color,
		x:      label.X,
		y:      label.Y,
		box:    bbox{x0: label.X, y0: label.Y - h/2, x1: label.X + w, y1: label.Y + h/2},
		anchor: anchor,
		circle: circle,
		hinted: hinted,
	})
}

// placeAnnotations 运行避让引擎并生成标签、圆圈与引线图元。
func (b *builder) placeAnnotations() error {
	final := resolveAnnotations(b.anns, placeConfig{
		window:      b.win,
		xMin:        dataXMin,
		xMax:        dataXMax,
		epsilon:     b.eps,
		leftOffset:  b.params.LeftOffset,
		rightOffset: b.params.RightOffset,
	})

	for _, a := range final {
		x, y := b.axes.ToMM(grid.Point{X: a.x, Y: a.y})
		b.sheet.Labels = append(b.sheet.Labels, TextBox{
			Content:  a.text,
			X:        x,
			Y:        y,
			FontSize: b.params.BaseFontSize,
			Color:    a.color,
			Bold:     true,
			HAlign:   "left",
			VAlign:   "center",
		})

		trim := 0.0
		if a.circle {
			cx, cy := b.axes.ToMM(a.anchor)
			b.sheet.Circles = append(b.sheet.Circles, Circle{
				CX: cx, CY: cy, R: b.params.CircleRadius * b.axes.Unit,
				StrokeColor: a.color,
				StrokeWidth: b.params.MarkerEdgeWidth,
			})
			trim = b.params.CircleRadius
		}

		attach := a.attachPoint()
		dx, dy := a.anchor.X-attach.X, a.anchor.Y-attach.Y
		dist := math.Hypot(dx, dy)
		if dist <= trim+1e-9 {
			continue // 标签与锚点重合（时代标签），无需引线
		}
		endX := a.anchor.X - dx/dist*trim
		endY := a.anchor.Y - dy/dist*trim
		x1, y1 := b.axes.ToMM(attach)
		x2, y2 := b.axes.ToMM(grid.Point{X: endX, Y: endY})
		b.sheet.Lines = append(b.sheet.Lines, Line{
			X1: x1, Y1: y1, X2: x2, Y2: y2,
			Color: a.color,
			Width: b.params.AnnotationLineWidth,
		})
	}
	return nil
}

// buildAxesFurniture 生成刻度与坐标轴标题。
func (b *builder) buildAxesFurniture() {
	// 顶部周刻度：1 以及 5 的倍数。
	ticks := []int{1}
	for t := 5; t <= grid.WeeksPerYear; t += 5 {
		ticks = append(ticks, t)
	}
	for _, t := range ticks {
		x, y := b.axes.ToMM(grid.Point{X: float64(t), Y: b.axes.YMin - 0.6})
		b.sheet.Texts = append(b.sheet.Texts, TextBox{
			Content:  fmt.Sprintf("%d", t),
			X:        x,
			Y:        y,
			FontSize: b.params.TickFontSize,
			Color:    tickColor,
			HAlign:   "center",
			VAlign:   "bottom",
		})
	}

	// 左侧年龄刻度：窗口内每 5 年一个。
	startAge := b.win.MinAge
	if rem := startAge % 5; rem != 0 {
		startAge += 5 - rem
	}
	for age := startAge; age < b.win.MaxAge; age += 5 {
		x, y := b.axes.ToMM(grid.Point{X: b.axes.XMin - 0.6, Y: float64(age)})
		b.sheet.Texts = append(b.sheet.Texts, TextBox{
			Content:  fmt.Sprintf("%d", age),
			X:        x,
			Y:        y,
			FontSize: b.params.TickFontSize,
			Color:    tickColor,
			HAlign:   "right",
			VAlign:   "center",
		})
	}

	b.sheet.Texts = append(b.sheet.Texts,
		b.axisLabel(b.in.XAxis, defaultXAxisLabel, b.params.XLabelPos, 0),
		b.axisLabel(b.in.YAxis, defaultYAxisLabel, b.params.YLabelPos, 90),
	)
}

func (b *builder) axisLabel(f AxisFormat, defText string, defPos [2]float64, rotation float64) TextBox {
	text := f.Text
	if text == "" {
		text = defText
	}
	pos := defPos
	if f.Pos != nil {
		pos = *f.Pos
	}
	color := tickColor
	if f.Color != nil {
		color = *f.Color
	}
	size := b.params.LabelFontSize
	if f.FontSize > 0 {
		size = f.FontSize * PtToMm
	}
	x, y := b.axes.FracToMM(pos[0], pos[1])
	return TextBox{
		Content:  text,
		X:        x,
		Y:        y,
		FontSize: size,
		Color:    color,
		HAlign:   "center",
		VAlign:   "center",
		Rotation: rotation,
	}
}

func (b *builder) buildTitle() {
	if b.in.Title == "" {
		return
	}
	size := b.params.TitleFontSize
	if b.in.TitleFontSize > 0 {
		size = b.in.TitleFontSize * PtToMm
	}
	b.sheet.Texts = append(b.sheet.Texts, TextBox{
		Content:  b.in.Title,
		X:        b.sheet.Width / 2,
		Y:        b.sheet.Height * (1 - b.params.TitleYFraction),
		FontSize: size,
		Color:    titleColor,
		Bold:     true,
		HAlign:   "center",
		VAlign:   "center",
	})
}

func (b *builder) buildWatermark() {
	if b.in.Watermark == "" {
		return
	}
	x, y := b.axes.FracToMM(0.5, 0.5)
	b.sheet.Texts = append(b.sheet.Texts, TextBox{
		Content:  b.in.Watermark,
		X:        x,
		Y:        y,
		FontSize: b.params.WatermarkFontSize,
		Color:    watermarkColor.WithAlpha(0.3),
		HAlign:   "center",
		VAlign:   "center",
		Rotation: 65,
	})
}

func (b *builder) buildMaxAge() {
	if !b.in.ShowMaxAge {
		return
	}
	x, y := b.axes.ToMM(grid.Point{X: dataXMax + 3, Y: float64(b.win.MaxAge)})
	b.sheet.Texts = append(b.sheet.Texts, TextBox{
		Content:  fmt.Sprintf("%d", b.win.MaxAge),
		X:        x,
		Y:        y,
		FontSize: b.params.MaxAgeFontSize,
		Color:    tickColor,
		HAlign:   "center",
		VAlign:   "bottom",
	})
}
