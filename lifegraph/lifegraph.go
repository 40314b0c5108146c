package lifegraph

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/ByLCY/lifegrid/binding"
	"github.com/ByLCY/lifegrid/grid"
	"github.com/ByLCY/lifegrid/layout"
	canvasrenderer "github.com/ByLCY/lifegrid/renderer/canvas"
)

// Options 配置一张人生周历。零值字段取默认：A3、90 岁、0.2 间距。
type Options struct {
	Size    layout.Papersize
	DPI     float64 // 仅 PNG 输出使用
	MaxAge  int
	MinAge  int
	Epsilon float64
}

// LifeEvent 是一个点状的生活事件。Color 为空时随机取色。
// Hint 与 Side 互斥：Hint 直接指定标签位置，Side 只指定摆放侧。
type LifeEvent struct {
	Text        string
	Date        time.Time
	Color       *layout.Color
	Hint        *grid.Point
	Side        grid.Side
	PlainSquare bool // true 时事件方块不上色
}

// Era 是一段着色的时代区间。
type Era struct {
	Text  string
	Start time.Time
	End   time.Time
	Color *layout.Color
	Side  grid.Side
	Alpha float64 // 0 时取 0.3
}

// EraSpan 是一段哑铃标注的区间。
type EraSpan struct {
	Text           string
	Start          time.Time
	End            time.Time
	Color          *layout.Color
	Hint           *grid.Point
	Side           grid.Side
	ColorEndpoints bool
}

// Lifegraph 聚合一张海报的全部声明，延迟到 Layout 时才计算几何。
type Lifegraph struct {
	birthdate time.Time
	opts      Options
	window    grid.Window

	title         string
	titleFontSize float64
	watermark     string
	image         *layout.ImageSpec
	showMaxAge    bool
	xAxis, yAxis  layout.AxisFormat
	meta          layout.DocumentMeta

	events []LifeEvent
	eras   []Era
	spans  []EraSpan

	data     any // ${path} 插值数据
	fontPath string
	baseDir  string
	seed     *int64 // 用户显式指定的种子，导出配置时回写
	rngSeed  int64  // 实际生效的种子，每次 Layout 重放
}

// New 创建一张以 birthdate 为原点的人生周历。
func New(birthdate time.Time, opts Options) (*Lifegraph, error) {
	if birthdate.IsZero() {
		return nil, fmt.Errorf("lifegraph: 缺少出生日期")
	}
	if opts.Size == "" {
		opts.Size = layout.A3
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = layout.DefaultMaxAge
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = layout.DefaultEpsilon
	}
	win := grid.Window{MinAge: opts.MinAge, MaxAge: opts.MaxAge}
	if err := win.Validate(); err != nil {
		return nil, err
	}
	return &Lifegraph{
		birthdate: birthdate,
		opts:      opts,
		window:    win,
		baseDir:   ".",
		rngSeed:   time.Now().UnixNano(),
	}, nil
}

// SetSeed 固定随机取色的种子，使未指定颜色的元素可复现。
func (lg *Lifegraph) SetSeed(seed int64) {
	lg.seed = &seed
	lg.rngSeed = seed
}

// SetFont 指定渲染与量字所用的字体文件。
func (lg *Lifegraph) SetFont(path string) { lg.fontPath = path }

// SetDPI 覆盖 PNG 输出分辨率。
func (lg *Lifegraph) SetDPI(dpi float64) { lg.opts.DPI = dpi }

// Font 返回当前生效的字体文件路径，为空表示使用系统字体。
func (lg *Lifegraph) Font() string { return lg.fontPath }

// SetBaseDir 指定解析图片相对路径的根目录。
func (lg *Lifegraph) SetBaseDir(dir string) { lg.baseDir = dir }

// Bind 绑定 ${path.to.value} 插值数据，对标题、水印与全部标签文本生效。
func (lg *Lifegraph) Bind(data any) { lg.data = data }

// AddTitle 设置海报标题。sizePt <= 0 时按纸张缩放。
func (lg *Lifegraph) AddTitle(text string, sizePt float64) {
	lg.title = text
	lg.titleFontSize = sizePt
	lg.meta.Title = text
}

// AddWatermark 设置斜排水印。
func (lg *Lifegraph) AddWatermark(text string) { lg.watermark = text }

// AddImage 在网格底下铺一张图片，alpha 为整体透明度（0 视为 1）。
func (lg *Lifegraph) AddImage(path string, alpha float64) {
	lg.image = &layout.ImageSpec{Path: path, Alpha: alpha}
}

// ShowMaxAgeLabel 在网格右下角标注最大年龄。
func (lg *Lifegraph) ShowMaxAgeLabel() { lg.showMaxAge = true }

// FormatXAxis 覆盖 x 轴标题的文本、位置、颜色与字号。
func (lg *Lifegraph) FormatXAxis(f layout.AxisFormat) { lg.xAxis = f }

// FormatYAxis 覆盖 y 轴标题的文本、位置、颜色与字号。
func (lg *Lifegraph) FormatYAxis(f layout.AxisFormat) { lg.yAxis = f }

// SetMeta 设置输出文件的文档元信息。
func (lg *Lifegraph) SetMeta(meta layout.DocumentMeta) { lg.meta = meta }

// AddLifeEvent 登记一个生活事件。日期必须落在出生日与最大年龄之间。
func (lg *Lifegraph) AddLifeEvent(ev LifeEvent) error {
	if err := lg.checkPlacement(ev.Hint, ev.Side); err != nil {
		return fmt.Errorf("事件 %q: %w", ev.Text, err)
	}
	if err := lg.window.CheckDate(lg.birthdate, ev.Date); err != nil {
		return fmt.Errorf("事件 %q: %w", ev.Text, err)
	}
	lg.events = append(lg.events, ev)
	return nil
}

// AddEra 登记一段时代区间。
func (lg *Lifegraph) AddEra(era Era) error {
	if err := lg.checkRange(era.Start, era.End); err != nil {
		return fmt.Errorf("时代 %q: %w", era.Text, err)
	}
	lg.eras = append(lg.eras, era)
	return nil
}

// AddEraSpan 登记一段哑铃标注的区间。
func (lg *Lifegraph) AddEraSpan(span EraSpan) error {
	if err := lg.checkPlacement(span.Hint, span.Side); err != nil {
		return fmt.Errorf("区间 %q: %w", span.Text, err)
	}
	if err := lg.checkRange(span.Start, span.End); err != nil {
		return fmt.Errorf("区间 %q: %w", span.Text, err)
	}
	lg.spans = append(lg.spans, span)
	return nil
}

func (lg *Lifegraph) checkPlacement(hint *grid.Point, side grid.Side) error {
	if hint != nil && side != grid.SideAuto {
		return fmt.Errorf("hint 与 side 互斥，只能指定其一")
	}
	return nil
}

func (lg *Lifegraph) checkRange(start, end time.Time) error {
	if end.Before(start) {
		return fmt.Errorf("结束日期 %s 早于开始日期 %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	if err := lg.window.CheckDate(lg.birthdate, start); err != nil {
		return err
	}
	return lg.window.CheckDate(lg.birthdate, end)
}

// Layout 解析颜色与插值并计算整张海报的几何。
// 随机取色每次都从头重放同一种子，因此重复 Layout（比如调试输出
// 与最终渲染各算一遍）得到同样的颜色。
func (lg *Lifegraph) Layout(measurer layout.TextMeasurer) (*layout.Sheet, error) {
	rng := rand.New(rand.NewSource(lg.rngSeed))
	in := layout.Input{
		Birthdate:     lg.birthdate,
		Window:        lg.window,
		Size:          lg.opts.Size,
		Epsilon:       lg.opts.Epsilon,
		Title:         lg.interpolate(lg.title),
		TitleFontSize: lg.titleFontSize,
		Watermark:     lg.interpolate(lg.watermark),
		Image:         lg.image,
		ShowMaxAge:    lg.showMaxAge,
		XAxis:         lg.xAxis,
		YAxis:         lg.yAxis,
		Meta:          lg.meta,
	}

	for _, ev := range lg.events {
		in.Events = append(in.Events, layout.Event{
			Text:        lg.interpolate(ev.Text),
			Date:        ev.Date,
			Color:       resolveColor(rng, ev.Color),
			Hint:        ev.Hint,
			Side:        ev.Side,
			PlainSquare: ev.PlainSquare,
		})
	}
	for _, era := range lg.eras {
		in.Eras = append(in.Eras, layout.Era{
			Text:  lg.interpolate(era.Text),
			Start: era.Start,
			End:   era.End,
			Color: resolveColor(rng, era.Color),
			Side:  era.Side,
			Alpha: era.Alpha,
		})
	}
	for _, span := range lg.spans {
		in.Spans = append(in.Spans, layout.Span{
			Text:           lg.interpolate(span.Text),
			Start:          span.Start,
			End:            span.End,
			Color:          resolveColor(rng, span.Color),
			Hint:           span.Hint,
			Side:           span.Side,
			ColorEndpoints: span.ColorEndpoints,
		})
	}

	return layout.Build(in, layout.BuildOptions{Measurer: measurer})
}

// Save 渲染并写出海报，格式由扩展名决定（.pdf/.svg/.png）。
func (lg *Lifegraph) Save(path string) error {
	format, err := canvasrenderer.FormatForPath(path)
	if err != nil {
		return err
	}
	r := canvasrenderer.NewRenderer(canvasrenderer.Options{
		Format:   format,
		DPI:      lg.opts.DPI,
		FontPath: lg.fontPath,
		BaseDir:  lg.baseDir,
	})
	sheet, err := lg.Layout(r)
	if err != nil {
		return err
	}
	data, err := r.Render(sheet)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func (lg *Lifegraph) interpolate(text string) string {
	return binding.Interpolate(text, lg.data)
}

func resolveColor(rng *rand.Rand, c *layout.Color) layout.Color {
	if c != nil {
		return *c
	}
	return randomColor(rng)
}
