package lifegraph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/ByLCY/lifegrid/grid"
	"github.com/ByLCY/lifegrid/layout"
)

// 配置文件是 DSL 之外的另一种输入：同一套 schema 同时支持 JSON 与 YAML。
// 版本号固定为 1，导出时省略取默认值的字段。

const configVersion = 1

type config struct {
	Version    int            `json:"version" yaml:"version"`
	Title      *titleConfig   `json:"title,omitempty" yaml:"title,omitempty"`
	Birthdate  configDate     `json:"birthdate" yaml:"birthdate"`
	Size       string         `json:"size,omitempty" yaml:"size,omitempty"`
	MaxAge     int            `json:"max-age,omitempty" yaml:"max-age,omitempty"`
	MinAge     int            `json:"min-age,omitempty" yaml:"min-age,omitempty"`
	Epsilon    float64        `json:"epsilon,omitempty" yaml:"epsilon,omitempty"`
	DPI        float64        `json:"dpi,omitempty" yaml:"dpi,omitempty"`
	Seed       *int64         `json:"seed,omitempty" yaml:"seed,omitempty"`
	Font       string         `json:"font,omitempty" yaml:"font,omitempty"`
	Watermark  string         `json:"watermark,omitempty" yaml:"watermark,omitempty"`
	ShowMaxAge bool           `json:"show-max-age,omitempty" yaml:"show-max-age,omitempty"`
	Image      *imageConfig   `json:"image,omitempty" yaml:"image,omitempty"`
	Axes       *axesConfig    `json:"axes,omitempty" yaml:"axes,omitempty"`
	Events     []eventConfig  `json:"events,omitempty" yaml:"events,omitempty"`
	Eras       []eraConfig    `json:"eras,omitempty" yaml:"eras,omitempty"`
	Spans      []spanConfig   `json:"spans,omitempty" yaml:"spans,omitempty"`
	Meta       *metaConfig    `json:"meta,omitempty" yaml:"meta,omitempty"`
}

type imageConfig struct {
	Path  string  `json:"path" yaml:"path"`
	Alpha float64 `json:"alpha,omitempty" yaml:"alpha,omitempty"`
}

type axesConfig struct {
	X *axisConfig `json:"x,omitempty" yaml:"x,omitempty"`
	Y *axisConfig `json:"y,omitempty" yaml:"y,omitempty"`
}

type axisConfig struct {
	Label string       `json:"label,omitempty" yaml:"label,omitempty"`
	Pos   []float64    `json:"pos,omitempty" yaml:"pos,omitempty"`
	Color *configColor `json:"color,omitempty" yaml:"color,omitempty"`
	Size  float64      `json:"size,omitempty" yaml:"size,omitempty"`
}

type eventConfig struct {
	Text        string       `json:"text" yaml:"text"`
	Date        configDate   `json:"date" yaml:"date"`
	Color       *configColor `json:"color,omitempty" yaml:"color,omitempty"`
	Hint        []float64    `json:"hint,omitempty" yaml:"hint,omitempty"`
	Side        string       `json:"side,omitempty" yaml:"side,omitempty"`
	PlainSquare bool         `json:"plain-square,omitempty" yaml:"plain-square,omitempty"`
}

type eraConfig struct {
	Text  string       `json:"text" yaml:"text"`
	Start configDate   `json:"start" yaml:"start"`
	End   configDate   `json:"end" yaml:"end"`
	Color *configColor `json:"color,omitempty" yaml:"color,omitempty"`
	Side  string       `json:"side,omitempty" yaml:"side,omitempty"`
	Alpha float64      `json:"alpha,omitempty" yaml:"alpha,omitempty"`
}

type spanConfig struct {
	Text           string       `json:"text" yaml:"text"`
	Start          configDate   `json:"start" yaml:"start"`
	End            configDate   `json:"end" yaml:"end"`
	Color          *configColor `json:"color,omitempty" yaml:"color,omitempty"`
	Hint           []float64    `json:"hint,omitempty" yaml:"hint,omitempty"`
	Side           string       `json:"side,omitempty" yaml:"side,omitempty"`
	ColorEndpoints bool         `json:"color-endpoints,omitempty" yaml:"color-endpoints,omitempty"`
}

type metaConfig struct {
	Author   string   `json:"author,omitempty" yaml:"author,omitempty"`
	Subject  string   `json:"subject,omitempty" yaml:"subject,omitempty"`
	Creator  string   `json:"creator,omitempty" yaml:"creator,omitempty"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// titleConfig 既接受纯字符串，也接受 {text, size} 对象。
type titleConfig struct {
	Text string  `json:"text" yaml:"text"`
	Size float64 `json:"size,omitempty" yaml:"size,omitempty"`
}

func (t *titleConfig) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		t.Text = s
		return nil
	}
	type alias titleConfig
	return json.Unmarshal(b, (*alias)(t))
}

func (t titleConfig) MarshalJSON() ([]byte, error) {
	if t.Size == 0 {
		return json.Marshal(t.Text)
	}
	type alias titleConfig
	return json.Marshal(alias(t))
}

func (t *titleConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&t.Text)
	}
	type alias titleConfig
	return node.Decode((*alias)(t))
}

func (t titleConfig) MarshalYAML() (any, error) {
	if t.Size == 0 {
		return t.Text, nil
	}
	type alias titleConfig
	return alias(t), nil
}

// configDate 以 2006-01-02 的写法序列化日期。
type configDate struct {
	time.Time
}

func parseConfigDate(s string) (configDate, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.UTC)
	if err != nil {
		return configDate{}, fmt.Errorf("无法解析日期 %q（应为 YYYY-MM-DD）", s)
	}
	return configDate{t}, nil
}

func (d configDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format("2006-01-02"))
}

func (d *configDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := parseConfigDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d configDate) MarshalYAML() (any, error) {
	return d.Format("2006-01-02"), nil
}

func (d *configDate) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := parseConfigDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// configColor 接受颜色名、#RRGGBB 或 [r, g, b] 数组（0-1 或 0-255）。
// 导出时优先用颜色名。
type configColor struct {
	layout.Color
}

func colorFromList(vals []float64) (layout.Color, error) {
	if len(vals) != 3 {
		return layout.Color{}, fmt.Errorf("颜色数组应有 3 个分量, got %d", len(vals))
	}
	scale := 1.0
	if vals[0] <= 1 && vals[1] <= 1 && vals[2] <= 1 {
		scale = 255
	}
	return layout.RGB(int(vals[0]*scale+0.5), int(vals[1]*scale+0.5), int(vals[2]*scale+0.5)), nil
}

func (c *configColor) fromAny(s *string, vals []float64) error {
	if s != nil {
		parsed, err := ParseColor(*s)
		if err != nil {
			return err
		}
		c.Color = parsed
		return nil
	}
	parsed, err := colorFromList(vals)
	if err != nil {
		return err
	}
	c.Color = parsed
	return nil
}

func (c *configColor) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return c.fromAny(&s, nil)
	}
	var vals []float64
	if err := json.Unmarshal(b, &vals); err != nil {
		return fmt.Errorf("颜色应为字符串或 [r, g, b] 数组")
	}
	return c.fromAny(nil, vals)
}

func (c configColor) MarshalJSON() ([]byte, error) {
	if name, ok := ColorName(c.Color); ok {
		return json.Marshal(name)
	}
	return json.Marshal(c.Hex())
}

func (c *configColor) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		return c.fromAny(&s, nil)
	}
	var vals []float64
	if err := node.Decode(&vals); err != nil {
		return fmt.Errorf("颜色应为字符串或 [r, g, b] 数组")
	}
	return c.fromAny(nil, vals)
}

func (c configColor) MarshalYAML() (any, error) {
	if name, ok := ColorName(c.Color); ok {
		return name, nil
	}
	return c.Hex(), nil
}

// ImportConfigFile 读取 JSON/YAML 配置并构造 Lifegraph。
func ImportConfigFile(path string) (*Lifegraph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件: %w", err)
	}

	var cfg config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("解析配置 %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("解析配置 %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("不支持的配置格式 %q（应为 .json/.yaml/.yml）", ext)
	}

	lg, err := fromConfig(&cfg)
	if err != nil {
		return nil, fmt.Errorf("配置 %s: %w", path, err)
	}
	lg.SetBaseDir(filepath.Dir(path))
	return lg, nil
}

// ExportConfigFile 把当前声明写成配置文件，格式由扩展名决定。
func (lg *Lifegraph) ExportConfigFile(path string) error {
	cfg := lg.toConfig()

	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		return fmt.Errorf("不支持的配置格式 %q（应为 .json/.yaml/.yml）", ext)
	}
	if err != nil {
		return fmt.Errorf("序列化配置: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func fromConfig(cfg *config) (*Lifegraph, error) {
	if cfg.Version != configVersion {
		return nil, fmt.Errorf("不支持的配置版本 %d（当前为 %d）", cfg.Version, configVersion)
	}
	if cfg.Birthdate.IsZero() {
		return nil, fmt.Errorf("缺少 birthdate")
	}
	size, err := layout.ParsePapersize(cfg.Size)
	if err != nil {
		return nil, err
	}

	lg, err := New(cfg.Birthdate.Time, Options{
		Size:    size,
		DPI:     cfg.DPI,
		MaxAge:  cfg.MaxAge,
		MinAge:  cfg.MinAge,
		Epsilon: cfg.Epsilon,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Seed != nil {
		lg.SetSeed(*cfg.Seed)
	}
	if cfg.Font != "" {
		lg.SetFont(cfg.Font)
	}
	if cfg.Title != nil {
		lg.AddTitle(cfg.Title.Text, cfg.Title.Size)
	}
	if cfg.Watermark != "" {
		lg.AddWatermark(cfg.Watermark)
	}
	if cfg.ShowMaxAge {
		lg.ShowMaxAgeLabel()
	}
	if cfg.Image != nil {
		lg.AddImage(cfg.Image.Path, cfg.Image.Alpha)
	}
	if cfg.Axes != nil {
		if cfg.Axes.X != nil {
			f, err := cfg.Axes.X.toAxisFormat()
			if err != nil {
				return nil, fmt.Errorf("axes.x: %w", err)
			}
			lg.FormatXAxis(f)
		}
		if cfg.Axes.Y != nil {
			f, err := cfg.Axes.Y.toAxisFormat()
			if err != nil {
				return nil, fmt.Errorf("axes.y: %w", err)
			}
			lg.FormatYAxis(f)
		}
	}
	if cfg.Meta != nil {
		lg.SetMeta(layout.DocumentMeta{
			Title:    titleText(cfg.Title),
			Author:   cfg.Meta.Author,
			Subject:  cfg.Meta.Subject,
			Creator:  cfg.Meta.Creator,
			Keywords: cfg.Meta.Keywords,
		})
	}

	for _, ec := range cfg.Events {
		side, err := grid.ParseSide(ec.Side)
		if err != nil {
			return nil, fmt.Errorf("事件 %q: %w", ec.Text, err)
		}
		hint, err := hintFromList(ec.Hint)
		if err != nil {
			return nil, fmt.Errorf("事件 %q: %w", ec.Text, err)
		}
		if err := lg.AddLifeEvent(LifeEvent{
			Text:        ec.Text,
			Date:        ec.Date.Time,
			Color:       colorPtr(ec.Color),
			Hint:        hint,
			Side:        side,
			PlainSquare: ec.PlainSquare,
		}); err != nil {
			return nil, err
		}
	}
	for _, ec := range cfg.Eras {
		side, err := grid.ParseSide(ec.Side)
		if err != nil {
			return nil, fmt.Errorf("时代 %q: %w", ec.Text, err)
		}
		if err := lg.AddEra(Era{
			Text:  ec.Text,
			Start: ec.Start.Time,
			End:   ec.End.Time,
			Color: colorPtr(ec.Color),
			Side:  side,
			Alpha: ec.Alpha,
		}); err != nil {
			return nil, err
		}
	}
	for _, sc := range cfg.Spans {
		side, err := grid.ParseSide(sc.Side)
		if err != nil {
			return nil, fmt.Errorf("区间 %q: %w", sc.Text, err)
		}
		hint, err := hintFromList(sc.Hint)
		if err != nil {
			return nil, fmt.Errorf("区间 %q: %w", sc.Text, err)
		}
		if err := lg.AddEraSpan(EraSpan{
			Text:           sc.Text,
			Start:          sc.Start.Time,
			End:            sc.End.Time,
			Color:          colorPtr(sc.Color),
			Hint:           hint,
			Side:           side,
			ColorEndpoints: sc.ColorEndpoints,
		}); err != nil {
			return nil, err
		}
	}
	return lg, nil
}

func (lg *Lifegraph) toConfig() *config {
	cfg := &config{
		Version:    configVersion,
		Birthdate:  configDate{lg.birthdate},
		Watermark:  lg.watermark,
		ShowMaxAge: lg.showMaxAge,
		Seed:       lg.seed,
		Font:       lg.fontPath,
		DPI:        lg.opts.DPI,
	}
	// 取默认值的字段省略。
	if lg.opts.Size != layout.A3 {
		cfg.Size = string(lg.opts.Size)
	}
	if lg.opts.MaxAge != layout.DefaultMaxAge {
		cfg.MaxAge = lg.opts.MaxAge
	}
	cfg.MinAge = lg.opts.MinAge
	if lg.opts.Epsilon != layout.DefaultEpsilon {
		cfg.Epsilon = lg.opts.Epsilon
	}
	if lg.title != "" {
		cfg.Title = &titleConfig{Text: lg.title, Size: lg.titleFontSize}
	}
	if lg.image != nil {
		cfg.Image = &imageConfig{Path: lg.image.Path, Alpha: lg.image.Alpha}
	}
	if x, y := axisToConfig(lg.xAxis), axisToConfig(lg.yAxis); x != nil || y != nil {
		cfg.Axes = &axesConfig{X: x, Y: y}
	}
	if m := lg.meta; m.Author != "" || m.Subject != "" || m.Creator != "" || len(m.Keywords) > 0 {
		cfg.Meta = &metaConfig{Author: m.Author, Subject: m.Subject, Creator: m.Creator, Keywords: m.Keywords}
	}

	for _, ev := range lg.events {
		cfg.Events = append(cfg.Events, eventConfig{
			Text:        ev.Text,
			Date:        configDate{ev.Date},
			Color:       configColorPtr(ev.Color),
			Hint:        hintToList(ev.Hint),
			Side:        ev.Side.String(),
			PlainSquare: ev.PlainSquare,
		})
	}
	for _, era := range lg.eras {
		cfg.Eras = append(cfg.Eras, eraConfig{
			Text:  era.Text,
			Start: configDate{era.Start},
			End:   configDate{era.End},
			Color: configColorPtr(era.Color),
			Side:  era.Side.String(),
			Alpha: era.Alpha,
		})
	}
	for _, span := range lg.spans {
		cfg.Spans = append(cfg.Spans, spanConfig{
			Text:           span.Text,
			Start:          configDate{span.Start},
			End:            configDate{span.End},
			Color:          configColorPtr(span.Color),
			Hint:           hintToList(span.Hint),
			Side:           span.Side.String(),
			ColorEndpoints: span.ColorEndpoints,
		})
	}
	return cfg
}

func (a *axisConfig) toAxisFormat() (layout.AxisFormat, error) {
	f := layout.AxisFormat{Text: a.Label, FontSize: a.Size}
	if len(a.Pos) > 0 {
		if len(a.Pos) != 2 {
			return f, fmt.Errorf("pos 应为 [x, y], got %v", a.Pos)
		}
		f.Pos = &[2]float64{a.Pos[0], a.Pos[1]}
	}
	if a.Color != nil {
		c := a.Color.Color
		f.Color = &c
	}
	return f, nil
}

func axisToConfig(f layout.AxisFormat) *axisConfig {
	if f.Text == "" && f.Pos == nil && f.Color == nil && f.FontSize == 0 {
		return nil
	}
	a := &axisConfig{Label: f.Text, Size: f.FontSize}
	if f.Pos != nil {
		a.Pos = []float64{f.Pos[0], f.Pos[1]}
	}
	if f.Color != nil {
		a.Color = &configColor{*f.Color}
	}
	return a
}

func hintFromList(vals []float64) (*grid.Point, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	if len(vals) != 2 {
		return nil, fmt.Errorf("hint 应为 [x, y], got %v", vals)
	}
	return &grid.Point{X: vals[0], Y: vals[1]}, nil
}

func hintToList(p *grid.Point) []float64 {
	if p == nil {
		return nil
	}
	return []float64{p.X, p.Y}
}

func colorPtr(c *configColor) *layout.Color {
	if c == nil {
		return nil
	}
	out := c.Color
	return &out
}

func configColorPtr(c *layout.Color) *configColor {
	if c == nil {
		return nil
	}
	return &configColor{*c}
}

func titleText(t *titleConfig) string {
	if t == nil {
		return ""
	}
	return t.Text
}
