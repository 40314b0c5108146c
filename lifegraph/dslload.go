package lifegraph

import (
	"fmt"
	"time"

	"github.com/ByLCY/lifegrid/dsl"
	"github.com/ByLCY/lifegrid/grid"
	"github.com/ByLCY/lifegrid/layout"
)

// FromDocument 把解析后的 DSL 文档解释成 Lifegraph。
// 文档头的标题即海报标题；文档级赋值对应 Options；
// event/era/span/image/axis 命令对应同名的 Add/Format 调用。
func FromDocument(doc *dsl.Document) (*Lifegraph, error) {
	if doc == nil {
		return nil, fmt.Errorf("lifegraph: 文档为空")
	}
	if doc.Version != "v1" {
		return nil, fmt.Errorf("不支持的 DSL 版本 %q（当前为 v1）", doc.Version)
	}

	// 第一遍收集文档级赋值，birthdate 与窗口先于命令生效。
	var (
		birthdate  time.Time
		opts       Options
		titleSize  float64
		watermark  string
		seed       *int64
		font       string
		showMaxAge bool
	)
	for _, st := range doc.Statements {
		a := st.Assignment
		if a == nil {
			continue
		}
		switch a.Key {
		case "birthdate":
			d, err := valueDate(a.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: birthdate: %w", a.Pos, err)
			}
			birthdate = d
		case "max-age":
			n, err := valueNumber(a.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: max-age: %w", a.Pos, err)
			}
			opts.MaxAge = int(n)
		case "min-age":
			n, err := valueNumber(a.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: min-age: %w", a.Pos, err)
			}
			opts.MinAge = int(n)
		case "size":
			name, ok := a.Value.Text()
			if !ok {
				return nil, fmt.Errorf("%s: size 应为纸张名, got %s", a.Pos, a.Value.Kind())
			}
			size, err := layout.ParsePapersize(name)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", a.Pos, err)
			}
			opts.Size = size
		case "epsilon":
			n, err := valueNumber(a.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: epsilon: %w", a.Pos, err)
			}
			opts.Epsilon = n
		case "dpi":
			n, err := valueNumber(a.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: dpi: %w", a.Pos, err)
			}
			opts.DPI = n
		case "seed":
			n, err := valueNumber(a.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: seed: %w", a.Pos, err)
			}
			s := int64(n)
			seed = &s
		case "title-size":
			n, err := valueNumber(a.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: title-size: %w", a.Pos, err)
			}
			titleSize = n
		case "watermark":
			s, ok := a.Value.Text()
			if !ok {
				return nil, fmt.Errorf("%s: watermark 应为字符串", a.Pos)
			}
			watermark = s
		case "font":
			s, ok := a.Value.Text()
			if !ok {
				return nil, fmt.Errorf("%s: font 应为字符串", a.Pos)
			}
			font = s
		case "show-max-age":
			b, err := valueBool(a.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: show-max-age: %w", a.Pos, err)
			}
			showMaxAge = b
		default:
			return nil, fmt.Errorf("%s: 未知的文档属性 %q", a.Pos, a.Key)
		}
	}

	if birthdate.IsZero() {
		return nil, fmt.Errorf("缺少 birthdate")
	}
	lg, err := New(birthdate, opts)
	if err != nil {
		return nil, err
	}
	if title := string(doc.Title); title != "" {
		lg.AddTitle(title, titleSize)
	}
	if watermark != "" {
		lg.AddWatermark(watermark)
	}
	if seed != nil {
		lg.SetSeed(*seed)
	}
	if font != "" {
		lg.SetFont(font)
	}
	if showMaxAge {
		lg.ShowMaxAgeLabel()
	}

	for _, st := range doc.Statements {
		cmd := st.Command
		if cmd == nil {
			continue
		}
		if err := applyCommand(lg, cmd); err != nil {
			return nil, err
		}
	}
	return lg, nil
}

func applyCommand(lg *Lifegraph, cmd *dsl.Command) error {
	switch cmd.Name {
	case "event":
		return applyEvent(lg, cmd)
	case "era":
		return applyEra(lg, cmd)
	case "span":
		return applySpan(lg, cmd)
	case "image":
		if cmd.Label == nil {
			return fmt.Errorf("%s: image 缺少路径", cmd.Pos)
		}
		alpha := 0.0
		if v := cmd.Block.Get("alpha"); v != nil {
			n, err := valueNumber(v)
			if err != nil {
				return fmt.Errorf("%s: image alpha: %w", cmd.Pos, err)
			}
			alpha = n
		}
		lg.AddImage(string(*cmd.Label), alpha)
		return nil
	case "axis":
		return applyAxis(lg, cmd)
	default:
		return fmt.Errorf("%s: 未知命令 %q", cmd.Pos, cmd.Name)
	}
}

func applyEvent(lg *Lifegraph, cmd *dsl.Command) error {
	if cmd.Label == nil {
		return fmt.Errorf("%s: event 缺少标签文本", cmd.Pos)
	}
	text := string(*cmd.Label)

	date, err := requiredDate(cmd, "date")
	if err != nil {
		return err
	}
	color, err := optionalColor(cmd.Block.Get("color"))
	if err != nil {
		return fmt.Errorf("%s: event %q: %w", cmd.Pos, text, err)
	}
	hint, err := optionalHint(cmd.Block.Get("hint"))
	if err != nil {
		return fmt.Errorf("%s: event %q: %w", cmd.Pos, text, err)
	}
	side, err := optionalSide(cmd.Block.Get("side"))
	if err != nil {
		return fmt.Errorf("%s: event %q: %w", cmd.Pos, text, err)
	}
	plain := false
	if v := cmd.Block.Get("plain-square"); v != nil {
		if plain, err = valueBool(v); err != nil {
			return fmt.Errorf("%s: event %q: plain-square: %w", cmd.Pos, text, err)
		}
	}
	return lg.AddLifeEvent(LifeEvent{
		Text: text, Date: date, Color: color, Hint: hint, Side: side, PlainSquare: plain,
	})
}

func applyEra(lg *Lifegraph, cmd *dsl.Command) error {
	if cmd.Label == nil {
		return fmt.Errorf("%s: era 缺少标签文本", cmd.Pos)
	}
	text := string(*cmd.Label)

	start, err := requiredDate(cmd, "start")
	if err != nil {
		return err
	}
	end, err := requiredDate(cmd, "end")
	if err != nil {
		return err
	}
	color, err := optionalColor(cmd.Block.Get("color"))
	if err != nil {
		return fmt.Errorf("%s: era %q: %w", cmd.Pos, text, err)
	}
	side, err := optionalSide(cmd.Block.Get("side"))
	if err != nil {
		return fmt.Errorf("%s: era %q: %w", cmd.Pos, text, err)
	}
	alpha := 0.0
	if v := cmd.Block.Get("alpha"); v != nil {
		if alpha, err = valueNumber(v); err != nil {
			return fmt.Errorf("%s: era %q: alpha: %w", cmd.Pos, text, err)
		}
	}
	return lg.AddEra(Era{Text: text, Start: start, End: end, Color: color, Side: side, Alpha: alpha})
}

func applySpan(lg *Lifegraph, cmd *dsl.Command) error {
	if cmd.Label == nil {
		return fmt.Errorf("%s: span 缺少标签文本", cmd.Pos)
	}
	text := string(*cmd.Label)

	start, err := requiredDate(cmd, "start")
	if err != nil {
		return err
	}
	end, err := requiredDate(cmd, "end")
	if err != nil {
		return err
	}
	color, err := optionalColor(cmd.Block.Get("color"))
	if err != nil {
		return fmt.Errorf("%s: span %q: %w", cmd.Pos, text, err)
	}
	hint, err := optionalHint(cmd.Block.Get("hint"))
	if err != nil {
		return fmt.Errorf("%s: span %q: %w", cmd.Pos, text, err)
	}
	side, err := optionalSide(cmd.Block.Get("side"))
	if err != nil {
		return fmt.Errorf("%s: span %q: %w", cmd.Pos, text, err)
	}
	endpoints := false
	if v := cmd.Block.Get("color-endpoints"); v != nil {
		if endpoints, err = valueBool(v); err != nil {
			return fmt.Errorf("%s: span %q: color-endpoints: %w", cmd.Pos, text, err)
		}
	}
	return lg.AddEraSpan(EraSpan{
		Text: text, Start: start, End: end,
		Color: color, Hint: hint, Side: side, ColorEndpoints: endpoints,
	})
}

func applyAxis(lg *Lifegraph, cmd *dsl.Command) error {
	var f layout.AxisFormat
	if v := cmd.Block.Get("label"); v != nil {
		s, ok := v.Text()
		if !ok {
			return fmt.Errorf("%s: axis label 应为字符串", cmd.Pos)
		}
		f.Text = s
	}
	if v := cmd.Block.Get("pos"); v != nil {
		p, err := optionalHint(v)
		if err != nil {
			return fmt.Errorf("%s: axis pos: %w", cmd.Pos, err)
		}
		if p != nil {
			f.Pos = &[2]float64{p.X, p.Y}
		}
	}
	if v := cmd.Block.Get("color"); v != nil {
		c, err := optionalColor(v)
		if err != nil {
			return fmt.Errorf("%s: axis color: %w", cmd.Pos, err)
		}
		f.Color = c
	}
	if v := cmd.Block.Get("size"); v != nil {
		n, err := valueNumber(v)
		if err != nil {
			return fmt.Errorf("%s: axis size: %w", cmd.Pos, err)
		}
		f.FontSize = n
	}

	switch cmd.Arg {
	case "x":
		lg.FormatXAxis(f)
	case "y":
		lg.FormatYAxis(f)
	default:
		return fmt.Errorf("%s: axis 应指定 x 或 y, got %q", cmd.Pos, cmd.Arg)
	}
	return nil
}

func requiredDate(cmd *dsl.Command, key string) (time.Time, error) {
	v := cmd.Block.Get(key)
	if v == nil {
		return time.Time{}, fmt.Errorf("%s: %s 缺少 %s", cmd.Pos, cmd.Name, key)
	}
	d, err := valueDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %s: %w", cmd.Pos, key, err)
	}
	return d, nil
}

func valueDate(v *dsl.Value) (time.Time, error) {
	if v == nil || v.Date == nil {
		return time.Time{}, fmt.Errorf("应为日期（YYYY-MM-DD）, got %s", v.Kind())
	}
	return v.Date.Time(), nil
}

func valueNumber(v *dsl.Value) (float64, error) {
	if v == nil || v.Number == nil {
		return 0, fmt.Errorf("应为数字, got %s", v.Kind())
	}
	return v.Number.Value, nil
}

func valueBool(v *dsl.Value) (bool, error) {
	if v == nil || v.Bool == nil {
		return false, fmt.Errorf("应为 true/false, got %s", v.Kind())
	}
	return bool(*v.Bool), nil
}

func optionalColor(v *dsl.Value) (*layout.Color, error) {
	if v == nil {
		return nil, nil
	}
	switch {
	case v.Color != nil:
		c, err := layout.ParseHexColor(*v.Color)
		if err != nil {
			return nil, err
		}
		return &c, nil
	case v.Ident != nil:
		c, err := ParseColor(*v.Ident)
		if err != nil {
			return nil, err
		}
		return &c, nil
	default:
		return nil, fmt.Errorf("颜色应为 #RRGGBB 或颜色名, got %s", v.Kind())
	}
}

func optionalHint(v *dsl.Value) (*grid.Point, error) {
	if v == nil {
		return nil, nil
	}
	if v.Array == nil || len(v.Array.Values) != 2 {
		return nil, fmt.Errorf("应为 [x, y] 数组, got %s", v.Kind())
	}
	x, err := valueNumber(v.Array.Values[0])
	if err != nil {
		return nil, err
	}
	y, err := valueNumber(v.Array.Values[1])
	if err != nil {
		return nil, err
	}
	return &grid.Point{X: x, Y: y}, nil
}

func optionalSide(v *dsl.Value) (grid.Side, error) {
	if v == nil {
		return grid.SideAuto, nil
	}
	s, ok := v.Text()
	if !ok {
		return grid.SideAuto, fmt.Errorf("side 应为 left/right, got %s", v.Kind())
	}
	return grid.ParseSide(s)
}
