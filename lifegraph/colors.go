package lifegraph

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/ByLCY/lifegrid/layout"
)

// 常用颜色名。配置文件与 DSL 里的颜色既可以写 #RRGGBB，也可以写这里的名字。
var namedColors = map[string]layout.Color{
	"black":     layout.RGB(0, 0, 0),
	"white":     layout.RGB(255, 255, 255),
	"gray":      layout.RGB(128, 128, 128),
	"grey":      layout.RGB(128, 128, 128),
	"silver":    layout.RGB(192, 192, 192),
	"red":       layout.RGB(255, 0, 0),
	"darkred":   layout.RGB(139, 0, 0),
	"crimson":   layout.RGB(220, 20, 60),
	"salmon":    layout.RGB(250, 128, 114),
	"orange":    layout.RGB(255, 165, 0),
	"gold":      layout.RGB(255, 215, 0),
	"yellow":    layout.RGB(255, 255, 0),
	"olive":     layout.RGB(128, 128, 0),
	"green":     layout.RGB(0, 128, 0),
	"darkgreen": layout.RGB(0, 100, 0),
	"lime":      layout.RGB(0, 255, 0),
	"seagreen":  layout.RGB(46, 139, 87),
	"teal":      layout.RGB(0, 128, 128),
	"cyan":      layout.RGB(0, 255, 255),
	"skyblue":   layout.RGB(135, 206, 235),
	"steelblue": layout.RGB(70, 130, 180),
	"blue":      layout.RGB(0, 0, 255),
	"darkblue":  layout.RGB(0, 0, 139),
	"navy":      layout.RGB(0, 0, 128),
	"indigo":    layout.RGB(75, 0, 130),
	"purple":    layout.RGB(128, 0, 128),
	"violet":    layout.RGB(238, 130, 238),
	"magenta":   layout.RGB(255, 0, 255),
	"pink":      layout.RGB(255, 192, 203),
	"brown":     layout.RGB(165, 42, 42),
	"chocolate": layout.RGB(210, 105, 30),
	"tan":       layout.RGB(210, 180, 140),
}

// ParseColor 解析颜色名或 #RGB/#RRGGBB/#RRGGBBAA 写法。
func ParseColor(s string) (layout.Color, error) {
	if strings.HasPrefix(strings.TrimSpace(s), "#") {
		return layout.ParseHexColor(s)
	}
	if c, ok := namedColors[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return layout.Color{}, fmt.Errorf("无法识别的颜色 %q（应为颜色名或 #RRGGBB）", s)
}

// ColorName 反查颜色名；命中时配置导出用名字而非十六进制。
func ColorName(c layout.Color) (string, bool) {
	for name, v := range namedColors {
		if name == "grey" {
			continue
		}
		if v.R == c.R && v.G == c.G && v.B == c.B {
			return name, true
		}
	}
	return "", false
}

// randomColor 从调色板随机取色。未指定颜色的元素逐个取色，
// 同一个种子下取色序列可复现。
func randomColor(rng *rand.Rand) layout.Color {
	return palette[rng.Intn(len(palette))]
}

// palette 按名字典序排列，保证随机序列只取决于种子。
var palette = func() []layout.Color {
	names := make([]string, 0, len(namedColors))
	for name := range namedColors {
		switch name {
		case "white", "grey", "silver", "tan", "pink", "yellow", "lime", "cyan":
			// 太浅的颜色在白底海报上看不清。
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]layout.Color, len(names))
	for i, name := range names {
		out[i] = namedColors[name]
	}
	return out
}()
