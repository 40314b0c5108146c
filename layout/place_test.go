package layout

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"github.com/ByLCY/lifegrid/grid"
)

func testPlaceConfig() placeConfig {
	return placeConfig{
		window:      grid.Window{MinAge: 0, MaxAge: 90},
		xMin:        -0.5,
		xMax:        52,
		epsilon:     0.2,
		leftOffset:  6,
		rightOffset: 5,
	}
}

// newAnn 构造一条测试标注：标签左缘纵向居中于 (x, y)。
func newAnn(x, y, w, h float64, anchor grid.Point, hinted bool) *annotation {
	return &annotation{
		x: x, y: y,
		box:    bbox{x0: x, y0: y - h/2, x1: x + w, y1: y + h/2},
		anchor: anchor,
		hinted: hinted,
	}
}

func TestSanitizeHint(t *testing.T) {
	win := grid.Window{MinAge: 0, MaxAge: 90}
	tests := []struct {
		name string
		in   grid.Point
		want grid.Point
	}{
		{"网格右半边贴右缘", grid.Point{X: 30, Y: 10}, grid.Point{X: 52, Y: 10}},
		{"网格左半边贴左缘", grid.Point{X: 10, Y: 10}, grid.Point{X: 0, Y: 10}},
		{"右侧过远收回", grid.Point{X: 70, Y: 10}, grid.Point{X: 52, Y: 10}},
		{"左侧过远收回", grid.Point{X: -20, Y: 10}, grid.Point{X: 0, Y: 10}},
		{"右侧留白带内保留", grid.Point{X: 55, Y: 10}, grid.Point{X: 55, Y: 10}},
		{"左侧留白带内保留", grid.Point{X: -3, Y: 10}, grid.Point{X: -3, Y: 10}},
		{"窗口外不动", grid.Point{X: 30, Y: 120}, grid.Point{X: 30, Y: 120}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeHint(tt.in, win, 52); got != tt.want {
				t.Fatalf("sanitizeHint(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveSideSplit(t *testing.T) {
	pc := testPlaceConfig()
	l := newAnn(0, 10, 4, 1, grid.Point{X: 10, Y: 10}, false)
	r := newAnn(52, 40, 4, 1, grid.Point{X: 40, Y: 40}, false)

	final := resolveAnnotations([]*annotation{l, r}, pc)
	if len(final) != 2 {
		t.Fatalf("应返回全部标注，got %d", len(final))
	}

	wantL := pc.xMin - pc.leftOffset - 4
	if l.x != wantL {
		t.Fatalf("左侧标签 x = %g, want %g", l.x, wantL)
	}
	if l.relpos != [2]float64{1, 0.5} {
		t.Fatalf("左侧引线应从标签右缘出发, relpos=%v", l.relpos)
	}
	wantR := pc.xMax + pc.rightOffset
	if r.x != wantR {
		t.Fatalf("右侧标签 x = %g, want %g", r.x, wantR)
	}
	if r.relpos != [2]float64{0, 0.5} {
		t.Fatalf("右侧引线应从标签左缘出发, relpos=%v", r.relpos)
	}
	// 返回顺序先左后右。
	if final[0] != l || final[1] != r {
		t.Fatalf("返回顺序应为先左列后右列")
	}
}

func TestResolveSnapKeepsBoxWidth(t *testing.T) {
	pc := testPlaceConfig()
	// 左半边的标签贴到左侧留白带后，外接框宽度必须保持不变，
	// 引线出发点（左侧 relpos x=1）落在贴边后的右缘上。
	l := newAnn(1, 10, 9.5, 1, grid.Point{X: 1, Y: 10}, false)
	r := newAnn(40, 30, 6, 1, grid.Point{X: 40, Y: 30}, false)

	resolveAnnotations([]*annotation{l, r}, pc)

	if got := l.box.width(); !almostEq(got, 9.5) {
		t.Fatalf("左侧标签贴边后框宽 = %g, want 9.5", got)
	}
	wantL := pc.xMin - pc.leftOffset - 9.5
	if !almostEq(l.x, wantL) || !almostEq(l.box.x0, wantL) || !almostEq(l.box.x1, wantL+9.5) {
		t.Fatalf("左侧标签框未随贴边整体平移: x=%g box=%+v", l.x, l.box)
	}
	if p := l.attachPoint(); !almostEq(p.X, wantL+9.5) || !almostEq(p.Y, 10) {
		t.Fatalf("左侧引线出发点 = %v, want (%g, 10)", p, wantL+9.5)
	}

	if got := r.box.width(); !almostEq(got, 6) {
		t.Fatalf("右侧标签贴边后框宽 = %g, want 6", got)
	}
	wantR := pc.xMax + pc.rightOffset
	if !almostEq(r.box.x0, wantR) || !almostEq(r.box.x1, wantR+6) {
		t.Fatalf("右侧标签框未随贴边整体平移: box=%+v", r.box)
	}
}

func TestResolveStacking(t *testing.T) {
	pc := testPlaceConfig()
	// 三条同行右侧标签，初始完全重叠。
	anns := []*annotation{
		newAnn(52, 20, 6, 1, grid.Point{X: 40, Y: 20}, false),
		newAnn(52, 20, 6, 1, grid.Point{X: 41, Y: 20}, false),
		newAnn(52, 20, 6, 1, grid.Point{X: 42, Y: 20}, false),
	}
	final := resolveAnnotations(anns, pc)

	for i := 0; i < len(final); i++ {
		for j := i + 1; j < len(final); j++ {
			if final[i].box.overlaps(final[j].box) {
				t.Fatalf("标签 %d 与 %d 重叠: %+v / %+v", i, j, final[i].box, final[j].box)
			}
		}
	}
	// 右列同行锚点按 x 降序排，x=42 的标签留在原位，其余依次下移。
	if final[0].anchor.X != 42 {
		t.Fatalf("右列首位应为最靠右的锚点，got anchor=%v", final[0].anchor)
	}
	for i := 1; i < len(final); i++ {
		gap := final[i].box.y0 - final[i-1].box.y1
		if gap < pc.epsilon-1e-9 {
			t.Fatalf("标签 %d 与前一条的间距 %g 小于 epsilon", i, gap)
		}
	}
}

func TestResolveHintBypassesStacking(t *testing.T) {
	pc := testPlaceConfig()
	hinted := newAnn(57, 20, 6, 1, grid.Point{X: 40, Y: 20}, true)
	auto := newAnn(52, 20, 6, 1, grid.Point{X: 41, Y: 20}, false)

	final := resolveAnnotations([]*annotation{auto, hinted}, pc)

	if hinted.y != 20 {
		t.Fatalf("hint 标签不应被竖向移动, y=%g", hinted.y)
	}
	if auto.y <= 20 {
		t.Fatalf("自动标签应避让 hint 标签, y=%g", auto.y)
	}
	if auto.box.overlaps(hinted.box) {
		t.Fatalf("避让后仍然重叠")
	}
	// hint 标签排在该列前面。
	if final[0] != hinted {
		t.Fatalf("hint 标签应先于自动标签返回")
	}
}

func TestResolveOutsideWindow(t *testing.T) {
	pc := testPlaceConfig()
	above := newAnn(26, -5, 4, 1, grid.Point{X: 26, Y: 0}, false)
	below := newAnn(26, 95, 4, 1, grid.Point{X: 26, Y: 89}, false)

	resolveAnnotations([]*annotation{above, below}, pc)

	if above.x != 26 || below.x != 26 {
		t.Fatalf("窗口外的标签不应被横向贴边: %g, %g", above.x, below.x)
	}
	if above.relpos != [2]float64{0.5, 0} {
		t.Fatalf("上方标签引线应从下缘出发, relpos=%v", above.relpos)
	}
	if below.relpos != [2]float64{0.5, 1} {
		t.Fatalf("下方标签引线应从上缘出发, relpos=%v", below.relpos)
	}
}

func TestAttachPoint(t *testing.T) {
	a := newAnn(10, 20, 4, 2, grid.Point{}, false)
	a.relpos = [2]float64{0, 0.5}
	if p := a.attachPoint(); p.X != 10 || p.Y != 20 {
		t.Fatalf("左缘中点 = %v, want (10, 20)", p)
	}
	a.relpos = [2]float64{1, 0.5}
	if p := a.attachPoint(); p.X != 14 || p.Y != 20 {
		t.Fatalf("右缘中点 = %v, want (14, 20)", p)
	}
	a.relpos = [2]float64{0.5, 0}
	if p := a.attachPoint(); p.X != 12 || p.Y != 21 {
		t.Fatalf("下缘中点 = %v, want (12, 21)", p)
	}
}

// 随机输入下的不变量：标注不增不减；hint 标签纵向不动；
// 窗口内的标签横向只会贴到两条留白带之一（或保持 hint 原位）。
func TestResolveProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pc := testPlaceConfig()
		n := rapid.IntRange(1, 20).Draw(t, "n")

		var anns []*annotation
		type snapshot struct {
			x, y   float64
			hinted bool
		}
		var before []snapshot
		for i := 0; i < n; i++ {
			x := rapid.Float64Range(-10, 62).Draw(t, "x")
			y := rapid.Float64Range(0, 89).Draw(t, "y")
			w := rapid.Float64Range(1, 12).Draw(t, "w")
			hinted := rapid.Bool().Draw(t, "hinted")
			anchor := grid.Point{
				X: rapid.Float64Range(1, 52).Draw(t, "ax"),
				Y: rapid.Float64Range(0, 89).Draw(t, "ay"),
			}
			if hinted {
				p := sanitizeHint(grid.Point{X: x, Y: y}, pc.window, pc.xMax)
				x, y = p.X, p.Y
			}
			anns = append(anns, newAnn(x, y, w, 1, anchor, hinted))
			before = append(before, snapshot{x: x, y: y, hinted: hinted})
		}

		final := resolveAnnotations(anns, pc)
		if len(final) != n {
			t.Fatalf("数量不守恒: %d -> %d", n, len(final))
		}

		for i, a := range anns {
			if a.hinted && a.y != before[i].y {
				t.Fatalf("hint 标签被竖向移动: %g -> %g", before[i].y, a.y)
			}
			rightX := pc.xMax + pc.rightOffset
			leftX := pc.xMin - pc.leftOffset - a.box.width()
			if !almostEq(a.x, rightX) && !almostEq(a.x, leftX) && a.x != before[i].x {
				t.Fatalf("标签 %d 的 x 既不在留白带也不在原位: %g", i, a.x)
			}
		}
	})
}

func almostEq(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
