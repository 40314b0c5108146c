package layout

import (
	"math"
	"sort"

	"github.com/ByLCY/lifegrid/grid"
)

// 标签避让引擎。全部计算在数据坐标下进行（x 为周，y 为年龄，y 向下增长），
// 标签文本的外接框由 TextMeasurer 量取后换算得到。
//
// 规则：
//   - 带 hint 的标签完全跳过自动布局，只做贴边修正，且不参与竖向堆叠；
//     其余标签把它们当作障碍物避开。
//   - 自动标签按锚点所在半边分到左右两列，贴到网格外侧的留白带上；
//   - 每侧按锚点行序贪心下推，保证同侧自动标签两两不重叠。代价是靠后的
//     标签可能被推得很远，这是该启发式的已知局限。

// bbox 是数据坐标下的外接框，x0<x1，y0<y1（数值大者视觉上更靠下）。
type bbox struct {
	x0, y0, x1, y1 float64
}

func (b bbox) width() float64  { return b.x1 - b.x0 }
func (b bbox) height() float64 { return b.y1 - b.y0 }

// overlaps 判定两框是否相交：任一框完全在另一框的右侧或下方则不相交。
func (b bbox) overlaps(o bbox) bool {
	if b.x0 >= o.x1 || o.x0 >= b.x1 {
		return false
	}
	if b.y0 >= o.y1 || o.y0 >= b.y1 {
		return false
	}
	return true
}

// withinEpsilon 判定两框的间距是否已经小于 eps。
func (b bbox) withinEpsilon(o bbox, eps float64) bool {
	if b.x0-eps > o.x1 || o.x0-eps > b.x1 {
		return false
	}
	if b.y0-eps > o.y1 || o.y0-eps > b.y1 {
		return false
	}
	return true
}

// annotation 是一条待布局的标注：锚点、标签文本与布局过程中的可变状态。
type annotation struct {
	text  string
	color Color

	// 标签位置（数据坐标，文本左缘纵向居中于该点）。
	x, y float64
	box  bbox

	anchor grid.Point // 网格上的事件点
	circle bool       // 是否在锚点画圈
	hinted bool       // 位置来自用户 hint，跳过自动布局

	// relpos 记录引线在标签框上的出发位置（matplotlib 习惯：
	// x 向右，y 自下而上的框内比例）。
	relpos [2]float64
}

func (a *annotation) moveToX(x float64) {
	w := a.box.width()
	a.x = x
	a.box.x0 = x
	a.box.x1 = x + w
}

func (a *annotation) shiftY(dy float64) {
	a.y += dy
	a.box.y0 += dy
	a.box.y1 += dy
}

// attachPoint 返回引线在标签框上的出发点（数据坐标）。
func (a *annotation) attachPoint() grid.Point {
	return grid.Point{
		X: a.box.x0 + a.relpos[0]*a.box.width(),
		Y: a.box.y1 - a.relpos[1]*a.box.height(),
	}
}

// placeConfig 汇总避让所需的边界与间距。
type placeConfig struct {
	window      grid.Window
	xMin, xMax  float64
	epsilon     float64
	leftOffset  float64
	rightOffset float64
}

// sanitizeHint 把 hint 收敛到网格两侧：落在网格内部或离得过远的 x 坐标
// 被移到贴近的网格边缘，y 保持不变。edge 常量沿用既定值 10。
func sanitizeHint(h grid.Point, win grid.Window, xMax float64) grid.Point {
	const edge = 10
	if h.Y >= float64(win.MinAge) && h.Y <= float64(win.MaxAge) {
		if (h.X >= xMax/2 && h.X < xMax) || h.X > xMax+edge {
			h.X = xMax
		}
		if (h.X > 0 && h.X < xMax/2) || h.X < -edge {
			h.X = 0
		}
	}
	return h
}

// resolveAnnotations 决定每个标签的最终位置，保证同侧自动标签互不重叠。
// 返回顺序：先左列后右列，每列内 hint 标签在前。
func resolveAnnotations(anns []*annotation, pc placeConfig) []*annotation {
	minY := float64(pc.window.MinAge)
	maxY := float64(pc.window.MaxAge)
	half := pc.xMax / 2

	var left, right []*annotation
	for _, a := range anns {
		w := a.box.width()

		switch {
		case a.y >= minY && a.y <= maxY:
			// 贴边：网格半边内或留白带以内的 x 统一移到留白带上。
			// hint 标签同样贴边（这是选边，不是堆叠），更远的 hint 原样保留。
			if (a.x >= half && a.x < pc.xMax) || (a.x >= pc.xMax && a.x < pc.xMax+pc.rightOffset) {
				a.moveToX(pc.xMax + pc.rightOffset)
			} else if (a.x >= 0 && a.x < half) || (a.x <= pc.xMin && a.x > pc.xMin-pc.leftOffset) {
				a.moveToX(pc.xMin - pc.leftOffset - w)
			} else {
				a.moveToX(a.x)
			}
			if a.x >= half {
				a.relpos = [2]float64{0, 0.5}
				right = append(right, a)
			} else {
				a.relpos = [2]float64{1, 0.5}
				left = append(left, a)
			}
		case a.y < minY:
			// 网格上方：引线从标签视觉下缘出发。
			a.relpos = [2]float64{0.5, 0}
			right = append(right, a)
		default:
			// 网格下方：引线从标签视觉上缘出发。
			a.relpos = [2]float64{0.5, 1}
			right = append(right, a)
		}
	}

	// 左列优先靠左的锚点、右列优先靠右的锚点，减少引线交叉。
	sortKey := func(lst []*annotation, flip float64) {
		sort.SliceStable(lst, func(i, j int) bool {
			ai, aj := lst[i], lst[j]
			if ai.anchor.Y != aj.anchor.Y {
				return ai.anchor.Y < aj.anchor.Y
			}
			return flip*ai.anchor.X < flip*aj.anchor.X
		})
	}

	final := make([]*annotation, 0, len(anns))
	for idx, lst := range [][]*annotation{left, right} {
		var fixed, auto []*annotation
		for _, a := range lst {
			if a.hinted {
				fixed = append(fixed, a)
			} else {
				auto = append(auto, a)
			}
		}
		if idx == 0 {
			sortKey(auto, 1)
		} else {
			sortKey(auto, -1)
		}

		placed := append([]*annotation{}, fixed...)
		for _, a := range auto {
			for _, c := range placed {
				if a.box.overlaps(c.box) {
					a.shiftY(math.Abs(c.box.y1-a.box.y0) + pc.epsilon)
				}
				if a.box.withinEpsilon(c.box, pc.epsilon) {
					a.shiftY(pc.epsilon)
				}
			}
			placed = append(placed, a)
		}
		final = append(final, placed...)
	}
	return final
}
