package canvasrenderer

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/ByLCY/lifegrid/layout"
)

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"out/life.pdf", FormatPDF, true},
		{"life.SVG", FormatSVG, true},
		{"life.png", FormatPNG, true},
		{"life.jpg", "", false},
		{"life", "", false},
	}
	for _, tt := range tests {
		got, err := FormatForPath(tt.path)
		if tt.ok != (err == nil) {
			t.Fatalf("FormatForPath(%q) err = %v", tt.path, err)
		}
		if got != tt.want {
			t.Fatalf("FormatForPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

// shapesOnlySheet 不含文本，渲染时不需要字体。
func shapesOnlySheet() *layout.Sheet {
	fill := layout.RGB(100, 150, 200).WithAlpha(0.3)
	return &layout.Sheet{
		Width:  50,
		Height: 50,
		Squares: []layout.Rect{
			{X: 10, Y: 10, Width: 5, Height: 5, StrokeColor: layout.RGB(160, 160, 160), StrokeWidth: 0.2},
		},
		Bands: []layout.Rect{
			{X: 5, Y: 20, Width: 40, Height: 5, FillColor: &fill},
		},
		Circles: []layout.Circle{
			{CX: 25, CY: 25, R: 3, StrokeColor: layout.RGB(0, 0, 139), StrokeWidth: 0.3},
		},
		Lines: []layout.Line{
			{X1: 0, Y1: 0, X2: 50, Y2: 50, Color: layout.RGB(0, 0, 0), Width: 0.3},
		},
	}
}

func TestRenderShapes(t *testing.T) {
	tests := []struct {
		format Format
		magic  []byte
		tail   []byte
	}{
		{FormatPDF, []byte("%PDF"), []byte("%%EOF")},
		{FormatSVG, []byte("<"), []byte("</svg>")},
		{FormatPNG, []byte("\x89PNG"), nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			r := NewRenderer(Options{Format: tt.format, DPI: 72})
			out, err := r.Render(shapesOnlySheet())
			if err != nil {
				t.Fatalf("Render(%s): %v", tt.format, err)
			}
			if !bytes.HasPrefix(out, tt.magic) {
				t.Fatalf("输出缺少 %s 文件头: %q", tt.format, out[:min(8, len(out))])
			}
			if tt.tail != nil && !bytes.Contains(out, tt.tail) {
				t.Fatalf("%s 输出未正常收尾，缺少 %q", tt.format, tt.tail)
			}
		})
	}
}

func TestRenderNilSheet(t *testing.T) {
	r := NewRenderer(Options{})
	if _, err := r.Render(nil); err == nil {
		t.Fatalf("空 Sheet 应当报错")
	}
}

func TestNewRendererDefaults(t *testing.T) {
	r := NewRenderer(Options{})
	if r.opts.Format != FormatPDF {
		t.Fatalf("默认格式应为 PDF: %q", r.opts.Format)
	}
	if r.opts.DPI != defaultDPI {
		t.Fatalf("默认 DPI = %g", r.opts.DPI)
	}
}

func TestFadeImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	src.SetNRGBA(1, 1, color.NRGBA{G: 255, A: 128})

	out := fadeImage(src, 0.5)
	got := color.NRGBAModel.Convert(out.At(0, 0)).(color.NRGBA)
	if got.A != 127 {
		t.Fatalf("alpha 应减半: %d", got.A)
	}
	if got.R != 255 {
		t.Fatalf("颜色通道不应改变: %+v", got)
	}
	got = color.NRGBAModel.Convert(out.At(1, 1)).(color.NRGBA)
	if got.A != 64 {
		t.Fatalf("半透明像素再减半 = %d, want 64", got.A)
	}
}

func TestColorFromLayout(t *testing.T) {
	r, g, b, a := colorFromLayout(layout.RGB(255, 0, 0)).RGBA()
	if r != 0xffff || g != 0 || b != 0 || a != 0xffff {
		t.Fatalf("不透明红色 = %d %d %d %d", r, g, b, a)
	}
	// 零值透明度视为不透明，避免未初始化的颜色消失。
	_, _, _, a = colorFromLayout(layout.Color{R: 10}).RGBA()
	if a != 0xffff {
		t.Fatalf("零值透明度应视为 1: %d", a)
	}
}
