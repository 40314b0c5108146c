package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/ByLCY/lifegrid/layout"
	"github.com/ByLCY/lifegrid/renderer"
)

const (
	defaultStrokeWidth = 0.2
	defaultDPI         = 300
)

// Format 是输出格式。
type Format string

const (
	FormatPDF Format = "pdf"
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// FormatForPath 根据输出文件的扩展名推断格式。
func FormatForPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		return FormatPDF, nil
	case ".svg":
		return FormatSVG, nil
	case ".png":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("不支持的输出格式 %q（应为 .pdf/.svg/.png）", ext)
	}
}

// Options 配置 canvas 渲染器。
type Options struct {
	Format   Format
	DPI      float64 // 仅 PNG 使用，<=0 时取 300
	FontPath string  // 字体文件路径，为空时使用系统字体
	BaseDir  string  // 解析图片相对路径的根目录
}

// Renderer 通过 github.com/tdewolff/canvas 绘制布局结果。
// 同时实现 layout.TextMeasurer，使标签避让与最终绘制使用同一套字体度量。
type Renderer struct {
	opts Options

	fontMu sync.Mutex
	family *canvas.FontFamily
}

var (
	_ renderer.Renderer   = (*Renderer)(nil)
	_ layout.TextMeasurer = (*Renderer)(nil)
)

// NewRenderer 创建渲染器。
func NewRenderer(opts Options) *Renderer {
	if opts.Format == "" {
		opts.Format = FormatPDF
	}
	if opts.DPI <= 0 {
		opts.DPI = defaultDPI
	}
	return &Renderer{opts: opts}
}

// Render 将 Sheet 渲染为所选格式的字节流。
func (r *Renderer) Render(sheet *layout.Sheet) ([]byte, error) {
	if sheet == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}

	c := canvas.New(sheet.Width, sheet.Height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

	if err := r.drawSheet(ctx, sheet); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch r.opts.Format {
	case FormatPDF:
		writer := pdf.New(&buf, sheet.Width, sheet.Height, nil)
		meta := sheet.Meta
		writer.SetInfo(meta.Title, meta.Subject, strings.Join(meta.Keywords, ", "), meta.Author, meta.Creator)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 PDF 失败: %w", err)
		}
	case FormatSVG:
		writer := svg.New(&buf, sheet.Width, sheet.Height, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 SVG 失败: %w", err)
		}
	case FormatPNG:
		img := rasterizer.Draw(c, canvas.DPMM(r.opts.DPI/layout.InToMm), canvas.DefaultColorSpace)
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("写入 PNG 失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的输出格式 %q", r.opts.Format)
	}
	return buf.Bytes(), nil
}

// MeasureText 实现 layout.TextMeasurer，返回文本外接尺寸（mm），按 \n 分行。
func (r *Renderer) MeasureText(content string, fontSize float64, bold bool) (float64, float64, error) {
	face, err := r.fontFace(fontSize, layout.RGB(0, 0, 0), bold)
	if err != nil {
		return 0, 0, err
	}
	metrics := face.Metrics()
	lineHeight := metrics.LineHeight
	if lineHeight <= 0 {
		lineHeight = fontSize
	}

	var maxWidth float64
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		if w := face.TextWidth(line); w > maxWidth {
			maxWidth = w
		}
	}
	return maxWidth, lineHeight * float64(len(lines)), nil
}

// drawSheet 按底图、时代底色、网格、哑铃圆圈、引线、标签、版面文本的顺序绘制。
func (r *Renderer) drawSheet(ctx *canvas.Context, sheet *layout.Sheet) error {
	if err := r.drawImage(ctx, sheet.Image); err != nil {
		return err
	}
	r.drawRects(ctx, sheet.Bands)
	r.drawRects(ctx, sheet.Squares)
	r.drawCircles(ctx, sheet.Circles)
	r.drawLines(ctx, sheet.Lines)
	for _, tb := range sheet.Labels {
		if err := r.drawTextBox(ctx, tb); err != nil {
			return err
		}
	}
	for _, tb := range sheet.Texts {
		if err := r.drawTextBox(ctx, tb); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) drawLines(ctx *canvas.Context, lines []layout.Line) {
	for _, ln := range lines {
		w := ln.Width
		if w <= 0 {
			w = defaultStrokeWidth
		}
		ctx.SetStrokeColor(colorFromLayout(ln.Color))
		ctx.SetStrokeWidth(w)
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(ln.X2-ln.X1, ln.Y2-ln.Y1)
		ctx.DrawPath(ln.X1, ln.Y1, p)
	}
}

func (r *Renderer) drawRects(ctx *canvas.Context, rects []layout.Rect) {
	for _, rc := range rects {
		w := rc.StrokeWidth
		if w <= 0 && rc.FillColor == nil {
			w = defaultStrokeWidth
		}
		if rc.FillColor != nil {
			ctx.SetFillColor(colorFromLayout(*rc.FillColor))
		} else {
			ctx.SetFillColor(color.RGBA{})
		}
		ctx.SetStrokeColor(colorFromLayout(rc.StrokeColor))
		ctx.SetStrokeWidth(w)
		ctx.DrawPath(rc.X, rc.Y, canvas.Rectangle(rc.Width, rc.Height))
	}
}

func (r *Renderer) drawCircles(ctx *canvas.Context, circles []layout.Circle) {
	for _, c := range circles {
		w := c.StrokeWidth
		if w <= 0 {
			w = defaultStrokeWidth
		}
		if c.FillColor != nil {
			ctx.SetFillColor(colorFromLayout(*c.FillColor))
		} else {
			ctx.SetFillColor(color.RGBA{})
		}
		ctx.SetStrokeColor(colorFromLayout(c.StrokeColor))
		ctx.SetStrokeWidth(w)
		ctx.DrawPath(c.CX-c.R, c.CY-c.R, canvas.Circle(c.R))
	}
}

func (r *Renderer) drawTextBox(ctx *canvas.Context, tb layout.TextBox) error {
	face, err := r.fontFace(tb.FontSize, tb.Color, tb.Bold)
	if err != nil {
		return err
	}
	metrics := face.Metrics()
	lineHeight := metrics.LineHeight
	if lineHeight <= 0 {
		lineHeight = tb.FontSize
	}
	lines := strings.Split(tb.Content, "\n")
	totalHeight := lineHeight * float64(len(lines))

	var textAlign canvas.TextAlign
	switch tb.HAlign {
	case "center":
		textAlign = canvas.Center
	case "right":
		textAlign = canvas.Right
	default:
		textAlign = canvas.Left
	}

	// 纵向对齐决定首行顶部相对锚点的位置。
	top := tb.Y
	switch tb.VAlign {
	case "top":
	case "bottom":
		top -= totalHeight
	default: // center
		top -= totalHeight / 2
	}

	if tb.Rotation != 0 {
		ctx.Push()
		// CartesianIV 翻转了 y 轴，这里取负让正角度保持视觉上的逆时针。
		ctx.ComposeView(canvas.Identity.RotateAbout(-tb.Rotation, tb.X, tb.Y))
		defer ctx.Pop()
	}

	cursorY := top
	for _, line := range lines {
		textLine := canvas.NewTextLine(face, line, textAlign)
		ctx.DrawText(tb.X, cursorY+metrics.Ascent, textLine)
		cursorY += lineHeight
	}
	return nil
}

// drawImage 把底图拉伸铺满指定的毫米矩形，透明度在像素级预乘。
func (r *Renderer) drawImage(ctx *canvas.Context, box *layout.ImageBox) error {
	if box == nil || box.Path == "" {
		return nil
	}
	path := box.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.opts.BaseDir, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("读取图片 %s 失败: %w", box.Path, err)
	}
	img, _, err := image.Decode(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("解码图片 %s 失败: %w", box.Path, err)
	}
	if box.Opacity > 0 && box.Opacity < 1 {
		img = fadeImage(img, box.Opacity)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 || box.Width <= 0 || box.Height <= 0 {
		return nil
	}
	sx := box.Width / float64(bounds.Dx())
	sy := box.Height / float64(bounds.Dy())

	ctx.Push()
	defer ctx.Pop()
	ctx.ComposeView(canvas.Identity.Translate(box.X, box.Y).Scale(sx, sy))
	ctx.DrawImage(0, 0, img, canvas.DPMM(1))
	return nil
}

// fadeImage 返回整体透明度乘以 alpha 的副本。
func fadeImage(img image.Image, alpha float64) image.Image {
	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			c.A = uint8(float64(c.A) * alpha)
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}

func (r *Renderer) fontFace(fontSize float64, col layout.Color, bold bool) (*canvas.FontFace, error) {
	family, err := r.ensureFontFamily()
	if err != nil {
		return nil, err
	}
	style := canvas.FontRegular
	if bold {
		style = canvas.FontBold
	}
	return family.Face(fontSize*layout.MmToPt, colorFromLayout(col), style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily() (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if r.family != nil {
		return r.family, nil
	}

	family := canvas.NewFontFamily("lifegrid")
	if r.opts.FontPath != "" {
		if err := family.LoadFontFile(r.opts.FontPath, canvas.FontRegular); err != nil {
			return nil, fmt.Errorf("加载字体 %s 失败: %w", r.opts.FontPath, err)
		}
	} else {
		if err := family.LoadSystemFont("DejaVu Sans, Arial, Helvetica, sans-serif", canvas.FontRegular); err != nil {
			return nil, fmt.Errorf("加载系统字体失败（可用 -font 指定字体文件）: %w", err)
		}
	}
	r.family = family
	return family, nil
}

func colorFromLayout(c layout.Color) color.Color {
	a := c.A
	if a <= 0 {
		a = 1
	}
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, a)
}
