package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/lifegrid/binding"
	"github.com/ByLCY/lifegrid/dsl"
	"github.com/ByLCY/lifegrid/layout"
	"github.com/ByLCY/lifegrid/lifegraph"
	canvasrenderer "github.com/ByLCY/lifegrid/renderer/canvas"
)

func main() {
	input := flag.String("in", "examples/demo.lifegrid", "输入文件路径（.lifegrid/.json/.yaml）")
	output := flag.String("out", "output/life.pdf", "输出路径（.pdf/.svg/.png）")
	debug := flag.String("debug", "", "布局调试 JSON 输出路径")
	dataPath := flag.String("data", "", "绑定到标签文本的数据文件（.json/.yaml）")
	fontPath := flag.String("font", "", "字体文件路径，覆盖输入中的设置")
	dpi := flag.Float64("dpi", 0, "PNG 输出分辨率，覆盖输入中的设置")
	seed := flag.Int64("seed", 0, "随机取色种子，覆盖输入中的设置")
	export := flag.String("export", "", "把输入归一化导出为配置文件（.json/.yaml）")
	flag.Parse()

	if err := run(*input, *output, *debug, *dataPath, *fontPath, *dpi, *seed, *export); err != nil {
		log.Fatalf("生成失败: %v", err)
	}
	fmt.Printf("已生成：%s\n", *output)
}

// run 串联加载、绑定、布局、渲染与导出。
func run(inputPath, outputPath, debugPath, dataPath, fontPath string, dpi float64, seed int64, exportPath string) error {
	lg, err := load(inputPath)
	if err != nil {
		return err
	}

	if dataPath != "" {
		data, err := binding.LoadFile(dataPath)
		if err != nil {
			return err
		}
		lg.Bind(data)
	}
	if fontPath != "" {
		lg.SetFont(fontPath)
	}
	if seed != 0 {
		lg.SetSeed(seed)
	}
	if dpi > 0 {
		lg.SetDPI(dpi)
	}

	if exportPath != "" {
		if err := lg.ExportConfigFile(exportPath); err != nil {
			return fmt.Errorf("导出配置失败: %w", err)
		}
	}

	if debugPath != "" {
		sheet, err := lg.Layout(measurerFor(lg, outputPath))
		if err != nil {
			return fmt.Errorf("布局计算失败: %w", err)
		}
		if err := writeDebug(sheet, debugPath); err != nil {
			return err
		}
	}

	if err := lg.Save(outputPath); err != nil {
		return fmt.Errorf("渲染输出失败: %w", err)
	}
	return nil
}

// load 根据扩展名选择 DSL 或配置文件两种输入。
func load(path string) (*lifegraph.Lifegraph, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".lifegrid":
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("无法打开输入文件 %s: %w", path, err)
		}
		defer file.Close()
		doc, err := dsl.Parse(file)
		if err != nil {
			return nil, fmt.Errorf("解析 DSL 失败: %w", err)
		}
		lg, err := lifegraph.FromDocument(doc)
		if err != nil {
			return nil, err
		}
		lg.SetBaseDir(filepath.Dir(path))
		return lg, nil
	case ".json", ".yaml", ".yml":
		return lifegraph.ImportConfigFile(path)
	default:
		return nil, fmt.Errorf("不支持的输入格式 %q（应为 .lifegrid/.json/.yaml）", ext)
	}
}

// measurerFor 构造与最终渲染同配置的量字后端，保证调试 JSON 与输出一致。
func measurerFor(lg *lifegraph.Lifegraph, outputPath string) layout.TextMeasurer {
	format, err := canvasrenderer.FormatForPath(outputPath)
	if err != nil {
		format = canvasrenderer.FormatPDF
	}
	return canvasrenderer.NewRenderer(canvasrenderer.Options{
		Format:   format,
		FontPath: lg.Font(),
	})
}

func writeDebug(sheet *layout.Sheet, debugPath string) error {
	if dir := filepath.Dir(debugPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建调试目录失败: %w", err)
		}
	}
	if err := layout.WriteDebugJSON(sheet, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
