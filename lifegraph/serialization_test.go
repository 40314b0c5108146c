package lifegraph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ByLCY/lifegrid/grid"
	"github.com/ByLCY/lifegrid/layout"
)

func fullGraph(t *testing.T) *Lifegraph {
	t.Helper()
	lg, err := New(date(1990, time.November, 1), Options{Size: layout.A2, MaxAge: 80, MinAge: 10, Epsilon: 0.3})
	if err != nil {
		t.Fatal(err)
	}
	lg.SetSeed(42)
	lg.AddTitle("My Life", 24)
	lg.AddWatermark("DRAFT")
	lg.ShowMaxAgeLabel()
	lg.AddImage("me.png", 0.5)
	red := layout.RGB(255, 0, 0)
	lg.FormatXAxis(layout.AxisFormat{Text: "Weeks", Color: &red, FontSize: 20})

	darkblue := layout.RGB(0, 0, 139)
	if err := lg.AddLifeEvent(LifeEvent{
		Text:  "First job",
		Date:  date(2013, time.June, 15),
		Color: &darkblue,
		Side:  grid.SideRight,
	}); err != nil {
		t.Fatal(err)
	}
	if err := lg.AddLifeEvent(LifeEvent{
		Text: "Hinted",
		Date: date(2014, time.March, 1),
		Hint: &grid.Point{X: 55, Y: 22},
	}); err != nil {
		t.Fatal(err)
	}
	if err := lg.AddEra(Era{
		Text:  "College",
		Start: date(2009, time.September, 1),
		End:   date(2013, time.June, 1),
		Color: &darkblue,
		Alpha: 0.25,
	}); err != nil {
		t.Fatal(err)
	}
	if err := lg.AddEraSpan(EraSpan{
		Text:           "Grad school",
		Start:          date(2013, time.September, 1),
		End:            date(2018, time.May, 1),
		ColorEndpoints: true,
	}); err != nil {
		t.Fatal(err)
	}
	return lg
}

func checkRoundTrip(t *testing.T, loaded *Lifegraph) {
	t.Helper()
	if !loaded.birthdate.Equal(date(1990, time.November, 1)) {
		t.Fatalf("birthdate = %v", loaded.birthdate)
	}
	if loaded.opts.Size != layout.A2 || loaded.opts.MaxAge != 80 || loaded.opts.MinAge != 10 {
		t.Fatalf("Options 不一致: %+v", loaded.opts)
	}
	if loaded.opts.Epsilon != 0.3 {
		t.Fatalf("epsilon = %g", loaded.opts.Epsilon)
	}
	if loaded.title != "My Life" || loaded.titleFontSize != 24 {
		t.Fatalf("标题不一致: %q %g", loaded.title, loaded.titleFontSize)
	}
	if loaded.watermark != "DRAFT" || !loaded.showMaxAge {
		t.Fatalf("水印或最大年龄标注丢失")
	}
	if loaded.seed == nil || *loaded.seed != 42 {
		t.Fatalf("种子丢失: %v", loaded.seed)
	}
	if loaded.image == nil || loaded.image.Path != "me.png" || loaded.image.Alpha != 0.5 {
		t.Fatalf("底图不一致: %+v", loaded.image)
	}
	if loaded.xAxis.Text != "Weeks" || loaded.xAxis.Color == nil || loaded.xAxis.FontSize != 20 {
		t.Fatalf("x 轴覆盖不一致: %+v", loaded.xAxis)
	}

	if len(loaded.events) != 2 {
		t.Fatalf("事件数 = %d", len(loaded.events))
	}
	ev := loaded.events[0]
	if ev.Text != "First job" || !ev.Date.Equal(date(2013, time.June, 15)) {
		t.Fatalf("事件不一致: %+v", ev)
	}
	if ev.Color == nil || *ev.Color != layout.RGB(0, 0, 139) {
		t.Fatalf("事件颜色不一致: %+v", ev.Color)
	}
	if ev.Side != grid.SideRight {
		t.Fatalf("事件 side 不一致: %v", ev.Side)
	}
	hinted := loaded.events[1]
	if hinted.Color != nil {
		t.Fatalf("未指定颜色应保持随机（导出省略）: %+v", hinted.Color)
	}
	if hinted.Hint == nil || hinted.Hint.X != 55 || hinted.Hint.Y != 22 {
		t.Fatalf("hint 不一致: %+v", hinted.Hint)
	}

	if len(loaded.eras) != 1 || loaded.eras[0].Alpha != 0.25 {
		t.Fatalf("时代不一致: %+v", loaded.eras)
	}
	if len(loaded.spans) != 1 || !loaded.spans[0].ColorEndpoints {
		t.Fatalf("区间不一致: %+v", loaded.spans)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	for _, ext := range []string{".json", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "life"+ext)
			if err := fullGraph(t).ExportConfigFile(path); err != nil {
				t.Fatalf("Export: %v", err)
			}
			loaded, err := ImportConfigFile(path)
			if err != nil {
				t.Fatalf("Import: %v", err)
			}
			checkRoundTrip(t, loaded)
		})
	}
}

func TestExportOmitsDefaults(t *testing.T) {
	lg := newTestGraph(t)
	if err := lg.AddLifeEvent(LifeEvent{Text: "x", Date: date(2013, time.June, 15)}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "life.json")
	if err := lg.ExportConfigFile(path); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s := string(raw)
	for _, key := range []string{"size", "max-age", "epsilon", "watermark", "color", "side", "hint"} {
		if strings.Contains(s, `"`+key+`"`) {
			t.Fatalf("默认值字段 %q 不应导出:\n%s", key, s)
		}
	}
	if !strings.Contains(s, `"version": 1`) {
		t.Fatalf("缺少 version:\n%s", s)
	}
	if !strings.Contains(s, `"1990-11-01"`) {
		t.Fatalf("日期应为 YYYY-MM-DD:\n%s", s)
	}
}

func TestImportConfigVariants(t *testing.T) {
	dir := t.TempDir()

	// 标题写成纯字符串、颜色写成名字与数组。
	yamlSrc := `version: 1
title: My Life
birthdate: "1990-11-01"
events:
  - text: Named color
    date: "2013-06-15"
    color: darkblue
  - text: List color
    date: "2014-03-01"
    color: [0.5, 0.25, 1.0]
`
	path := filepath.Join(dir, "life.yaml")
	if err := os.WriteFile(path, []byte(yamlSrc), 0o644); err != nil {
		t.Fatal(err)
	}
	lg, err := ImportConfigFile(path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if lg.title != "My Life" || lg.titleFontSize != 0 {
		t.Fatalf("字符串标题解析失败: %q %g", lg.title, lg.titleFontSize)
	}
	if *lg.events[0].Color != layout.RGB(0, 0, 139) {
		t.Fatalf("颜色名解析失败: %+v", lg.events[0].Color)
	}
	if got := *lg.events[1].Color; got != layout.RGB(128, 64, 255) {
		t.Fatalf("0-1 数组颜色解析失败: %+v", got)
	}
}

func TestImportConfigErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	if _, err := ImportConfigFile(write("v2.json", `{"version": 2, "birthdate": "1990-11-01"}`)); err == nil {
		t.Fatalf("版本不符应当报错")
	}
	if _, err := ImportConfigFile(write("nobirth.json", `{"version": 1}`)); err == nil {
		t.Fatalf("缺少出生日期应当报错")
	}
	if _, err := ImportConfigFile(write("badcolor.json",
		`{"version": 1, "birthdate": "1990-11-01", "events": [{"text": "x", "date": "2013-06-15", "color": "nope"}]}`)); err == nil {
		t.Fatalf("非法颜色应当报错")
	}
	if _, err := ImportConfigFile(write("life.toml", `version = 1`)); err == nil {
		t.Fatalf("不支持的扩展名应当报错")
	}
}
