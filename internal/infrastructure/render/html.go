// Package render writes the report as a standalone HTML page so a cycle
// leaves a browsable artifact next to the notification push.
package render

import (
	"fmt"
	"html/template"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"trendwatch/internal/domain"
	"trendwatch/internal/ports"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.ReportType}} · {{.GeneratedAt}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem auto; max-width: 56rem; color: #24292f; }
h1 { font-size: 1.4rem; border-bottom: 2px solid #0969da; padding-bottom: .4rem; }
h2 { font-size: 1.1rem; margin-top: 1.6rem; }
ol { padding-left: 1.4rem; }
li { margin: .3rem 0; }
.meta { color: #57606a; font-size: .85rem; }
.new { color: #cf222e; font-weight: 600; }
.failed { background: #fff8c5; padding: .6rem; border-radius: 6px; }
.analysis { background: #f6f8fa; padding: .8rem; border-radius: 6px; white-space: pre-wrap; }
a { color: #0969da; text-decoration: none; }
</style>
</head>
<body>
<h1>{{.ReportType}}</h1>
<p class="meta">生成时间 {{.GeneratedAt}} · 匹配 {{.TotalMatched}} 条 / 共 {{.TotalTitles}} 条</p>
{{range .Groups}}
<h2>{{.GroupKey}}（{{.Count}}）</h2>
<ol>
{{range .Titles}}<li>[{{.SourceName}}] {{if .URL}}<a href="{{.URL}}" target="_blank">{{.Title}}</a>{{else}}{{.Title}}{{end}}{{if .IsNew}} <span class="new">新</span>{{end}}</li>
{{end}}</ol>
{{end}}
{{if .FailedIDs}}<p class="failed">抓取失败: {{.FailedIDs}}</p>{{end}}
{{if .AIAnalysis}}<h2>AI 分析</h2><div class="analysis">{{.AIAnalysis}}</div>{{end}}
</body>
</html>
`

type pageData struct {
	ReportType   string
	GeneratedAt  string
	TotalMatched int
	TotalTitles  int
	Groups       []domain.MatchStat
	FailedIDs    string
	AIAnalysis   string
}

// HTMLRenderer writes report pages under outputDir/YYYY-MM-DD/.
type HTMLRenderer struct {
	outputDir string
	tmpl      *template.Template
}

var _ ports.Renderer = (*HTMLRenderer)(nil)

func NewHTMLRenderer(outputDir string) (*HTMLRenderer, error) {
	tmpl, err := template.New("report").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &HTMLRenderer{outputDir: outputDir, tmpl: tmpl}, nil
}

// RenderHTML writes the page and returns its path.
func (r *HTMLRenderer) RenderHTML(report domain.ReportData, reportType string) (string, error) {
	matched := 0
	for _, stat := range report.Stats {
		matched += stat.Count
	}

	data := pageData{
		ReportType:   reportType,
		GeneratedAt:  report.GeneratedAt.Format("2006-01-02 15:04"),
		TotalMatched: matched,
		TotalTitles:  report.TotalTitles,
		Groups:       report.Stats,
		AIAnalysis:   report.AIAnalysis,
	}
	if len(report.FailedIDs) > 0 {
		names := make([]string, 0, len(report.FailedIDs))
		for _, id := range report.FailedIDs {
			if name, ok := report.IDToName[id]; ok && name != "" {
				names = append(names, name)
				continue
			}
			names = append(names, id)
		}
		data.FailedIDs = strings.Join(names, ", ")
	}

	dir := filepath.Join(r.outputDir, report.GeneratedAt.Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, report.GeneratedAt.Format("15时04分")+".html")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer file.Close()

	if err := r.tmpl.Execute(file, data); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return path, nil
}

// OpenInBrowser opens the rendered page with the platform's default browser.
// Best effort only; callers treat a failure as non-fatal.
func OpenInBrowser(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", abs).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", abs).Start()
	default:
		return exec.Command("xdg-open", abs).Start()
	}
}
