// Package render turns year grids into the HTML, CSS and plain-text
// visualizations. All renderers are deterministic given their inputs.
package render

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"activitygraph/internal/config"
	appLog "activitygraph/internal/log"
	"activitygraph/internal/model"
)

//go:embed static
var static embed.FS

// External holds the contents of the optional user-supplied fragments
// spliced into the output. Fields are empty when not configured.
type External struct {
	Head   string
	Header string
	Footer string
	CSS    string
}

// LoadExternal reads the configured fragment files. A missing or
// unreadable file logs an error and contributes an empty fragment.
func LoadExternal(cfg config.ExternalConfig) External {
	return External{
		Head:   readOptionalFile(cfg.Head),
		Header: readOptionalFile(cfg.Header),
		Footer: readOptionalFile(cfg.Footer),
		CSS:    readOptionalFile(cfg.CSS),
	}
}

func readOptionalFile(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		appLog.Error("could not read external fragment", err, "path", path)
		return ""
	}
	return string(data)
}

func baseHead() string {
	data, _ := static.ReadFile("static/head.html")
	return string(data)
}

func baseCSS() string {
	data, _ := static.ReadFile("static/activity-graph.css")
	return string(data)
}

// HTML renders the full page, newest year first. If cssHref is non-empty
// the stylesheet is referenced with a <link>; otherwise it is inlined in
// a <style> element.
func HTML(ext External, cssHref string, years []model.Year) string {
	var style string
	if cssHref != "" {
		style = fmt.Sprintf("<link href=%q rel=\"stylesheet\">", cssHref)
	} else {
		style = fmt.Sprintf("<style>\n%s\n%s</style>", baseCSS(), ext.CSS)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<!DOCTYPE html>\n<html>\n<head>\n%s\n%s\n%s\n</head>\n<body>\n%s\n",
		baseHead(), style, ext.Head, ext.Header)

	for i := len(years) - 1; i >= 0; i-- {
		year := years[i]
		maxCount := maxEventCount(year)
		fmt.Fprintf(&b,
			"<table class=\"activity-table\"><thead><tr><td class=\"activity-header-year\" colspan=\"%d\"><h3>%d</h3></td></tr></thead><tbody>\n",
			model.Weeks, year.Year)
		for day := 0; day < 7; day++ {
			b.WriteString("<tr>")
			for week := 0; week < model.Weeks; week++ {
				cell := year.Days[day*model.Weeks+week]
				count := len(cell.Events)
				tooltip := "No commits"
				if count == 1 {
					tooltip = "1 commit"
				} else if count > 1 {
					tooltip = fmt.Sprintf("%d commits", count)
				}
				filler := ""
				if cell.Filler {
					filler = "filler-day"
				}
				fmt.Fprintf(&b, "<td class=\"blob lvl%d %s\" title=%q></td>",
					shadeLevel(count, maxCount), filler, tooltip)
			}
			b.WriteString("</tr>\n")
		}
		b.WriteString("</tbody></table>\n")
	}

	fmt.Fprintf(&b, "%s</body></html>", ext.Footer)
	return b.String()
}

// CSS renders the stylesheet: the embedded base plus any external CSS.
func CSS(ext External) string {
	return baseCSS() + "\n" + ext.CSS
}

// Text renders a terminal visualization, newest year first. Filler slots
// become spaces; the rest are shaded by activity relative to the year's
// busiest day.
func Text(years []model.Year) string {
	var b strings.Builder
	for i := len(years) - 1; i >= 0; i-- {
		year := years[i]
		maxCount := maxEventCount(year)
		b.WriteByte('\n')
		for day := 0; day < 7; day++ {
			for week := 0; week < model.Weeks; week++ {
				cell := year.Days[day*model.Weeks+week]
				if cell.Filler {
					b.WriteByte(' ')
					continue
				}
				b.WriteRune(shadeRune(float64(len(cell.Events)) / float64(maxCount)))
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// maxEventCount returns the busiest day's event count, at least 1 so
// that shading never divides by zero.
func maxEventCount(year model.Year) int {
	max := 1
	for _, day := range year.Days {
		if len(day.Events) > max {
			max = len(day.Events)
		}
	}
	return max
}

func shadeLevel(count, maxCount int) int {
	norm := float64(count) / float64(maxCount)
	switch {
	case norm == 0:
		return 0
	case norm < 0.25:
		return 1
	case norm < 0.5:
		return 2
	case norm < 0.75:
		return 3
	default:
		return 4
	}
}

func shadeRune(shade float64) rune {
	switch {
	case shade > 0.5:
		return '▓'
	case shade > 0:
		return '▒'
	default:
		return '░'
	}
}
