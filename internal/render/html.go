package render

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	plotStackName = "total"
	fullZoomPct   = 100

	// maxChartContributors caps the per-contributor series; the rest fold
	// into an "Others" bucket.
	maxChartContributors = 20

	pieChartWidth  = "600px"
	pieChartHeight = "400px"
	pieRadius      = "65%"
	barChartWidth  = "900px"
	barChartHeight = "500px"

	dayFormat = "2006-01-02"
)

// WriteHTML renders the report as a standalone HTML chart page: a language
// pie, per-contributor stacked bars, and a commit activity timeline when the
// report carries commit data.
func WriteHTML(w io.Writer, r *Report) error {
	page := components.NewPage()
	page.PageTitle = "gitsleuth report"
	page.SetLayout(components.PageCenterLayout)

	page.AddCharts(languagePie(r), contributorBars(r))

	if line := activityLines(r); line != nil {
		page.AddCharts(line)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render page: %w", err)
	}

	return nil
}

func languagePie(r *Report) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Lines by Language",
			Subtitle: fmt.Sprintf("%s surviving lines at %s", humanize.Comma(r.TotalLines), shortHead(r.Head)),
			Left:     "2%",
		}),
		charts.WithInitializationOpts(opts.Initialization{Width: pieChartWidth, Height: pieChartHeight}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)

	langs := languagesByVolume(r.Languages)
	pieData := make([]opts.PieData, len(langs))

	for i, lang := range langs {
		pieData[i] = opts.PieData{Name: string(lang), Value: r.Languages[lang].Total()}
	}

	pie.AddSeries("Languages", pieData).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c} ({d}%)"}),
			charts.WithPieChartOpts(opts.PieChart{Radius: pieRadius}),
		)

	return pie
}

func contributorBars(r *Report) *charts.Bar {
	top := r.Contributors
	hasOthers := false

	if len(top) > maxChartContributors {
		top = top[:maxChartContributors]
		hasOthers = true
	}

	xLabels := make([]string, 0, len(top)+1)
	for i := range top {
		xLabels = append(xLabels, top[i].Name)
	}

	if hasOthers {
		xLabels = append(xLabels, "Others")
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Surviving Lines by Contributor",
			Subtitle: "Stacked by language",
			Left:     "2%",
		}),
		charts.WithInitializationOpts(opts.Initialization{Width: barChartWidth, Height: barChartHeight}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Type: "scroll",
			Top:  "5px",
			Left: "40%",
		}),
		charts.WithGridOpts(opts.Grid{Top: "15%", Bottom: "10%", Left: "5%", Right: "5%"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Lines"}),
	)
	bar.SetXAxis(xLabels)

	for _, lang := range languagesByVolume(r.Languages) {
		data := make([]opts.BarData, 0, len(xLabels))

		for i := range top {
			data = append(data, opts.BarData{Value: top[i].Languages[lang].Total()})
		}

		if hasOthers {
			var rest int64
			for _, c := range r.Contributors[maxChartContributors:] {
				rest += c.Languages[lang].Total()
			}

			data = append(data, opts.BarData{Value: rest})
		}

		bar.AddSeries(string(lang), data, charts.WithBarChartOpts(opts.BarChart{Stack: plotStackName}))
	}

	return bar
}

// activityLines charts cumulative commits per contributor over calendar days.
// Returns nil when the report carries no commit timelines.
func activityLines(r *Report) *charts.Line {
	top := r.Contributors
	if len(top) > maxChartContributors {
		top = top[:maxChartContributors]
	}

	daySet := make(map[string]struct{})
	perDay := make([]map[string]int64, len(top))

	for i := range top {
		if len(top[i].Commits) == 0 {
			continue
		}

		counts := make(map[string]int64, len(top[i].Commits))

		for _, entry := range top[i].Commits {
			day := entry.When.UTC().Format(dayFormat)
			counts[day]++
			daySet[day] = struct{}{}
		}

		perDay[i] = counts
	}

	if len(daySet) == 0 {
		return nil
	}

	days := make([]string, 0, len(daySet))
	for day := range daySet {
		days = append(days, day)
	}

	sort.Strings(days)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Commit Activity",
			Subtitle: "Cumulative commits per contributor",
			Left:     "2%",
		}),
		charts.WithInitializationOpts(opts.Initialization{Width: barChartWidth, Height: barChartHeight}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Type: "scroll",
			Top:  "5px",
			Left: "40%",
		}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "slider", Start: 0, End: fullZoomPct},
			opts.DataZoom{Type: "inside"},
		),
		charts.WithYAxisOpts(opts.YAxis{Name: "Commits"}),
	)
	line.SetXAxis(days)

	for i := range top {
		if perDay[i] == nil {
			continue
		}

		data := make([]opts.LineData, len(days))

		var running int64

		for j, day := range days {
			running += perDay[i][day]
			data[j] = opts.LineData{Value: running}
		}

		line.AddSeries(top[i].Name, data)
	}

	return line
}
