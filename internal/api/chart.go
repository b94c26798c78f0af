package api

import (
	"bytes"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/range.trigger/internal/db"
	"github.com/banshee-data/range.trigger/internal/httputil"
)

// triggerChart renders the recent trigger deltas and baselines as an HTML
// line chart, oldest on the left.
func (s *Server) triggerChart(w http.ResponseWriter, r *http.Request) {
	events, ok := s.recentTriggers(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := renderTriggerChart(&buf, events); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func renderTriggerChart(buf *bytes.Buffer, events []db.TriggerEvent) error {
	ordered := slices.Clone(events)
	slices.Reverse(ordered)

	x := make([]string, 0, len(ordered))
	deltas := make([]opts.LineData, 0, len(ordered))
	baselines := make([]opts.LineData, 0, len(ordered))
	for _, ev := range ordered {
		x = append(x, ev.TriggeredAt.Local().Format(time.TimeOnly))
		deltas = append(deltas, opts.LineData{Value: ev.DeltaCM})
		baselines = append(baselines, opts.LineData{Value: ev.BaselineCM})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Range triggers", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Recent triggers", Subtitle: fmt.Sprintf("%d events", len(events))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "cm"}),
	)
	line.SetXAxis(x).
		AddSeries("delta", deltas, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"})).
		AddSeries("baseline", baselines)

	return line.Render(buf)
}
