// Package render draws accepted runs as self-contained HTML charts.
package render

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"codeberg.org/mutker/virtualdyno/internal/dyno"
	"codeberg.org/mutker/virtualdyno/internal/errors"
	"codeberg.org/mutker/virtualdyno/internal/telemetry"
)

const defaultFilePerm = 0o644

// WriteRunChart renders the torque and power curves of a run into a
// single line chart and writes it as a standalone HTML file. Rejected
// runs have no curves and are refused.
func WriteRunChart(run *dyno.Run, path string) error {
	errFactory := errors.New()

	if len(run.TorqueCurve) == 0 && len(run.PowerCurve) == 0 {
		return errFactory.WithData(ErrEmptyCurves, struct {
			ID     string
			Status string
		}{
			ID:     run.ID,
			Status: string(run.Status),
		})
	}

	line := charts.NewLine()

	subtitle := fmt.Sprintf("confidence %.0f (%s), data quality %.0f%%",
		run.Confidence.Value, run.Confidence.Rating, run.DataQuality*100)
	if run.Source == telemetry.SourceSimulated {
		subtitle += " (simulated telemetry)"
	}

	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Virtual Dyno Run",
			Width:     "1100px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Run %s", run.ID),
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Engine RPM"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Torque (Nm) / Power (kW)"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	line.SetXAxis(axisLabels(run.TorqueCurve))
	line.AddSeries("Engine torque (Nm)", lineData(run.TorqueCurve, 1))
	line.AddSeries("Engine power (kW)", lineData(run.PowerCurve, 1.0/1000))
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		charts.WithMarkPointNameTypeItemOpts(opts.MarkPointNameTypeItem{Name: "Peak", Type: "max"}),
	)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, defaultFilePerm)
	if err != nil {
		return errFactory.Wrap(ErrWriteChart, err)
	}
	defer f.Close()

	if err := line.Render(f); err != nil {
		return errFactory.Wrap(ErrRenderFailed, err)
	}

	return nil
}

func axisLabels(curve []dyno.CurvePoint) []string {
	labels := make([]string, len(curve))
	for i, p := range curve {
		labels[i] = fmt.Sprintf("%.0f", p.RPM)
	}

	return labels
}

func lineData(curve []dyno.CurvePoint, scale float64) []opts.LineData {
	data := make([]opts.LineData, len(curve))
	for i, p := range curve {
		data[i] = opts.LineData{Value: p.Value * scale}
	}

	return data
}
