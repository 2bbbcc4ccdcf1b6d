package monitor

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// handleFrameScatter renders a quick scatter plot (HTML) of a frame's
// points using go-echarts. This is a debugging-only endpoint to eyeball a
// capture without exporting it to CloudCompare.
// Query params:
//   - frame (required): capture filename
//   - max_points (optional; default 8000) to reduce payload size
func (ws *WebServer) handleFrameScatter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	frame, err := ws.loadFrame(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	maxPoints := 8000
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 100 && v <= 50000 {
			maxPoints = v
		}
	}

	table, decimation, err := extractScatterData(frame, maxPoints)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("extract points: %v", err))
		return
	}

	xs := table.ColumnAt(0)
	ys := table.ColumnAt(1)
	intensities := table.ColumnAt(2)

	data := make([]opts.ScatterData, 0, table.Len())
	maxAbs := 0.0
	maxIntensity := float64(0)
	for i := 0; i < table.Len(); i++ {
		if math.Abs(xs[i]) > maxAbs {
			maxAbs = math.Abs(xs[i])
		}
		if math.Abs(ys[i]) > maxAbs {
			maxAbs = math.Abs(ys[i])
		}
		if intensities[i] > maxIntensity {
			maxIntensity = intensities[i]
		}
		data = append(data, opts.ScatterData{Value: []interface{}{xs[i], ys[i], intensities[i]}})
	}

	// Pad the axes so edge points stay visible.
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if maxIntensity == 0 {
		maxIntensity = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Frame Scatter", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Frame %d (%s)", frame.Number(), frame.Type()),
			Subtitle: fmt.Sprintf("points=%d decimation=%d", table.Len(), decimation),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxIntensity),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#b5de2b", "#fde725"}},
		}),
	)

	scatter.AddSeries("points", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
