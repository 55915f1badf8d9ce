package leaderboardservice

import (
	"bytes"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// GenerateLeaderboardChart produces a PNG bar chart of total points per team.
func GenerateLeaderboardChart(rows []Row, palette ChartPalette) ([]byte, error) {
	if palette == (ChartPalette{}) {
		palette = DefaultPalette
	}
	if len(rows) == 0 {
		return renderNoDataPlaceholder(palette)
	}

	maxPoints := 1.0
	bars := make([]chart.Value, 0, len(rows))
	for _, r := range rows {
		v := float64(r.TotalPoints)
		if v > maxPoints {
			maxPoints = v
		}
		bars = append(bars, chart.Value{
			Label: r.TeamName,
			Value: v,
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex(trimHash(palette.Bar)),
				StrokeColor: drawing.ColorFromHex(trimHash(palette.Bar)),
			},
		})
	}

	text := drawing.ColorFromHex(trimHash(palette.Text))
	bg := drawing.ColorFromHex(trimHash(palette.Background))

	graph := chart.BarChart{
		Title:      "Leaderboard",
		TitleStyle: chart.Style{FontColor: text},
		Width:      max(400, 100+80*len(bars)),
		Height:     400,
		BarWidth:   50,
		BarSpacing: 20,
		Background: chart.Style{FillColor: bg, Padding: chart.Box{Top: 40}},
		Canvas:     chart.Style{FillColor: bg},
		XAxis:      chart.Style{FontColor: text},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: text},
			Range: &chart.ContinuousRange{Min: 0, Max: maxPoints},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// renderNoDataPlaceholder draws straight onto a PNG renderer since go-chart
// refuses to render a chart without series.
func renderNoDataPlaceholder(palette ChartPalette) ([]byte, error) {
	const (
		width  = 400
		height = 200
		msg    = "No approved work yet"
	)

	r, err := chart.PNG(width, height)
	if err != nil {
		return nil, err
	}
	r.SetDPI(chart.DefaultDPI)

	bg := drawing.ColorFromHex(trimHash(palette.Background))
	r.SetFillColor(bg)
	r.SetStrokeColor(bg)
	r.MoveTo(0, 0)
	r.LineTo(width, 0)
	r.LineTo(width, height)
	r.LineTo(0, height)
	r.Close()
	r.FillStroke()

	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, err
	}
	r.SetFont(font)
	r.SetFontColor(drawing.ColorFromHex(trimHash(palette.Text)))
	r.SetFontSize(12.0)
	tb := r.MeasureText(msg)
	r.Text(msg, (width-tb.Width())/2, (height+tb.Height())/2)

	buffer := bytes.NewBuffer([]byte{})
	if err := r.Save(buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func trimHash(hex string) string {
	if len(hex) > 0 && hex[0] == '#' {
		return hex[1:]
	}
	return hex
}
