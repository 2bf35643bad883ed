// Package preview renders a day's lighting curves as a text table.
package preview

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/dokzlo13/daylight/internal/curve"
	"github.com/dokzlo13/daylight/internal/daywindow"
	"github.com/dokzlo13/daylight/internal/setting"
)

const barWidth = 40

// Options controls what is rendered
type Options struct {
	Step             time.Duration // Row spacing (default: 15m)
	ColorTemperature bool          // Include the color temperature column
	Params           *curve.Params // Nil means curve.DefaultParams
	Caps             setting.Capabilities
	Sunrise, Sunset  time.Time // Shown in the header when set
}

// Render writes one row per step across the window's calendar day
func Render(w io.Writer, window daywindow.Window, opts Options) error {
	step := opts.Step
	if step <= 0 {
		step = 15 * time.Minute
	}
	params := curve.DefaultParams()
	if opts.Params != nil {
		params = *opts.Params
	}
	if opts.ColorTemperature && opts.Caps.ColorTemperature == nil {
		opts.Caps.ColorTemperature = &setting.MiredRange{Min: 153, Max: 500}
	}

	day := window.Date
	if day.IsZero() {
		y, m, d := window.Start.Date()
		day = time.Date(y, m, d, 0, 0, 0, 0, window.Start.Location())
	}
	loc := day.Location()

	header := color.New(color.Bold)
	if _, err := header.Fprintf(w, "Daylight curve for %s (%s)\n", day.Format("Mon 2006-01-02"), loc); err != nil {
		return err
	}
	if !opts.Sunrise.IsZero() && !opts.Sunset.IsZero() {
		fmt.Fprintf(w, "  sunrise %s  sunset %s\n", clock(opts.Sunrise, loc), clock(opts.Sunset, loc))
	}
	fmt.Fprintf(w, "  start of day %s  end of day %s  midday %s\n\n",
		clock(window.Start, loc), clock(window.End, loc), clock(window.Midday(), loc))

	next := day.AddDate(0, 0, 1)
	for t := day; t.Before(next); t = t.Add(step) {
		sample := params.Evaluate(window, t, opts.ColorTemperature)
		dev := setting.Map(sample, opts.Caps)

		fmt.Fprintf(w, "%s  bri %.3f (%3d)", t.Format("15:04"), sample.Brightness, dev.Brightness)
		if sample.ColorTemperature != nil && dev.ColorTemperature != nil {
			fmt.Fprintf(w, "  ct %.3f (%3d)", *sample.ColorTemperature, *dev.ColorTemperature)
		}
		fmt.Fprint(w, "  ")
		barColor(sample).Fprint(w, bar(sample.Brightness))
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func clock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

func bar(v float64) string {
	n := int(math.Round(v * barWidth))
	return strings.Repeat("█", n) + strings.Repeat("·", barWidth-n)
}

// barColor tints the bar by color temperature: red is warm, cyan is cold
func barColor(s curve.Sample) *color.Color {
	if s.Brightness == 0 {
		return color.New(color.FgHiBlack)
	}
	if s.ColorTemperature == nil {
		return color.New(color.FgYellow)
	}
	switch ct := *s.ColorTemperature; {
	case ct < 1.0/3:
		return color.New(color.FgRed)
	case ct < 2.0/3:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}
