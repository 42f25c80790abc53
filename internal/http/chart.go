package http

import (
	"math"
	"strconv"
	"strings"

	"expensetracker/internal/core"
)

const (
	chartWidth  = 640
	chartHeight = 200
	chartPad    = 24
)

// lineChart is an inline SVG of the month's per-day income and expenses.
// Days without transactions are drawn at zero.
type lineChart struct {
	Width    int
	Height   int
	Income   string // polyline points
	Expenses string
	MaxLabel string
	XLabels  []chartLabel
	Empty    bool
}

type chartLabel struct {
	X    int
	Text string
}

func buildLineChart(ym core.YearMonth, series []core.DayPoint, format func(int64) string) lineChart {
	c := lineChart{Width: chartWidth, Height: chartHeight, Empty: len(series) == 0}
	_, last := ym.Range()
	days := last.Day()

	income := make([]float64, days)
	expenses := make([]float64, days)
	var peak float64
	for _, p := range series {
		d, err := core.ParseDate(p.Date)
		if err != nil || d.YearMonth() != ym {
			continue
		}
		income[d.Day()-1] += p.Income
		expenses[d.Day()-1] += p.Expenses
	}
	for i := 0; i < days; i++ {
		if income[i] > peak {
			peak = income[i]
		}
		if expenses[i] > peak {
			peak = expenses[i]
		}
	}
	if peak == 0 {
		peak = 1
	}
	c.MaxLabel = format(int64(math.Round(peak * 100)))

	plotW := float64(chartWidth - 2*chartPad)
	plotH := float64(chartHeight - 2*chartPad)
	x := func(i int) float64 {
		if days == 1 {
			return chartPad
		}
		return chartPad + plotW*float64(i)/float64(days-1)
	}
	y := func(v float64) float64 {
		return chartPad + plotH*(1-v/peak)
	}
	points := func(values []float64) string {
		var sb strings.Builder
		for i, v := range values {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.FormatFloat(x(i), 'f', 1, 64))
			sb.WriteByte(',')
			sb.WriteString(strconv.FormatFloat(y(v), 'f', 1, 64))
		}
		return sb.String()
	}
	c.Income = points(income)
	c.Expenses = points(expenses)

	for _, day := range []int{1, 8, 15, 22, days} {
		c.XLabels = append(c.XLabels, chartLabel{X: int(x(day - 1)), Text: itoa(day)})
	}
	return c
}

func itoa(n int) string { return strconv.Itoa(n) }
