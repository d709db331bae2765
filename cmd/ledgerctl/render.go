package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/wcharczuk/go-chart/v2"

	"micropatrons/internal/domain"
	"micropatrons/internal/service"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

func renderLeaderboard(w io.Writer, accounts []domain.Account) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Rank", "User", "Balance", "Dollars"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for i, a := range accounts {
		table.Append([]string{
			strconv.Itoa(i + 1),
			a.Username,
			domain.FormatMicropatrons(a.Balance),
			domain.FormatDollars(a.Balance),
		})
	}
	table.SetFooter([]string{"", "Total", domain.FormatMicropatrons(domain.TotalBalance(accounts)), ""})
	table.Render()
}

func renderVictims(w io.Writer, stats []domain.VictimStat) {
	if len(stats) == 0 {
		dimColor.Fprintln(w, "No OpSec violations reported.")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"User", "Violations", "Lost"})
	for _, s := range stats {
		table.Append([]string{s.Username, strconv.Itoa(s.VictimCount), domain.FormatWithDollars(s.TotalLost)})
	}
	table.Render()
}

func renderStats(w io.Writer, stats []domain.DailyStat) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "Transfers", "Volume"})
	for _, s := range stats {
		table.Append([]string{s.Date, strconv.Itoa(s.Transfers), domain.FormatMicropatrons(s.Volume)})
	}
	table.Render()
}

// renderStatsChart draws daily volume as a PNG bar chart.
func renderStatsChart(w io.Writer, stats []domain.DailyStat) error {
	var bars []chart.Value
	var peak int64
	for _, s := range stats {
		bars = append(bars, chart.Value{Label: s.Date[5:], Value: float64(s.Volume)})
		if s.Volume > peak {
			peak = s.Volume
		}
	}
	if peak == 0 {
		return fmt.Errorf("no transfers in the last %d days to chart", len(stats))
	}

	barChart := chart.BarChart{
		Title: "Daily transfer volume (µPatrons)",
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:    100 + 60*len(bars),
		Height:   400,
		BarWidth: 40,
		Bars:     bars,
	}
	barChart.YAxis.ValueFormatter = func(v interface{}) string {
		if vf, isFloat := v.(float64); isFloat {
			return domain.FormatNumber(int64(vf))
		}
		return ""
	}
	return barChart.Render(chart.PNG, w)
}

func renderTransfer(w io.Writer, result *service.TransferResult) {
	okColor.Fprintln(w, result.Message)
	fmt.Fprintf(w, "  %s: %s\n", result.Sender.Username, domain.FormatWithDollars(result.Sender.Balance))
	fmt.Fprintf(w, "  %s: %s\n", result.Receiver.Username, domain.FormatWithDollars(result.Receiver.Balance))
}
