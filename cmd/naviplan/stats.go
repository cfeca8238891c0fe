package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/openav/naviplan/services/planning/navi"
)

// statsTable renders the counters a stopped planner reports.
func statsTable(stats navi.Stats) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Counter", "Value"})
	t.AppendRows([]table.Row{
		{"cycles", stats.Cycles},
		{"fallbacks", stats.Fallbacks},
		{"optimizer failures", stats.OptimizerFailures},
		{"degraded cycles", stats.DegradedCycles},
		{"overwritten pad commands", stats.PadOverwritten},
		{"ticks", stats.Scheduler.Ticks},
		{"overruns", stats.Scheduler.Overruns},
		{"average cycle", fmt.Sprint(stats.Scheduler.AverageCycle)},
	})
	return t.Render()
}
