package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/llehouerou/subcue/internal/engine"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

const (
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

func renderStatus(snap engine.Snapshot, now time.Time, colorize bool) string {
	var b strings.Builder

	summary := snap.String()
	if colorize {
		summary = ansiBold + summary + ansiReset
	}
	b.WriteString(summary)
	b.WriteString("\n")
	fmt.Fprintf(&b, "overlay: %s | pending tasks: %d\n", snap.OverlayState, snap.PendingTasks)

	if len(snap.Sessions) == 0 {
		b.WriteString("no active sessions\n")
		return b.String()
	}

	headers := []string{"Audio ID", "File", "State", "Position", "Volume", "Cues", "Loop", "Started"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft}
	rows := make([][]string, 0, len(snap.Sessions))
	for _, s := range snap.Sessions {
		rows = append(rows, []string{
			s.ID,
			filepath.Base(s.AudioFile),
			s.State,
			formatPosition(s.Position, s.Duration),
			fmt.Sprintf("%.0f%%", s.Volume*100),
			fmt.Sprintf("%d/%d", s.Cursor, s.Cues),
			yesNo(s.Loop),
			humanize.RelTime(s.StartedAt, now, "ago", "from now"),
		})
	}
	b.WriteString(renderTable(headers, rows, aligns))
	b.WriteString("\n")
	return b.String()
}

func formatPosition(pos, duration float64) string {
	if duration <= 0 {
		return clockTime(pos)
	}
	return clockTime(pos) + " / " + clockTime(duration)
}

func clockTime(seconds float64) string {
	total := int(max(seconds, 0))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
