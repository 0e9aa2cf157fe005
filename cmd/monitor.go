package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/urfave/cli/v2"

	httphandler "github.com/webitel/im-presence-service/internal/handler/http"
)

func monitorCmd() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Show live presence stats of a running server (q to quit)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: "http://localhost:8080",
				Usage: "Base URL of the server",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Value: time.Second,
				Usage: "Polling interval",
			},
		},
		Action: func(c *cli.Context) error {
			return runMonitor(c.Context, c.String("addr"), c.Duration("interval"))
		},
	}
}

func runMonitor(ctx context.Context, addr string, interval time.Duration) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("monitor: init terminal: %w", err)
	}
	defer ui.Close()

	client := &http.Client{Timeout: interval}

	table := widgets.NewTable()
	table.Title = " " + ServiceName + " @ " + addr + " "
	table.TextStyle = ui.NewStyle(ui.ColorWhite)
	table.RowSeparator = true
	table.SetRect(0, 0, 60, 13)

	hint := widgets.NewParagraph()
	hint.Text = "q: quit"
	hint.Border = false
	hint.SetRect(0, 13, 60, 15)

	refresh := func() {
		stats, err := fetchStats(ctx, client, addr)
		table.Rows = statsRows(stats, err, time.Now())
		ui.Render(table, hint)
	}
	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	events := ui.PollEvents()

	for {
		select {
		case e := <-events:
			if e.ID == "q" || e.ID == "<C-c>" {
				return nil
			}
		case <-ticker.C:
			refresh()
		case <-ctx.Done():
			return nil
		}
	}
}

func fetchStats(ctx context.Context, client *http.Client, addr string) (httphandler.StatsResponse, error) {
	var stats httphandler.StatsResponse

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(addr, "/")+httphandler.PathStats, nil)
	if err != nil {
		return stats, fmt.Errorf("monitor: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return stats, fmt.Errorf("monitor: fetch stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return stats, fmt.Errorf("monitor: fetch stats: unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return stats, fmt.Errorf("monitor: decode stats: %w", err)
	}
	return stats, nil
}

func statsRows(s httphandler.StatsResponse, err error, at time.Time) [][]string {
	rows := [][]string{
		{"metric", "value"},
		{"online users", strconv.Itoa(s.TotalUsers)},
		{"ready users", strconv.Itoa(s.ReadyUsers)},
		{"connections", strconv.Itoa(s.TotalConnections)},
		{"uptime", s.Uptime},
		{"updated", at.Format(time.TimeOnly)},
	}
	if err != nil {
		rows = append(rows, []string{"error", err.Error()})
	}
	return rows
}
