package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/display"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/namespace"
)

const probeTimeout = time.Second

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	staleStyle  = cellStyle.Foreground(lipgloss.Color("214"))
)

// listRow is one slot in --list output.
type listRow struct {
	namespace.Entry
	Probe      *display.Info `json:"probe,omitempty"`
	ProbeError string        `json:"probe_error,omitempty"`
}

func runList(cmd *cobra.Command, a *app.App) error {
	if listFormat != "table" && listFormat != "json" {
		return errors.UsageError(fmt.Sprintf("unknown format %q (want table or json)", listFormat))
	}

	ns := a.Namespace
	entries, err := ns.Scan()
	if err != nil {
		return errors.Wrap(errors.ExitGeneralError, "failed to scan "+ns.Root(), err)
	}

	if cleanMode {
		for _, s := range ns.Clean(entries) {
			logSuccess("Removed stale artifacts for %s", s.Display())
		}
		if entries, err = ns.Scan(); err != nil {
			return errors.Wrap(errors.ExitGeneralError, "failed to scan "+ns.Root(), err)
		}
	}

	rows := make([]listRow, 0, len(entries))
	for _, e := range entries {
		row := listRow{Entry: e}
		if a.Config.Probe && e.HasSocket {
			ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
			info, err := display.Probe(ctx, e.SocketPath)
			cancel()
			if err != nil {
				row.ProbeError = err.Error()
			} else {
				row.Probe = info
			}
		}
		rows = append(rows, row)
	}

	out := cmd.OutOrStdout()
	if listFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		logInfo("No display slots in use under %s", ns.Root())
		return nil
	}

	fmt.Fprintln(out, renderTable(rows, a.Config.Probe))
	return nil
}

func renderTable(rows []listRow, probe bool) string {
	headers := []string{"DISPLAY", "LOCK", "SOCKET", "OWNER", "STATE"}
	if probe {
		headers = append(headers, "X11")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case rows[row].State != namespace.StateActive:
				return staleStyle
			default:
				return cellStyle
			}
		})

	for _, r := range rows {
		owner := "-"
		if r.OwnerPID > 0 {
			owner = strconv.Itoa(r.OwnerPID)
			if !r.OwnerAlive {
				owner += " (dead)"
			}
		}
		cells := []string{r.Display, yesNo(r.HasLock), yesNo(r.HasSocket), owner, formatState(r.State)}
		if probe {
			cells = append(cells, probeSummary(r))
		}
		t.Row(cells...)
	}
	return t.String()
}

func probeSummary(r listRow) string {
	switch {
	case r.Probe != nil:
		return fmt.Sprintf("ok %dx%d", r.Probe.Width, r.Probe.Height)
	case r.ProbeError != "":
		return "no answer"
	default:
		return "-"
	}
}
