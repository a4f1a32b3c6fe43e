package internal

import (
	"community-pulse/repositories"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
)

// WriteScheduleTable renders published schedules, newest first.
func WriteScheduleTable(w io.Writer, records []repositories.ScheduleRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Saved at", "Location", "Fajr", "Dhuhr", "Asr", "Maghrib", "Isha"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, record := range records {
		s := record.Schedule
		table.Append([]string{
			record.SavedAt.Format(time.RFC3339),
			s.Location,
			s.Fajr.String(),
			s.Dhuhr.String(),
			s.Asr.String(),
			s.Maghrib.String(),
			s.Isha.String(),
		})
	}
	table.Render()
}

// StartDebugServer exposes the schedule history as plain text on a side port.
// It is only started when the log level is DEBUG.
func StartDebugServer(log *slog.Logger, repo repositories.IScheduleRepository, port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/inspect", InspectHandler(log, repo))
	server := &http.Server{Addr: fmt.Sprintf("localhost:%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("Debug server stopped", "error", err)
		}
	}()
	return server
}

func InspectHandler(log *slog.Logger, repo repositories.IScheduleRepository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				limit = parsed
			}
		}
		records, err := repo.History(limit)
		if err != nil {
			log.Error("Inspect failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		WriteScheduleTable(w, records)
	})
}
