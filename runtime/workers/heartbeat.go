package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ConnectionStats is what the health report needs from the registry.
type ConnectionStats interface {
	ConnectionCount() int
	RoomCount() int
}

type HealthReport struct {
	PID         int32
	Status      string
	CPUPercent  float64
	RSSBytes    uint64
	Connections int
	Rooms       int
}

// HealthWorker logs the server process footprint together with the connection load.
type HealthWorker struct {
	log            *slog.Logger
	stats          ConnectionStats
	metricInterval time.Duration
}

func NewHealthWorker(log *slog.Logger, stats ConnectionStats, metricInterval time.Duration) *HealthWorker {
	return &HealthWorker{log: log, stats: stats, metricInterval: metricInterval}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report, err := w.Report(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.log.Info("Health",
				"pid", report.PID,
				"status", report.Status,
				"cpu_percent", report.CPUPercent,
				"rss_bytes", report.RSSBytes,
				"connections", report.Connections,
				"rooms", report.Rooms)
		}
	}
}

// Report collects one sample for the given process.
func (w *HealthWorker) Report(p *process.Process) (HealthReport, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return HealthReport{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return HealthReport{}, err
	}
	status, err := p.Status()
	if err != nil {
		return HealthReport{}, err
	}
	return HealthReport{
		PID:         p.Pid,
		Status:      status,
		CPUPercent:  cpuPercent,
		RSSBytes:    memInfo.RSS,
		Connections: w.stats.ConnectionCount(),
		Rooms:       w.stats.RoomCount(),
	}, nil
}
