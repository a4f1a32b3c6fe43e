package workers

import (
	"context"
	"log/slog"
	"reflect"
	"time"
)

type NamedChannel struct {
	Name    string
	Channel any
}

type ChannelUsage struct {
	Name     string
	Capacity int
	Length   int
}

// Free is the ratio of slots still available, 1 for unbuffered channels.
func (u ChannelUsage) Free() float64 {
	if u.Capacity == 0 {
		return 1
	}
	return float64(u.Capacity-u.Length) / float64(u.Capacity)
}

// ChannelCapacityWorker periodically samples buffered channels (the dispatch queue
// mostly) and warns when free capacity drops under lowCapacityThreshold.
// len and cap never block, so sampling does not interfere with producers.
type ChannelCapacityWorker struct {
	log                  *slog.Logger
	channels             []NamedChannel
	metricInterval       time.Duration
	lowCapacityThreshold float64
}

func NewChannelCapacityWorker(log *slog.Logger, channels []NamedChannel,
	metricInterval time.Duration, lowCapacityThreshold float64) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log:                  log,
		channels:             channels,
		metricInterval:       metricInterval,
		lowCapacityThreshold: lowCapacityThreshold,
	}
}

func (w *ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping channel sampling")
			return nil
		case <-ticker.C:
			for _, usage := range w.Sample() {
				if usage.Free() < w.lowCapacityThreshold {
					w.log.Warn("Channel running out of capacity",
						"name", usage.Name,
						"length", usage.Length,
						"capacity", usage.Capacity)
					continue
				}
				w.log.Debug("Channel usage", "name", usage.Name,
					"length", usage.Length, "capacity", usage.Capacity)
			}
		}
	}
}

// Sample reads the current length and capacity of every channel.
// Values that are not channels are logged and skipped.
func (w *ChannelCapacityWorker) Sample() []ChannelUsage {
	usages := make([]ChannelUsage, 0, len(w.channels))
	for _, nc := range w.channels {
		v := reflect.ValueOf(nc.Channel)
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		usages = append(usages, ChannelUsage{Name: nc.Name, Capacity: v.Cap(), Length: v.Len()})
	}
	return usages
}
