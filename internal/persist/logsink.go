package persist

import (
	"context"

	"go.uber.org/zap"
)

// LogSink stands in for the database when persistence is disabled: runs
// are logged and stats samples are summarized.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink { return &LogSink{log: log} }

func (s *LogSink) WriteBatch(_ context.Context, runs []PlayerRun, stats []WorldStat) error {
	for _, r := range runs {
		s.log.Info("run finished",
			zap.String("name", r.Name),
			zap.String("gamemode", r.Gamemode),
			zap.Float64("max_mass", r.MaxMass),
			zap.Uint64("ticks", r.DeathTick-r.SpawnTick),
		)
	}
	if n := len(stats); n > 0 {
		last := stats[n-1]
		s.log.Debug("world stats",
			zap.Int("samples", n),
			zap.Uint64("tick", last.Tick),
			zap.Int("players", last.Players),
			zap.Int("cells", last.Cells),
			zap.Duration("tick_time", last.TickTime),
		)
	}
	return nil
}
