package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// PlayerRun is one finished life of a player.
type PlayerRun struct {
	Name      string
	Skin      string
	Gamemode  string
	MaxMass   float64
	SpawnTick uint64
	DeathTick uint64
}

// WorldStat is one periodic sample of the world counters.
type WorldStat struct {
	Tick       uint64
	Players    int
	Playing    int
	Spectating int
	Cells      int
	Pellets    int
	Viruses    int
	TickTime   time.Duration
}

// Sink stores recorded batches.
type Sink interface {
	WriteBatch(ctx context.Context, runs []PlayerRun, stats []WorldStat) error
}

// RunRepo writes runs and stats to Postgres.
type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// WriteBatch stores everything in one transaction.
func (r *RunRepo) WriteBatch(ctx context.Context, runs []PlayerRun, stats []WorldStat) error {
	batch := &pgx.Batch{}
	for _, run := range runs {
		batch.Queue(
			`INSERT INTO player_runs (name, skin, gamemode, max_mass, spawn_tick, death_tick)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			run.Name, run.Skin, run.Gamemode, run.MaxMass, int64(run.SpawnTick), int64(run.DeathTick),
		)
	}
	for _, st := range stats {
		batch.Queue(
			`INSERT INTO world_stats (tick, players, playing, spectating, cells, pellets, viruses, tick_micros)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			int64(st.Tick), st.Players, st.Playing, st.Spectating, st.Cells, st.Pellets, st.Viruses,
			st.TickTime.Microseconds(),
		)
	}
	if batch.Len() == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("write batch (%d runs, %d stats): %w", len(runs), len(stats), err)
	}
	return nil
}

// TopRuns returns the best recorded runs by mass.
func (r *RunRepo) TopRuns(ctx context.Context, limit int) ([]PlayerRun, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT name, skin, gamemode, max_mass, spawn_tick, death_tick
		 FROM player_runs ORDER BY max_mass DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top runs: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (PlayerRun, error) {
		var run PlayerRun
		var spawn, death int64
		err := row.Scan(&run.Name, &run.Skin, &run.Gamemode, &run.MaxMass, &spawn, &death)
		run.SpawnTick, run.DeathTick = uint64(spawn), uint64(death)
		return run, err
	})
}
