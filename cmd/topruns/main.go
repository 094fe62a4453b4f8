// topruns prints the best recorded runs from the run recorder's database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cellarena/server/internal/config"
	"github.com/cellarena/server/internal/persist"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "config/server.toml", "server config file")
	limit := flag.Int("n", 10, "number of runs to print")
	flag.Parse()

	if err := run(*cfgPath, *limit); err != nil {
		fmt.Fprintf(os.Stderr, "topruns: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string, limit int) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.Open(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	runs, err := persist.NewRunRepo(db).TopRuns(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tMODE\tMASS\tTICKS")
	for i, r := range runs {
		name := r.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.0f\t%d\n", i+1, name, r.Gamemode, r.MaxMass, r.DeathTick-r.SpawnTick)
	}
	return tw.Flush()
}
