package gamemode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cellarena/server/internal/config"
	"github.com/cellarena/server/internal/data"
	"github.com/cellarena/server/internal/scripting"
	"github.com/cellarena/server/internal/world"
	"go.uber.org/zap/zaptest"
)

func newWorld(t *testing.T, gm world.Gamemode, edit func(*config.WorldConfig)) *world.World {
	t.Helper()
	cfg := config.DefaultWorld()
	cfg.Seed = 7
	cfg.PelletCount = 0
	cfg.VirusMinCount = 0
	cfg.MothercellCount = 0
	if edit != nil {
		edit(&cfg)
	}
	return world.New(cfg, gm, zaptest.NewLogger(t))
}

func testSkins(t *testing.T) *data.SkinTable {
	t.Helper()
	skins, err := data.ParseSkinTable([]byte("skins:\n  - name: doge\n"))
	if err != nil {
		t.Fatal(err)
	}
	return skins
}

func TestParseName(t *testing.T) {
	cfg := config.DefaultWorld()
	cfg.PlayerMaxNameLength = 5
	skins := testSkins(t)

	tests := []struct {
		raw, name, skin string
		allowSkins      bool
	}{
		{"bob", "bob", "", true},
		{"<doge>bob", "bob", "doge", true},
		{"<DOGE>bob", "bob", "doge", true},
		{"<cat>bob", "bob", "", true},
		{"<doge>bob", "<doge", "", false},
		{"<oops", "<oops", "", true},
		{"abcdefgh", "abcde", "", true},
		{"ééééééé", "ééééé", "", true},
	}
	for _, tt := range tests {
		cfg.PlayerAllowSkinInName = tt.allowSkins
		name, skin := ParseName(tt.raw, &cfg, skins)
		if name != tt.name || skin != tt.skin {
			t.Errorf("ParseName(%q, skins=%v) = %q, %q; want %q, %q", tt.raw, tt.allowSkins, name, skin, tt.name, tt.skin)
		}
	}
}

func TestFFASpawnAndJoinLimit(t *testing.T) {
	w := newWorld(t, NewFFA(testSkins(t)), func(c *config.WorldConfig) { c.MaxPlayers = 2 })
	p := w.AddPlayer(1)
	p.StageSpawn("<doge>hero")
	w.ApplyAllInput()

	if p.State != world.StatePlaying || len(p.Cells) != 1 {
		t.Fatalf("state %v cells %d", p.State, len(p.Cells))
	}
	c := p.Cells[0]
	if c.Name() != "hero" || c.Skin() != "doge" {
		t.Errorf("cell name %q skin %q", c.Name(), c.Skin())
	}
	if c.Size() != w.Config().PlayerSpawnSize {
		t.Errorf("spawn size %v", c.Size())
	}

	gm := w.Gamemode()
	if !gm.CanJoinWorld(w) {
		t.Fatal("one of two slots used")
	}
	w.AddPlayer(2)
	if gm.CanJoinWorld(w) {
		t.Fatal("world is full")
	}
	if gm.DecayMult(w, c) != w.Config().PlayerDecayMult {
		t.Error("FFA decays at the configured rate")
	}
}

func TestTeamsBalanceAndPie(t *testing.T) {
	w := newWorld(t, NewTeams(nil, data.DefaultTeams()), nil)
	var players []*world.Player
	for i := 0; i < 4; i++ {
		players = append(players, w.AddPlayer(uint64(i+1)))
	}
	want := []int{0, 1, 2, 0}
	for i, p := range players {
		if p.Team != want[i] {
			t.Fatalf("player %d on team %d, want %d", i, p.Team, want[i])
		}
	}

	lb := w.Gamemode().CompileLeaderboard(w)
	if lb.Kind != world.LeaderboardPie || len(lb.Slices) != 3 {
		t.Fatalf("leaderboard %+v", lb)
	}
	for _, s := range lb.Slices {
		if s.Weight < 0.33 || s.Weight > 0.34 {
			t.Fatalf("empty world should split evenly: %+v", lb.Slices)
		}
	}

	players[0].StageSpawn("red")
	players[1].StageSpawn("green")
	w.ApplyAllInput()
	w.UpdateViews()
	lb = w.Gamemode().CompileLeaderboard(w)
	if lb.Slices[0].Weight != 0.5 || lb.Slices[1].Weight != 0.5 || lb.Slices[2].Weight != 0 {
		t.Fatalf("weights %+v", lb.Slices)
	}
	if lb.Slices[0].Color != 0xFF0000 {
		t.Errorf("slice color %#x", lb.Slices[0].Color)
	}

	red := players[0].Cells[0].Color()
	if r := red >> 16; r < 0xFF-colorJitter {
		t.Errorf("red member color %#x strays from the team color", red)
	}
}

func TestScriptedHooks(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "gamemode"), 0o755)
	os.WriteFile(filepath.Join(dir, "gamemode", "h.lua"), []byte(`
function filter_name(name) return string.upper(name) end
function decay_mult(cell) return cell.base * cell.owner_cells end
`), 0o644)
	engine, err := scripting.NewEngine(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	gm, err := New(config.GamemodeConfig{Mode: "ffa"}, nil, nil, engine)
	if err != nil {
		t.Fatal(err)
	}
	w := newWorld(t, gm, nil)
	p := w.AddPlayer(1)
	p.StageSpawn("quiet")
	w.ApplyAllInput()
	if got := p.Cells[0].Name(); got != "QUIET" {
		t.Fatalf("filtered name %q", got)
	}
	if got := gm.DecayMult(w, p.Cells[0]); got != w.Config().PlayerDecayMult {
		t.Fatalf("decay %v", got)
	}
	if gm.ID() != IDFFA || gm.Name() != "FFA" {
		t.Error("wrapper must keep the inner identity")
	}

	if _, err := New(config.GamemodeConfig{Mode: "battle royale"}, nil, nil, nil); err == nil {
		t.Error("unknown mode accepted")
	}
}
