package world

import "github.com/cellarena/server/internal/core/event"

func (w *World) emitPlayerSpawned(p *Player) {
	w.emit(func(b *event.Bus) {
		event.Emit(b, event.PlayerSpawned{PlayerID: p.ID, Name: p.CellName, Tick: w.tick})
	})
}

func (w *World) emitPlayerDied(p *Player) {
	w.emit(func(b *event.Bus) {
		event.Emit(b, event.PlayerDied{
			PlayerID:  p.ID,
			Name:      p.CellName,
			Skin:      p.CellSkin,
			MaxMass:   p.MaxScore,
			SpawnTick: p.SpawnTick,
			DeathTick: w.tick,
		})
	})
}

func (w *World) emitPlayerLeft(p *Player, wasPlaying bool) {
	w.emit(func(b *event.Bus) {
		event.Emit(b, event.PlayerLeft{
			PlayerID:   p.ID,
			SessionID:  p.SessionID,
			Name:       p.CellName,
			WasPlaying: wasPlaying,
			Score:      p.MaxScore,
			Tick:       w.tick,
		})
	})
}
