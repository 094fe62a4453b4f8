package system

import (
	"github.com/cellarena/server/internal/protocol"
	"github.com/cellarena/server/internal/world"
)

// leaderboardSize is how many ranked entries a viewer receives.
const leaderboardSize = 10

// fieldsOf maps world dirty bits onto wire field bits; the two enumerate
// skin and name in opposite order.
func fieldsOf(d world.Dirty) uint8 {
	var f uint8
	if d&world.DirtyPosition != 0 {
		f |= protocol.FieldPosition
	}
	if d&world.DirtySize != 0 {
		f |= protocol.FieldSize
	}
	if d&world.DirtyColor != 0 {
		f |= protocol.FieldColor
	}
	if d&world.DirtySkin != 0 {
		f |= protocol.FieldSkin
	}
	if d&world.DirtyName != 0 {
		f |= protocol.FieldName
	}
	return f
}

func cellRecord(c *world.Cell, fields uint8) protocol.CellRecord {
	return protocol.CellRecord{
		ID:     c.ID,
		Kind:   uint8(c.Kind),
		X:      c.X(),
		Y:      c.Y(),
		Size:   c.Size(),
		Color:  c.Color(),
		Skin:   c.Skin(),
		Name:   c.Name(),
		Fields: fields,
	}
}

// appendChanges converts one player's visibility diff.
func appendChanges(dst *protocol.CellChanges, cs *world.ChangeSet) {
	for _, e := range cs.Eat {
		dst.Eat = append(dst.Eat, protocol.EatPair{Eater: e.Eater, Eaten: e.Eaten})
	}
	for _, c := range cs.Add {
		dst.Add = append(dst.Add, cellRecord(c, protocol.AllFields))
	}
	for _, u := range cs.Update {
		dst.Update = append(dst.Update, cellRecord(u.Cell, fieldsOf(u.Fields)))
	}
	dst.Delete = append(dst.Delete, cs.Delete...)
}

// viewerLeaderboard converts the compiled board for one viewer. Ranked
// boards are cut to the top entries with the viewer's own line flagged.
func viewerLeaderboard(lb world.Leaderboard, viewer uint32) *protocol.Leaderboard {
	out := &protocol.Leaderboard{Lines: lb.Lines}
	switch lb.Kind {
	case world.LeaderboardText:
		out.Kind = protocol.LeaderboardText
	case world.LeaderboardPie:
		out.Kind = protocol.LeaderboardPie
		out.Slices = make([]protocol.PieSlice, len(lb.Slices))
		for i, s := range lb.Slices {
			out.Slices[i] = protocol.PieSlice{Weight: s.Weight, Color: s.Color}
		}
	default:
		out.Kind = protocol.LeaderboardFFA
		n := min(len(lb.Entries), leaderboardSize)
		out.Entries = make([]protocol.LeaderboardEntry, n)
		for i, e := range lb.Entries[:n] {
			out.Entries[i] = protocol.LeaderboardEntry{Name: e.Name, Self: e.PlayerID == viewer}
		}
	}
	return out
}

func boundsOf(w *world.World, serverName string) *protocol.Bounds {
	b := w.Border()
	return &protocol.Bounds{
		Left:       b.Left(),
		Top:        b.Top(),
		Right:      b.Right(),
		Bottom:     b.Bottom(),
		Gamemode:   w.Gamemode().ID(),
		ServerName: serverName,
	}
}
