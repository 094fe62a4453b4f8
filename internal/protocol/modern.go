package protocol

import (
	"errors"

	"github.com/cellarena/server/internal/net/packet"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// Modern message tags.
const (
	mPing  = 2
	mInput = 3
	mFrame = 3
)

// Modern input flags, in field order.
const (
	mInSpawn    = 0x01
	mInSpectate = 0x02
	mInQPress   = 0x04
	mInQRelease = 0x08
	mInSplit    = 0x10
	mInEject    = 0x20
	mInChat     = 0x40
	mInStats    = 0x80
)

// Modern frame sections, in wire order.
const (
	SectionCamera uint16 = 1 << iota
	SectionBounds
	SectionReset
	SectionLeaderboard
	SectionChat
	SectionOwnedCells
	SectionCells
	SectionStats
)

type modernCodec struct {
	reg     *packet.Registry
	log     *zap.Logger
	pending []Command
}

func newModernCodec(log *zap.Logger) *modernCodec {
	return &modernCodec{reg: newModernRegistry(log), log: log}
}

func (c *modernCodec) Family() string  { return "modern" }
func (c *modernCodec) Version() uint32 { return ModernVersion }
func (c *modernCodec) Pong() []byte    { return []byte{mPing} }

func newModernRegistry(log *zap.Logger) *packet.Registry {
	ready := []packet.State{packet.StateReady}
	reg := packet.NewRegistry(log)
	reg.Register(mPing, ready, func(ctx any, r *packet.Reader) error {
		c := ctx.(*modernCodec)
		c.pending = append(c.pending, Ping{})
		return nil
	})
	reg.Register(mInput, ready, func(ctx any, r *packet.Reader) error {
		c := ctx.(*modernCodec)
		x, y := r.ReadI32(), r.ReadI32()
		flags := r.ReadU8()
		if r.Err() != nil {
			return r.Err()
		}
		out := append(c.pending, Mouse{X: float64(x), Y: float64(y)})
		if flags&mInSpawn != 0 {
			out = append(out, Spawn{Name: r.ReadZTUTF8()})
		}
		if flags&mInSpectate != 0 {
			out = append(out, Spectate{})
		}
		if flags&mInQPress != 0 {
			out = append(out, QKey{Pressed: true})
		}
		if flags&mInQRelease != 0 {
			out = append(out, QKey{Pressed: false})
		}
		if flags&mInSplit != 0 {
			out = append(out, Split{Count: int(r.ReadU8())})
		}
		if flags&mInEject != 0 {
			out = append(out, Eject{Count: int(r.ReadU8())})
		}
		if flags&mInChat != 0 {
			out = append(out, Chat{Text: r.ReadZTUTF8()})
		}
		if flags&mInStats != 0 {
			out = append(out, StatsRequest{})
		}
		if r.Err() == nil {
			c.pending = out
		}
		return nil
	})
	return reg
}

func (c *modernCodec) Decode(frame []byte, out []Command) ([]Command, error) {
	if len(frame) == 0 {
		return out, violation(ReasonUnexpectedFormat)
	}
	c.pending = out
	err := c.reg.Dispatch(c, packet.StateReady, frame)
	out, c.pending = c.pending, nil
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, packet.ErrUnknownTag):
		return out, violation(ReasonUnknownType)
	default:
		c.log.Debug("modern frame rejected", zap.Error(err))
		return out, violation(ReasonUnexpectedFormat)
	}
}

// Encode renders the whole outbox as one coalesced frame.
func (c *modernCodec) Encode(o *Outbox) [][]byte {
	w := packet.NewWriterWithTag(mFrame)
	w.WriteU16(0)
	var sections uint16

	if o.Camera != nil {
		sections |= SectionCamera
		w.WriteF32(o.Camera.X)
		w.WriteF32(o.Camera.Y)
		w.WriteF32(o.Camera.Scale)
	}
	if o.Bounds != nil {
		sections |= SectionBounds
		w.WriteF64(o.Bounds.Left)
		w.WriteF64(o.Bounds.Top)
		w.WriteF64(o.Bounds.Right)
		w.WriteF64(o.Bounds.Bottom)
	}
	if o.Reset {
		sections |= SectionReset
	}
	if lb := o.Leaderboard; lb != nil {
		sections |= SectionLeaderboard
		writeModernLeaderboard(w, lb)
	}
	if len(o.Chat) > 0 {
		sections |= SectionChat
		w.WriteU16(uint16(len(o.Chat)))
		for i := range o.Chat {
			writeChat(w, &o.Chat[i], false)
		}
	}
	if len(o.OwnedCells) > 0 {
		sections |= SectionOwnedCells
		w.WriteU16(uint16(len(o.OwnedCells)))
		for _, id := range o.OwnedCells {
			w.WriteU32(id)
		}
	}
	if o.Cells != nil && !o.Cells.Empty() {
		sections |= SectionCells
		writeModernCells(w, o.Cells)
	}
	if o.Stats != nil {
		if b, err := msgpack.Marshal(o.Stats); err == nil {
			sections |= SectionStats
			w.WriteU32(uint32(len(b)))
			w.WriteBytes(b)
		} else {
			c.log.Warn("stats marshal failed", zap.Error(err))
		}
	}

	if sections == 0 {
		return nil
	}
	w.PutU16At(1, sections)
	return [][]byte{w.Bytes()}
}

func writeModernLeaderboard(w *packet.Writer, lb *Leaderboard) {
	w.WriteU8(uint8(lb.Kind))
	switch lb.Kind {
	case LeaderboardText:
		w.WriteU16(uint16(len(lb.Lines)))
		for _, l := range lb.Lines {
			w.WriteZTUTF8(l)
		}
	case LeaderboardPie:
		w.WriteU16(uint16(len(lb.Slices)))
		for _, s := range lb.Slices {
			w.WriteF32(s.Weight)
			w.WriteRGB(s.Color)
		}
	default:
		w.WriteU16(uint16(len(lb.Entries)))
		for _, e := range lb.Entries {
			w.WriteBool(e.Self)
			w.WriteZTUTF8(e.Name)
		}
	}
}

func writeModernCells(w *packet.Writer, cs *CellChanges) {
	w.WriteU16(uint16(len(cs.Eat)))
	for _, e := range cs.Eat {
		w.WriteU32(e.Eater)
		w.WriteU32(e.Eaten)
	}
	w.WriteU16(uint16(len(cs.Add)))
	for i := range cs.Add {
		a := &cs.Add[i]
		w.WriteU32(a.ID)
		w.WriteU8(a.Kind)
		w.WriteI32(int32(a.X))
		w.WriteI32(int32(a.Y))
		w.WriteU16(uint16(a.Size))
		w.WriteRGB(a.Color)
		w.WriteZTUTF8(a.Skin)
		w.WriteZTUTF8(a.Name)
	}
	w.WriteU16(uint16(len(cs.Update)))
	for i := range cs.Update {
		u := &cs.Update[i]
		w.WriteU32(u.ID)
		w.WriteU8(u.Fields)
		if u.Fields&FieldPosition != 0 {
			w.WriteI32(int32(u.X))
			w.WriteI32(int32(u.Y))
		}
		if u.Fields&FieldSize != 0 {
			w.WriteU16(uint16(u.Size))
		}
		if u.Fields&FieldColor != 0 {
			w.WriteRGB(u.Color)
		}
		if u.Fields&FieldSkin != 0 {
			w.WriteZTUTF8(u.Skin)
		}
		if u.Fields&FieldName != 0 {
			w.WriteZTUTF8(u.Name)
		}
	}
	w.WriteU16(uint16(len(cs.Delete)))
	for _, id := range cs.Delete {
		w.WriteU32(id)
	}
}
