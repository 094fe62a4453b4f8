package protocol

import (
	"encoding/json"
	"errors"

	"github.com/cellarena/server/internal/net/packet"
	"go.uber.org/zap"
)

// Legacy client message tags.
const (
	lSpawn     = 0
	lSpectate  = 1
	lMouse     = 16
	lSplit     = 17
	lQPress    = 18
	lQRelease  = 19
	lEject     = 21
	lChat      = 99
	lStats     = 254
	lHandshake = 255
)

// Legacy server message tags.
const (
	lOutCellUpdate  = 16
	lOutCamera      = 17
	lOutReset       = 18
	lOutOwnedCell   = 32
	lOutTextBoard   = 48
	lOutFFABoard    = 49
	lOutPieBoard    = 50
	lOutFFABoardV11 = 53
	lOutBounds      = 64
	lOutChat        = 99
	lOutStats       = 254
)

type legacyCodec struct {
	version uint32
	state   packet.State
	key     uint32
	reg     *packet.Registry
	log     *zap.Logger

	pending []Command
}

func newLegacyCodec(version uint32, log *zap.Logger) *legacyCodec {
	c := &legacyCodec{
		version: version,
		state:   packet.StateAwaitKey,
		log:     log,
	}
	c.reg = newLegacyRegistry(log)
	return c
}

func (c *legacyCodec) Family() string  { return "legacy" }
func (c *legacyCodec) Version() uint32 { return c.version }
func (c *legacyCodec) Pong() []byte    { return nil }

func (c *legacyCodec) push(cmd Command) { c.pending = append(c.pending, cmd) }

func (c *legacyCodec) readString(r *packet.Reader) string {
	if c.version < 6 {
		return r.ReadZTUCS2()
	}
	return r.ReadZTUTF8()
}

func (c *legacyCodec) writeString(w *packet.Writer, s string) {
	if c.version < 6 {
		w.WriteZTUCS2(s)
		return
	}
	w.WriteZTUTF8(s)
}

func newLegacyRegistry(log *zap.Logger) *packet.Registry {
	ready := []packet.State{packet.StateReady}
	reg := packet.NewRegistry(log)

	reg.Register(lHandshake, []packet.State{packet.StateAwaitKey}, func(ctx any, r *packet.Reader) error {
		c := ctx.(*legacyCodec)
		c.key = r.ReadU32()
		if r.Err() == nil {
			c.state = packet.StateReady
		}
		return nil
	})
	reg.Register(lSpawn, ready, func(ctx any, r *packet.Reader) error {
		c := ctx.(*legacyCodec)
		name := c.readString(r)
		c.push(Spawn{Name: name})
		return nil
	})
	reg.Register(lSpectate, ready, func(ctx any, r *packet.Reader) error {
		ctx.(*legacyCodec).push(Spectate{})
		return nil
	})
	reg.Register(lMouse, ready, func(ctx any, r *packet.Reader) error {
		var m Mouse
		switch r.Len() {
		case 13:
			m.X, m.Y = float64(r.ReadI32()), float64(r.ReadI32())
		case 9:
			m.X, m.Y = float64(r.ReadI16()), float64(r.ReadI16())
		case 21:
			m.X, m.Y = r.ReadF64(), r.ReadF64()
		default:
			return violation(ReasonUnexpectedFormat)
		}
		r.Skip(4)
		ctx.(*legacyCodec).push(m)
		return nil
	})
	reg.Register(lSplit, ready, func(ctx any, r *packet.Reader) error {
		ctx.(*legacyCodec).push(Split{Count: 1})
		return nil
	})
	reg.Register(lQPress, ready, func(ctx any, r *packet.Reader) error {
		ctx.(*legacyCodec).push(QKey{Pressed: true})
		return nil
	})
	reg.Register(lQRelease, ready, func(ctx any, r *packet.Reader) error {
		ctx.(*legacyCodec).push(QKey{Pressed: false})
		return nil
	})
	reg.Register(lEject, ready, func(ctx any, r *packet.Reader) error {
		ctx.(*legacyCodec).push(Eject{Count: 1})
		return nil
	})
	reg.Register(lChat, ready, func(ctx any, r *packet.Reader) error {
		c := ctx.(*legacyCodec)
		f := int(r.ReadU8())
		r.Skip(2 * ((f & 2) + (f & 4) + (f & 8)))
		text := c.readString(r)
		c.push(Chat{Text: text})
		return nil
	})
	reg.Register(lStats, ready, func(ctx any, r *packet.Reader) error {
		ctx.(*legacyCodec).push(StatsRequest{})
		return nil
	})
	return reg
}

func (c *legacyCodec) Decode(frame []byte, out []Command) ([]Command, error) {
	if len(frame) == 0 {
		return out, violation(ReasonUnexpectedFormat)
	}
	c.pending = out
	err := c.reg.Dispatch(c, c.state, frame)
	out, c.pending = c.pending, nil

	var pe *Error
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, packet.ErrNotAllowed):
		// Traffic before the key, or a repeated key.
		return out, nil
	case errors.Is(err, packet.ErrUnknownTag):
		if c.state == packet.StateAwaitKey {
			return out, nil
		}
		return out, violation(ReasonUnknownType)
	case errors.As(err, &pe):
		return out, pe
	default:
		c.log.Debug("legacy frame rejected", zap.Error(err))
		return out, violation(ReasonUnexpectedFormat)
	}
}

func (c *legacyCodec) Encode(o *Outbox) [][]byte {
	var frames [][]byte
	if o.Reset {
		frames = append(frames, []byte{lOutReset})
	}
	if o.Bounds != nil {
		frames = append(frames, c.encodeBounds(o.Bounds))
	}
	for _, id := range o.OwnedCells {
		w := packet.NewWriterWithTag(lOutOwnedCell)
		w.WriteU32(id)
		frames = append(frames, w.Bytes())
	}
	if o.Camera != nil {
		w := packet.NewWriterWithTag(lOutCamera)
		w.WriteF32(o.Camera.X)
		w.WriteF32(o.Camera.Y)
		w.WriteF32(o.Camera.Scale)
		frames = append(frames, w.Bytes())
	}
	if o.Cells != nil {
		frames = append(frames, c.encodeCells(o.Cells))
	}
	if o.Leaderboard != nil {
		frames = append(frames, c.encodeLeaderboard(o.Leaderboard))
	}
	for i := range o.Chat {
		frames = append(frames, c.encodeChat(&o.Chat[i]))
	}
	if o.Stats != nil {
		if b, err := json.Marshal(o.Stats); err == nil {
			w := packet.NewWriterWithTag(lOutStats)
			w.WriteZTUTF8(string(b))
			frames = append(frames, w.Bytes())
		} else {
			c.log.Warn("stats marshal failed", zap.Error(err))
		}
	}
	return frames
}

func (c *legacyCodec) encodeBounds(b *Bounds) []byte {
	w := packet.NewWriterWithTag(lOutBounds)
	w.WriteF64(b.Left)
	w.WriteF64(b.Top)
	w.WriteF64(b.Right)
	w.WriteF64(b.Bottom)
	if c.version >= 6 {
		w.WriteU32(b.Gamemode)
		w.WriteZTUTF8(b.ServerName)
	}
	return w.Bytes()
}

func (c *legacyCodec) encodeCells(cs *CellChanges) []byte {
	w := packet.NewWriterWithTag(lOutCellUpdate)
	w.WriteU16(uint16(len(cs.Eat)))
	for _, e := range cs.Eat {
		w.WriteU32(e.Eater)
		w.WriteU32(e.Eaten)
	}
	for i := range cs.Add {
		c.writeCell(w, &cs.Add[i], true)
	}
	for i := range cs.Update {
		c.writeCell(w, &cs.Update[i], false)
	}
	w.WriteU32(0)
	if c.version < 6 {
		w.WriteU32(uint32(len(cs.Delete)))
	} else {
		w.WriteU16(uint16(len(cs.Delete)))
	}
	for _, id := range cs.Delete {
		w.WriteU32(id)
	}
	return w.Bytes()
}

// Legacy cell record flags.
const (
	lFlagSpiked   = 0x01
	lFlagColor    = 0x02
	lFlagSkin     = 0x04
	lFlagName     = 0x08
	lFlagAgitated = 0x10
	lFlagEjected  = 0x20
	lFlagExtended = 0x80

	lExtPellet = 0x01
)

func (c *legacyCodec) writeCell(w *packet.Writer, cell *CellRecord, add bool) {
	var flags uint8
	if cell.Spiked() {
		flags |= lFlagSpiked
	}
	if cell.Agitated {
		flags |= lFlagAgitated
	}
	if cell.Kind == KindEjectedMass {
		flags |= lFlagEjected
	}

	w.WriteU32(cell.ID)
	if c.version < 6 {
		if c.version == 4 {
			w.WriteI16(int16(int32(cell.X)))
			w.WriteI16(int16(int32(cell.Y)))
		} else {
			w.WriteI32(int32(cell.X))
			w.WriteI32(int32(cell.Y))
		}
		w.WriteU16(uint16(cell.Size))
		w.WriteRGB(cell.Color)
		w.WriteU8(flags)
		w.WriteZTUCS2(cell.Name)
		return
	}

	var color, skin, name bool
	if add {
		color, skin, name = true, cell.Skin != "", cell.Name != ""
	} else {
		color = cell.Fields&FieldColor != 0
		skin = cell.Fields&FieldSkin != 0
		name = cell.Fields&FieldName != 0
	}
	if color {
		flags |= lFlagColor
	}
	if skin {
		flags |= lFlagSkin
	}
	if name {
		flags |= lFlagName
	}
	ext := c.version >= 11 && cell.Kind == KindPellet
	if ext {
		flags |= lFlagExtended
	}

	w.WriteI32(int32(cell.X))
	w.WriteI32(int32(cell.Y))
	w.WriteU16(uint16(cell.Size))
	w.WriteU8(flags)
	if ext {
		w.WriteU8(lExtPellet)
	}
	if color {
		w.WriteRGB(cell.Color)
	}
	if skin {
		w.WriteZTUTF8(cell.Skin)
	}
	if name {
		w.WriteZTUTF8(cell.Name)
	}
}

func (c *legacyCodec) encodeLeaderboard(lb *Leaderboard) []byte {
	var w *packet.Writer
	switch lb.Kind {
	case LeaderboardText:
		w = packet.NewWriterWithTag(lOutTextBoard)
		w.WriteU32(uint32(len(lb.Lines)))
		for _, l := range lb.Lines {
			c.writeString(w, l)
		}
	case LeaderboardPie:
		w = packet.NewWriterWithTag(lOutPieBoard)
		w.WriteU32(uint32(len(lb.Slices)))
		for _, s := range lb.Slices {
			w.WriteF32(s.Weight)
			if c.version >= 11 {
				w.WriteRGB(s.Color)
			}
		}
	default:
		if c.version >= 11 {
			w = packet.NewWriterWithTag(lOutFFABoardV11)
			w.WriteU32(uint32(len(lb.Entries)))
			for _, e := range lb.Entries {
				flags := uint8(0x02)
				if e.Self {
					flags |= 0x08
				}
				w.WriteU8(flags)
				w.WriteZTUTF8(e.Name)
			}
			break
		}
		w = packet.NewWriterWithTag(lOutFFABoard)
		w.WriteU32(uint32(len(lb.Entries)))
		for _, e := range lb.Entries {
			var hl uint32
			if e.Self {
				hl = 1
			}
			w.WriteU32(hl)
			c.writeString(w, e.Name)
		}
	}
	return w.Bytes()
}

func (c *legacyCodec) encodeChat(m *ChatMessage) []byte {
	w := packet.NewWriterWithTag(lOutChat)
	writeChat(w, m, c.version < 6)
	return w.Bytes()
}

func writeChat(w *packet.Writer, m *ChatMessage, ucs2 bool) {
	var flags uint8
	if m.Server {
		flags |= 0x80
	}
	w.WriteU8(flags)
	w.WriteRGB(m.Color)
	if ucs2 {
		w.WriteZTUCS2(m.Name)
		w.WriteZTUCS2(m.Text)
		return
	}
	w.WriteZTUTF8(m.Name)
	w.WriteZTUTF8(m.Text)
}
