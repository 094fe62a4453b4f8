package protocol

import (
	"fmt"

	"github.com/cellarena/server/internal/net/packet"
	"github.com/vmihailenco/msgpack/v5"
)

// DecodeLegacyCells parses a legacy cell update frame as a client of the
// given version would. The format does not tell adds from updates, so every
// record lands in Add.
func DecodeLegacyCells(version uint32, frame []byte) (*CellChanges, error) {
	r := packet.NewReader(frame)
	if r.Tag() != lOutCellUpdate {
		return nil, fmt.Errorf("legacy cells: tag %d", r.Tag())
	}
	cs := &CellChanges{}
	for n := int(r.ReadU16()); n > 0 && r.Err() == nil; n-- {
		cs.Eat = append(cs.Eat, EatPair{Eater: r.ReadU32(), Eaten: r.ReadU32()})
	}
	for r.Err() == nil {
		id := r.ReadU32()
		if id == 0 {
			break
		}
		cs.Add = append(cs.Add, readLegacyCell(r, version, id))
	}
	var dels int
	if version < 6 {
		dels = int(r.ReadU32())
	} else {
		dels = int(r.ReadU16())
	}
	for ; dels > 0 && r.Err() == nil; dels-- {
		cs.Delete = append(cs.Delete, r.ReadU32())
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("legacy cells: %w", err)
	}
	return cs, nil
}

func readLegacyCell(r *packet.Reader, version, id uint32) CellRecord {
	c := CellRecord{ID: id, Fields: FieldPosition | FieldSize}
	if version < 6 {
		if version == 4 {
			c.X, c.Y = float64(r.ReadI16()), float64(r.ReadI16())
		} else {
			c.X, c.Y = float64(r.ReadI32()), float64(r.ReadI32())
		}
		c.Size = float64(r.ReadU16())
		c.Color = readRGB(r)
		flags := r.ReadU8()
		c.Name = r.ReadZTUCS2()
		c.Fields |= FieldColor | FieldName
		c.Kind, c.Agitated = legacyKind(flags, 0)
		return c
	}
	c.X, c.Y = float64(r.ReadI32()), float64(r.ReadI32())
	c.Size = float64(r.ReadU16())
	flags := r.ReadU8()
	var ext uint8
	if flags&lFlagExtended != 0 {
		ext = r.ReadU8()
	}
	if flags&lFlagColor != 0 {
		c.Color = readRGB(r)
		c.Fields |= FieldColor
	}
	if flags&lFlagSkin != 0 {
		c.Skin = r.ReadZTUTF8()
		c.Fields |= FieldSkin
	}
	if flags&lFlagName != 0 {
		c.Name = r.ReadZTUTF8()
		c.Fields |= FieldName
	}
	c.Kind, c.Agitated = legacyKind(flags, ext)
	return c
}

// legacyKind recovers what the flags reveal. Spiked cells read as viruses.
func legacyKind(flags, ext uint8) (uint8, bool) {
	kind := KindPlayerCell
	switch {
	case ext&lExtPellet != 0:
		kind = KindPellet
	case flags&lFlagEjected != 0:
		kind = KindEjectedMass
	case flags&lFlagSpiked != 0:
		kind = KindVirus
	}
	return kind, flags&lFlagAgitated != 0
}

func readRGB(r *packet.Reader) uint32 {
	red, green, blue := r.ReadU8(), r.ReadU8(), r.ReadU8()
	return uint32(red)<<16 | uint32(green)<<8 | uint32(blue)
}

// DecodeModernFrame parses one modern server frame back into an outbox.
func DecodeModernFrame(frame []byte) (*Outbox, error) {
	r := packet.NewReader(frame)
	if r.Tag() != mFrame {
		return nil, fmt.Errorf("modern frame: tag %d", r.Tag())
	}
	o := &Outbox{}
	sections := r.ReadU16()
	if sections&SectionCamera != 0 {
		o.Camera = &Camera{X: r.ReadF32(), Y: r.ReadF32(), Scale: r.ReadF32()}
	}
	if sections&SectionBounds != 0 {
		o.Bounds = &Bounds{Left: r.ReadF64(), Top: r.ReadF64(), Right: r.ReadF64(), Bottom: r.ReadF64()}
	}
	o.Reset = sections&SectionReset != 0
	if sections&SectionLeaderboard != 0 {
		o.Leaderboard = readModernLeaderboard(r)
	}
	if sections&SectionChat != 0 {
		for n := int(r.ReadU16()); n > 0 && r.Err() == nil; n-- {
			m := ChatMessage{Server: r.ReadU8()&0x80 != 0, Color: readRGB(r)}
			m.Name = r.ReadZTUTF8()
			m.Text = r.ReadZTUTF8()
			o.Chat = append(o.Chat, m)
		}
	}
	if sections&SectionOwnedCells != 0 {
		for n := int(r.ReadU16()); n > 0 && r.Err() == nil; n-- {
			o.OwnedCells = append(o.OwnedCells, r.ReadU32())
		}
	}
	if sections&SectionCells != 0 {
		o.Cells = readModernCells(r)
	}
	if sections&SectionStats != 0 {
		raw := r.ReadBytes(int(r.ReadU32()))
		if r.Err() == nil {
			o.Stats = &Stats{}
			if err := msgpack.Unmarshal(raw, o.Stats); err != nil {
				return nil, fmt.Errorf("modern frame stats: %w", err)
			}
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("modern frame: %w", err)
	}
	return o, nil
}

func readModernLeaderboard(r *packet.Reader) *Leaderboard {
	lb := &Leaderboard{Kind: LeaderboardKind(r.ReadU8())}
	n := int(r.ReadU16())
	for ; n > 0 && r.Err() == nil; n-- {
		switch lb.Kind {
		case LeaderboardText:
			lb.Lines = append(lb.Lines, r.ReadZTUTF8())
		case LeaderboardPie:
			lb.Slices = append(lb.Slices, PieSlice{Weight: r.ReadF32(), Color: readRGB(r)})
		default:
			self := r.ReadU8()&0x01 != 0
			lb.Entries = append(lb.Entries, LeaderboardEntry{Self: self, Name: r.ReadZTUTF8()})
		}
	}
	return lb
}

func readModernCells(r *packet.Reader) *CellChanges {
	cs := &CellChanges{}
	for n := int(r.ReadU16()); n > 0 && r.Err() == nil; n-- {
		cs.Eat = append(cs.Eat, EatPair{Eater: r.ReadU32(), Eaten: r.ReadU32()})
	}
	for n := int(r.ReadU16()); n > 0 && r.Err() == nil; n-- {
		c := CellRecord{ID: r.ReadU32(), Kind: r.ReadU8()}
		c.X, c.Y = float64(r.ReadI32()), float64(r.ReadI32())
		c.Size = float64(r.ReadU16())
		c.Color = readRGB(r)
		c.Skin = r.ReadZTUTF8()
		c.Name = r.ReadZTUTF8()
		c.Fields = AllFields
		cs.Add = append(cs.Add, c)
	}
	for n := int(r.ReadU16()); n > 0 && r.Err() == nil; n-- {
		c := CellRecord{ID: r.ReadU32(), Fields: r.ReadU8()}
		if c.Fields&FieldPosition != 0 {
			c.X, c.Y = float64(r.ReadI32()), float64(r.ReadI32())
		}
		if c.Fields&FieldSize != 0 {
			c.Size = float64(r.ReadU16())
		}
		if c.Fields&FieldColor != 0 {
			c.Color = readRGB(r)
		}
		if c.Fields&FieldSkin != 0 {
			c.Skin = r.ReadZTUTF8()
		}
		if c.Fields&FieldName != 0 {
			c.Name = r.ReadZTUTF8()
		}
		cs.Update = append(cs.Update, c)
	}
	for n := int(r.ReadU16()); n > 0 && r.Err() == nil; n-- {
		cs.Delete = append(cs.Delete, r.ReadU32())
	}
	return cs
}
