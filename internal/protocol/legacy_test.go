package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/cellarena/server/internal/net/packet"
	"go.uber.org/zap/zaptest"
)

func legacy(t *testing.T, version uint32) *legacyCodec {
	t.Helper()
	return newLegacyCodec(version, zaptest.NewLogger(t))
}

func decodeAll(t *testing.T, c Codec, frames ...[]byte) []Command {
	t.Helper()
	var out []Command
	for _, f := range frames {
		var err error
		out, err = c.Decode(f, out)
		if err != nil {
			t.Fatalf("decode % x: %v", f, err)
		}
	}
	return out
}

func wantReason(t *testing.T, err error, reason string) {
	t.Helper()
	var pe *Error
	if !errors.As(err, &pe) || pe.Reason != reason {
		t.Fatalf("want %q, got %v", reason, err)
	}
}

func TestLegacyKeyGate(t *testing.T) {
	c := legacy(t, 6)
	got := decodeAll(t, c,
		[]byte{lSpectate},
		[]byte{77},
		[]byte{lHandshake, 1, 2, 3, 4},
		[]byte{lSpawn, 'b', 'o', 'b', 0},
		[]byte{lHandshake, 1, 2, 3, 4},
	)
	want := []Command{Spawn{Name: "bob"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v", got)
	}
	if c.key != 0x04030201 {
		t.Errorf("key %#x", c.key)
	}
}

func TestLegacySpawnNameEncoding(t *testing.T) {
	c := legacy(t, 5)
	got := decodeAll(t, c,
		[]byte{lHandshake, 0, 0, 0, 0},
		[]byte{lSpawn, 'h', 0, 'i', 0, 0, 0},
	)
	if !reflect.DeepEqual(got, []Command{Spawn{Name: "hi"}}) {
		t.Fatalf("got %#v", got)
	}
}

func TestLegacyMouse(t *testing.T) {
	i32 := packet.NewWriterWithTag(lMouse)
	i32.WriteI32(-100)
	i32.WriteI32(250)
	i32.WriteU32(0)
	i16 := packet.NewWriterWithTag(lMouse)
	i16.WriteI16(-7)
	i16.WriteI16(9)
	i16.WriteU32(0)
	f64 := packet.NewWriterWithTag(lMouse)
	f64.WriteF64(1.5)
	f64.WriteF64(-2.25)
	f64.WriteU32(0)

	c := legacy(t, 6)
	got := decodeAll(t, c, []byte{lHandshake, 0, 0, 0, 0}, i32.Bytes(), i16.Bytes(), f64.Bytes())
	want := []Command{Mouse{-100, 250}, Mouse{-7, 9}, Mouse{1.5, -2.25}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v", got)
	}

	_, err := c.Decode([]byte{lMouse, 1, 2, 3}, nil)
	wantReason(t, err, ReasonUnexpectedFormat)
}

func TestLegacyCommands(t *testing.T) {
	c := legacy(t, 11)
	chat := []byte{lChat, 0x02, 0xAA, 0xBB, 0xCC, 0xDD, 'y', 'o', 0}
	got := decodeAll(t, c,
		[]byte{lHandshake, 0, 0, 0, 0},
		[]byte{lSplit}, []byte{lEject}, []byte{lQPress}, []byte{lQRelease},
		[]byte{lSpectate}, []byte{lStats}, chat,
	)
	want := []Command{
		Split{Count: 1}, Eject{Count: 1}, QKey{Pressed: true}, QKey{Pressed: false},
		Spectate{}, StatsRequest{}, Chat{Text: "yo"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v", got)
	}

	_, err := c.Decode([]byte{200}, nil)
	wantReason(t, err, ReasonUnknownType)
	_, err = c.Decode(nil, nil)
	wantReason(t, err, ReasonUnexpectedFormat)
	_, err = c.Decode([]byte{lChat, 0x08, 1}, nil)
	wantReason(t, err, ReasonUnexpectedFormat)
}

func TestLegacyCellGolden(t *testing.T) {
	player := CellRecord{ID: 5, Kind: KindPlayerCell, X: 10, Y: -2, Size: 32, Color: 0x112233, Name: "a"}
	virus := CellRecord{ID: 5, Kind: KindVirus, X: 10, Y: -2, Size: 100, Color: 0x33FF33}
	pellet := CellRecord{ID: 7, Kind: KindPellet, X: 1, Y: 2, Size: 10, Color: 0xFF0000}
	grown := CellRecord{ID: 8, Kind: KindPlayerCell, Size: 50, Fields: FieldSize | FieldName, Name: "b"}

	tests := []struct {
		name    string
		version uint32
		cs      CellChanges
		want    []byte
	}{
		{"v4", 4, CellChanges{Add: []CellRecord{player}, Delete: []uint32{9}}, []byte{
			16, 0, 0,
			5, 0, 0, 0, 10, 0, 0xFE, 0xFF, 32, 0, 0x11, 0x22, 0x33, 0, 'a', 0, 0, 0,
			0, 0, 0, 0,
			1, 0, 0, 0, 9, 0, 0, 0,
		}},
		{"v5", 5, CellChanges{Add: []CellRecord{player}, Delete: []uint32{9}}, []byte{
			16, 0, 0,
			5, 0, 0, 0, 10, 0, 0, 0, 0xFE, 0xFF, 0xFF, 0xFF, 32, 0, 0x11, 0x22, 0x33, 0, 'a', 0, 0, 0,
			0, 0, 0, 0,
			1, 0, 0, 0, 9, 0, 0, 0,
		}},
		{"v6", 6, CellChanges{Eat: []EatPair{{1, 2}}, Add: []CellRecord{virus}}, []byte{
			16, 1, 0, 1, 0, 0, 0, 2, 0, 0, 0,
			5, 0, 0, 0, 10, 0, 0, 0, 0xFE, 0xFF, 0xFF, 0xFF, 100, 0, 0x03, 0x33, 0xFF, 0x33,
			0, 0, 0, 0,
			0, 0,
		}},
		{"v11", 11, CellChanges{Add: []CellRecord{pellet}, Update: []CellRecord{grown}}, []byte{
			16, 0, 0,
			7, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 10, 0, 0x82, 0x01, 0xFF, 0, 0,
			8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 50, 0, 0x08, 'b', 0,
			0, 0, 0, 0,
			0, 0,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := legacy(t, tt.version).Encode(&Outbox{Cells: &tt.cs})
			if len(frames) != 1 {
				t.Fatalf("got %d frames", len(frames))
			}
			if !bytes.Equal(frames[0], tt.want) {
				t.Fatalf("got  % x\nwant % x", frames[0], tt.want)
			}
		})
	}
}

func TestLegacyRoundTrip(t *testing.T) {
	cs := CellChanges{
		Eat: []EatPair{{Eater: 3, Eaten: 4}},
		Add: []CellRecord{
			{ID: 3, Kind: KindPlayerCell, X: 100, Y: -40, Size: 90, Color: 0x0000FF, Skin: "doge", Name: "p"},
			{ID: 11, Kind: KindEjectedMass, X: 5, Y: 5, Size: 38, Color: 0x00FF00},
		},
		Update: []CellRecord{{ID: 12, Kind: KindVirus, X: 7, Y: 8, Size: 120, Fields: FieldPosition | FieldSize}},
		Delete: []uint32{20, 21},
	}
	for _, v := range []uint32{6, 10, 11, 18} {
		frames := legacy(t, v).Encode(&Outbox{Cells: &cs})
		got, err := DecodeLegacyCells(v, frames[0])
		if err != nil {
			t.Fatalf("v%d: %v", v, err)
		}
		records := append(append([]CellRecord{}, cs.Add...), cs.Update...)
		if len(got.Add) != len(records) {
			t.Fatalf("v%d: %d records, want %d", v, len(got.Add), len(records))
		}
		for i, r := range got.Add {
			w := records[i]
			if r.ID != w.ID || r.Kind != w.Kind || r.X != w.X || r.Y != w.Y || r.Size != w.Size {
				t.Errorf("v%d record %d: got %+v want %+v", v, i, r, w)
			}
			if i < len(cs.Add) && (r.Color != w.Color || r.Skin != w.Skin || r.Name != w.Name) {
				t.Errorf("v%d add %d lost appearance: %+v", v, i, r)
			}
		}
		if !reflect.DeepEqual(got.Eat, cs.Eat) || !reflect.DeepEqual(got.Delete, cs.Delete) {
			t.Errorf("v%d: eat %v delete %v", v, got.Eat, got.Delete)
		}
	}
}

func TestLegacyRoundTripUCS2(t *testing.T) {
	cs := CellChanges{
		Eat: []EatPair{{Eater: 3, Eaten: 4}},
		Add: []CellRecord{
			{ID: 3, Kind: KindPlayerCell, X: 100, Y: -40, Size: 90, Color: 0x0000FF, Name: "p\u00e9"},
			{ID: 11, Kind: KindEjectedMass, X: -300, Y: 5, Size: 38, Color: 0x00FF00},
		},
		Update: []CellRecord{{ID: 12, Kind: KindVirus, X: 7, Y: 8, Size: 120, Fields: FieldPosition | FieldSize}},
		Delete: []uint32{20, 21},
	}
	for _, v := range []uint32{4, 5} {
		frames := legacy(t, v).Encode(&Outbox{Cells: &cs})
		got, err := DecodeLegacyCells(v, frames[0])
		if err != nil {
			t.Fatalf("v%d: %v", v, err)
		}
		records := append(append([]CellRecord{}, cs.Add...), cs.Update...)
		if len(got.Add) != len(records) {
			t.Fatalf("v%d: %d records, want %d", v, len(got.Add), len(records))
		}
		for i, r := range got.Add {
			w := records[i]
			if r.ID != w.ID || r.Kind != w.Kind || r.X != w.X || r.Y != w.Y || r.Size != w.Size {
				t.Errorf("v%d record %d: got %+v want %+v", v, i, r, w)
			}
			if r.Color != w.Color || r.Name != w.Name || r.Skin != "" {
				t.Errorf("v%d record %d appearance: %+v", v, i, r)
			}
		}
		if !reflect.DeepEqual(got.Eat, cs.Eat) || !reflect.DeepEqual(got.Delete, cs.Delete) {
			t.Errorf("v%d: eat %v delete %v", v, got.Eat, got.Delete)
		}
	}
}

func TestLegacyFrameOrder(t *testing.T) {
	o := &Outbox{
		Reset:       true,
		Bounds:      &Bounds{Left: -100, Top: -100, Right: 100, Bottom: 100, Gamemode: 0, ServerName: "arena"},
		OwnedCells:  []uint32{1, 2},
		Camera:      &Camera{X: 1, Y: 2, Scale: 0.5},
		Cells:       &CellChanges{},
		Leaderboard: &Leaderboard{Kind: LeaderboardFFA, Entries: []LeaderboardEntry{{Name: "x", Self: true}}},
		Chat:        []ChatMessage{{Server: true, Color: 0x3F3FC0, Name: "SERVER", Text: "hi"}},
		Stats:       &Stats{Mode: "FFA", PlayersTotal: 1},
	}
	frames := legacy(t, 6).Encode(o)
	var tags []byte
	for _, f := range frames {
		tags = append(tags, f[0])
	}
	want := []byte{18, 64, 32, 32, 17, 16, 49, 99, 254}
	if !bytes.Equal(tags, want) {
		t.Fatalf("tags %v, want %v", tags, want)
	}
	if n := len(frames[1]); n != 1+32+4+len("arena")+1 {
		t.Errorf("bounds frame length %d", n)
	}
	if !strings.Contains(string(frames[8]), `"mode":"FFA"`) {
		t.Errorf("stats frame %q", frames[8])
	}
	if frames[7][1] != 0x80 {
		t.Errorf("server chat flag %#x", frames[7][1])
	}

	frames = legacy(t, 5).Encode(&Outbox{Bounds: o.Bounds})
	if n := len(frames[0]); n != 33 {
		t.Errorf("v5 bounds must not carry server info, length %d", n)
	}
}

func TestLegacyLeaderboardGolden(t *testing.T) {
	ffa := &Leaderboard{Kind: LeaderboardFFA, Entries: []LeaderboardEntry{{Name: "x", Self: true}, {Name: "y"}}}
	pie := &Leaderboard{Kind: LeaderboardPie, Slices: []PieSlice{{Weight: 1, Color: 0xFF0000}}}
	text := &Leaderboard{Kind: LeaderboardText, Lines: []string{"a"}}

	tests := []struct {
		name    string
		version uint32
		lb      *Leaderboard
		want    []byte
	}{
		{"ffa v6", 6, ffa, []byte{49, 2, 0, 0, 0, 1, 0, 0, 0, 'x', 0, 0, 0, 0, 0, 'y', 0}},
		{"ffa v4", 4, ffa, []byte{49, 2, 0, 0, 0, 1, 0, 0, 0, 'x', 0, 0, 0, 0, 0, 0, 0, 'y', 0, 0, 0}},
		{"ffa v11", 11, ffa, []byte{53, 2, 0, 0, 0, 0x0A, 'x', 0, 0x02, 'y', 0}},
		{"pie v6", 6, pie, []byte{50, 1, 0, 0, 0, 0, 0, 0x80, 0x3F}},
		{"pie v11", 11, pie, []byte{50, 1, 0, 0, 0, 0, 0, 0x80, 0x3F, 0xFF, 0, 0}},
		{"text v6", 6, text, []byte{48, 1, 0, 0, 0, 'a', 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := legacy(t, tt.version).Encode(&Outbox{Leaderboard: tt.lb})
			if !bytes.Equal(frames[0], tt.want) {
				t.Fatalf("got  % x\nwant % x", frames[0], tt.want)
			}
		})
	}
}
