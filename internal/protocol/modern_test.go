package protocol

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/cellarena/server/internal/net/packet"
	"go.uber.org/zap/zaptest"
)

func TestModernInput(t *testing.T) {
	c := newModernCodec(zaptest.NewLogger(t))
	w := packet.NewWriterWithTag(mInput)
	w.WriteI32(-5)
	w.WriteI32(6)
	w.WriteU8(mInSpawn | mInQPress | mInSplit | mInChat | mInStats)
	w.WriteZTUTF8("neo")
	w.WriteU8(3)
	w.WriteZTUTF8("gg")

	got := decodeAll(t, c, w.Bytes(), []byte{mPing})
	want := []Command{
		Mouse{X: -5, Y: 6}, Spawn{Name: "neo"}, QKey{Pressed: true},
		Split{Count: 3}, Chat{Text: "gg"}, StatsRequest{}, Ping{},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v", got)
	}
	if !bytes.Equal(c.Pong(), []byte{2}) {
		t.Errorf("pong % x", c.Pong())
	}

	short := packet.NewWriterWithTag(mInput)
	short.WriteI32(1)
	short.WriteI32(1)
	short.WriteU8(mInEject)
	out, err := c.Decode(short.Bytes(), nil)
	wantReason(t, err, ReasonUnexpectedFormat)
	if len(out) != 0 {
		t.Errorf("a truncated input must not stage commands: %v", out)
	}
	_, err = c.Decode([]byte{9}, nil)
	wantReason(t, err, ReasonUnknownType)
}

func TestModernGolden(t *testing.T) {
	c := newModernCodec(zaptest.NewLogger(t))
	frames := c.Encode(&Outbox{Reset: true, OwnedCells: []uint32{3}, Cells: &CellChanges{Delete: []uint32{4}}})
	want := []byte{
		3, 0x64, 0,
		1, 0, 3, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 1, 0, 4, 0, 0, 0,
	}
	if len(frames) != 1 || !bytes.Equal(frames[0], want) {
		t.Fatalf("got % x\nwant % x", frames, want)
	}

	if f := c.Encode(&Outbox{Cells: &CellChanges{}}); f != nil {
		t.Errorf("a tick with no sections must produce no frame, got % x", f)
	}
}

func TestModernRoundTrip(t *testing.T) {
	in := &Outbox{
		Reset:  true,
		Camera: &Camera{X: 10, Y: -20, Scale: 0.75},
		Bounds: &Bounds{Left: -7071, Top: -7071, Right: 7071, Bottom: 7071},
		Leaderboard: &Leaderboard{Kind: LeaderboardFFA, Entries: []LeaderboardEntry{
			{Name: "top", Self: false}, {Name: "me", Self: true},
		}},
		Chat:       []ChatMessage{{Color: 0xABCDEF, Name: "a", Text: "hello"}},
		OwnedCells: []uint32{41, 42},
		Cells: &CellChanges{
			Eat: []EatPair{{Eater: 41, Eaten: 77}},
			Add: []CellRecord{{ID: 42, Kind: KindPlayerCell, X: 3, Y: 4, Size: 60, Color: 0x102030, Skin: "s", Name: "me", Fields: AllFields}},
			Update: []CellRecord{
				{ID: 41, X: 9, Y: 9, Size: 90, Fields: FieldPosition | FieldSize},
				{ID: 50, Color: 0x010203, Name: "renamed", Fields: FieldColor | FieldName},
			},
			Delete: []uint32{99},
		},
		Stats: &Stats{Mode: "Teams", Update: 1.5, PlayersTotal: 3, PlayersAlive: 2, PlayersSpect: 1, PlayersLimit: 50, Uptime: 12, Name: "arena"},
	}
	frames := newModernCodec(zaptest.NewLogger(t)).Encode(in)
	if len(frames) != 1 {
		t.Fatalf("got %d frames", len(frames))
	}
	got, err := DecodeModernFrame(frames[0])
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("round trip mismatch\ngot  %+v\nwant %+v", got, in)
	}
}
