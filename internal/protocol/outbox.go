package protocol

// Cell kinds as sent on the wire.
const (
	KindPlayerCell uint8 = iota
	KindPellet
	KindVirus
	KindEjectedMass
	KindMothercell
)

// Changed-field bits of a cell update, in wire order.
const (
	FieldPosition uint8 = 1 << iota
	FieldSize
	FieldColor
	FieldSkin
	FieldName
)

// AllFields marks a record that carries every field.
const AllFields = FieldPosition | FieldSize | FieldColor | FieldSkin | FieldName

// CellRecord is the wire view of one cell. Fields is meaningful for
// updates only.
type CellRecord struct {
	ID       uint32
	Kind     uint8
	X, Y     float64
	Size     float64
	Color    uint32
	Skin     string
	Name     string
	Fields   uint8
	Agitated bool
}

// Spiked reports whether the client draws the cell with spikes.
func (c *CellRecord) Spiked() bool { return c.Kind == KindVirus || c.Kind == KindMothercell }

// EatPair records that Eaten disappeared into Eater.
type EatPair struct {
	Eater uint32
	Eaten uint32
}

// CellChanges is one viewer's visible-cell delta for a tick.
type CellChanges struct {
	Eat    []EatPair
	Add    []CellRecord
	Update []CellRecord
	Delete []uint32
}

func (c *CellChanges) Empty() bool {
	return len(c.Eat) == 0 && len(c.Add) == 0 && len(c.Update) == 0 && len(c.Delete) == 0
}

// Bounds is the world rectangle plus optional server info.
type Bounds struct {
	Left, Top, Right, Bottom float64
	Gamemode                 uint32
	ServerName               string
}

// Camera is the spectator camera.
type Camera struct {
	X, Y  float32
	Scale float32
}

type LeaderboardKind uint8

const (
	LeaderboardText LeaderboardKind = iota
	LeaderboardFFA
	LeaderboardPie
)

// LeaderboardEntry is one visible FFA row. Self marks the receiving player.
type LeaderboardEntry struct {
	Name string
	Self bool
}

type PieSlice struct {
	Weight float32
	Color  uint32
}

// Leaderboard is the per-viewer board; only the field matching Kind is used.
type Leaderboard struct {
	Kind    LeaderboardKind
	Lines   []string
	Entries []LeaderboardEntry
	Slices  []PieSlice
}

// ChatMessage is one relayed chat line.
type ChatMessage struct {
	Server bool
	Color  uint32
	Name   string
	Text   string
}

// Stats is the server stats dump.
type Stats struct {
	Mode         string  `json:"mode" msgpack:"mode"`
	Update       float64 `json:"update" msgpack:"update"`
	PlayersTotal int     `json:"playersTotal" msgpack:"playersTotal"`
	PlayersAlive int     `json:"playersAlive" msgpack:"playersAlive"`
	PlayersSpect int     `json:"playersSpect" msgpack:"playersSpect"`
	PlayersLimit int     `json:"playersLimit" msgpack:"playersLimit"`
	Uptime       int64   `json:"uptime" msgpack:"uptime"`
	Name         string  `json:"name" msgpack:"name"`
}

// Outbox collects everything one player should receive for a tick. Nil
// pointers and empty slices are omitted.
type Outbox struct {
	Reset       bool
	Bounds      *Bounds
	OwnedCells  []uint32
	Camera      *Camera
	Cells       *CellChanges
	Leaderboard *Leaderboard
	Chat        []ChatMessage
	Stats       *Stats
}

// Clear empties the outbox for reuse.
func (o *Outbox) Clear() {
	*o = Outbox{
		OwnedCells: o.OwnedCells[:0],
		Chat:       o.Chat[:0],
	}
}
