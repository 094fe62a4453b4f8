package event

// PlayerSpawned fires when a player gets its first cell.
type PlayerSpawned struct {
	PlayerID uint32
	Name     string
	Tick     uint64
}

// PlayerDied fires when a playing player loses its last cell.
type PlayerDied struct {
	PlayerID  uint32
	Name      string
	Skin      string
	MaxMass   float64
	SpawnTick uint64
	DeathTick uint64
}

// PlayerLeft fires when a player is destroyed after disconnecting.
type PlayerLeft struct {
	PlayerID   uint32
	SessionID  uint64
	Name       string
	WasPlaying bool
	Score      float64
	Tick       uint64
}
