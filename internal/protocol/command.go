package protocol

// Command is one decoded client action. Commands are staged in the
// connection's mailbox and applied at the next tick.
type Command interface {
	command()
}

// Mouse moves the player's target point.
type Mouse struct{ X, Y float64 }

// Spawn asks to enter the game with the given name.
type Spawn struct{ Name string }

// Spectate asks to watch instead of play.
type Spectate struct{}

// Split asks every owned cell to split Count times.
type Split struct{ Count int }

// Eject asks to eject mass Count times.
type Eject struct{ Count int }

// QKey reports the Q key going down or up.
type QKey struct{ Pressed bool }

// Chat carries one chat line.
type Chat struct{ Text string }

// StatsRequest asks for a server stats dump.
type StatsRequest struct{}

// Ping asks for an immediate pong. It never reaches the mailbox.
type Ping struct{}

func (Mouse) command()        {}
func (Spawn) command()        {}
func (Spectate) command()     {}
func (Split) command()        {}
func (Eject) command()        {}
func (QKey) command()         {}
func (Chat) command()         {}
func (StatsRequest) command() {}
func (Ping) command()         {}
