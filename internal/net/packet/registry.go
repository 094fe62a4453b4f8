package packet

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrUnknownTag is returned for a tag no handler is registered for.
	ErrUnknownTag = errors.New("packet: unknown message type")
	// ErrNotAllowed is returned for a known tag arriving in a state that does
	// not accept it.
	ErrNotAllowed = errors.New("packet: message not allowed in this state")
)

// State is the decode phase of one connection.
type State int

const (
	StateHandshake State = iota // awaiting the protocol version
	StateAwaitKey               // legacy: version accepted, awaiting the key frame
	StateReady                  // accepting commands
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "Handshake"
	case StateAwaitKey:
		return "AwaitKey"
	case StateReady:
		return "Ready"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc decodes one frame. ctx is the decoder that owns the registry.
type HandlerFunc func(ctx any, r *Reader) error

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[State]bool
}

// Registry maps message tags to handlers with state-based access control.
type Registry struct {
	handlers map[byte]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[byte]*handlerEntry),
		log:      log,
	}
}

// Register maps a tag to a handler, restricted to the given states.
func (reg *Registry) Register(tag byte, states []State, fn HandlerFunc) {
	allowed := make(map[State]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[tag] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Dispatch finds the handler for the tag in data[0], validates the state and
// calls the handler. A handler that reads past the end of the frame yields
// ErrShortFrame.
func (reg *Registry) Dispatch(ctx any, state State, data []byte) error {
	if len(data) == 0 {
		return ErrShortFrame
	}
	tag := data[0]
	entry, ok := reg.handlers[tag]
	if !ok {
		reg.log.Debug("unknown message tag", zap.Uint8("tag", tag), zap.Stringer("state", state))
		return fmt.Errorf("tag %d: %w", tag, ErrUnknownTag)
	}
	if !entry.allowedStates[state] {
		return fmt.Errorf("tag %d in state %s: %w", tag, state, ErrNotAllowed)
	}

	r := NewReader(data)
	if err := reg.safeCall(entry.fn, ctx, r, tag); err != nil {
		return err
	}
	return r.Err()
}

// safeCall executes a handler with panic recovery so a single bad frame
// cannot take down its connection's read loop.
func (reg *Registry) safeCall(fn HandlerFunc, ctx any, r *Reader, tag byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("decode handler panic recovered",
				zap.Uint8("tag", tag),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for tag %d: %v", tag, rec)
		}
	}()
	return fn(ctx, r)
}
