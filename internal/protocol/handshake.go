package protocol

import (
	"encoding/binary"

	"go.uber.org/zap"
)

const (
	legacyHandshakeTag = 254
	modernHandshakeTag = 1

	LegacyMinVersion = 4
	LegacyMaxVersion = 18
	ModernVersion    = 3
)

// Codec translates between wire frames and commands / outboxes for one
// negotiated protocol. A codec belongs to a single connection.
type Codec interface {
	// Family is "legacy" or "modern".
	Family() string
	Version() uint32
	// Decode appends the commands carried by frame to out.
	Decode(frame []byte, out []Command) ([]Command, error)
	// Encode renders one tick of output as zero or more frames.
	Encode(o *Outbox) [][]byte
	// Pong is the immediate reply to a Ping, or nil when the family has none.
	Pong() []byte
}

// Negotiate inspects the first frame of a connection and picks the codec.
func Negotiate(frame []byte, log *zap.Logger) (Codec, error) {
	if len(frame) < 5 {
		return nil, violation(ReasonUnexpectedFormat)
	}
	version := binary.LittleEndian.Uint32(frame[1:5])
	switch frame[0] {
	case legacyHandshakeTag:
		if version > LegacyMaxVersion {
			return nil, violation(ReasonUnsupportedVersion)
		}
		if version < LegacyMinVersion {
			log.Debug("legacy protocol version coerced",
				zap.Uint32("requested", version),
				zap.Uint32("using", LegacyMinVersion),
			)
			version = LegacyMinVersion
		}
		return newLegacyCodec(version, log), nil
	case modernHandshakeTag:
		if version > ModernVersion {
			return nil, violation(ReasonUnsupportedVersion)
		}
		if version < ModernVersion {
			log.Debug("modern protocol version coerced",
				zap.Uint32("requested", version),
				zap.Uint32("using", ModernVersion),
			)
		}
		return newModernCodec(log), nil
	}
	return nil, violation(ReasonAmbiguous)
}
