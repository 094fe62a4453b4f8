package protocol

import (
	"encoding/binary"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
)

func hello(tag byte, version uint32) []byte {
	b := []byte{tag, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(b[1:], version)
	return b
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name    string
		frame   []byte
		family  string
		version uint32
		reason  string
	}{
		{"legacy 6", hello(254, 6), "legacy", 6, ""},
		{"legacy 18", hello(254, 18), "legacy", 18, ""},
		{"legacy coerced", hello(254, 1), "legacy", 4, ""},
		{"legacy too new", hello(254, 19), "", 0, ReasonUnsupportedVersion},
		{"modern", hello(1, 3), "modern", 3, ""},
		{"modern coerced", hello(1, 2), "modern", 3, ""},
		{"modern coerced from 0", hello(1, 0), "modern", 3, ""},
		{"modern too new", hello(1, 4), "", 0, ReasonUnsupportedVersion},
		{"ambiguous", hello(7, 6), "", 0, ReasonAmbiguous},
		{"short", []byte{254, 6, 0}, "", 0, ReasonUnexpectedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Negotiate(tt.frame, zaptest.NewLogger(t))
			if tt.reason != "" {
				var pe *Error
				if !errors.As(err, &pe) || pe.Reason != tt.reason || pe.Code != CloseProtocolError {
					t.Fatalf("want %q, got %v", tt.reason, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Family() != tt.family || c.Version() != tt.version {
				t.Fatalf("got %s %d", c.Family(), c.Version())
			}
		})
	}
}
