package reader

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/rollcall/internal/fault"
)

// Unavailable is the driver used when no reader is attached. Every call
// returns a hardware fault.
type Unavailable struct {
	Reason string
}

func (u Unavailable) err() error {
	reason := u.Reason
	if reason == "" {
		reason = "no readers available"
	}
	return fault.Hardware("reader", errors.New(reason))
}

func (u Unavailable) Connect() error { return u.err() }

func (u Unavailable) Transmit([]byte) ([]byte, byte, byte, error) { return nil, 0, 0, u.err() }

func (u Unavailable) ATR() ([]byte, error) { return nil, u.err() }

func (u Unavailable) Name() string { return "" }

// DefaultSimulatedATR is a MIFARE Classic 1K answer-to-reset.
var DefaultSimulatedATR = []byte{
	0x3B, 0x8F, 0x80, 0x01, 0x80, 0x4F, 0x0C, 0xA0, 0x00, 0x00,
	0x03, 0x06, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x6A,
}

// Simulated is an in-process reader. Cards are placed and removed by
// calling Place and Remove; it is safe for concurrent use.
type Simulated struct {
	mu    sync.Mutex
	name  string
	uid   []byte
	atr   []byte
	fault error
}

// NewSimulated returns an empty simulated reader.
func NewSimulated(name string) *Simulated {
	if name == "" {
		name = "Simulated PC/SC Reader 00 00"
	}
	return &Simulated{name: name}
}

// Place puts a card with the given hex UID on the reader. A nil atr uses
// DefaultSimulatedATR.
func (s *Simulated) Place(uid string, atr []byte) error {
	raw, err := ParseHex(uid)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return fault.Validation("reader.place", "uid is required")
	}
	if atr == nil {
		atr = DefaultSimulatedATR
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.uid = raw
	s.atr = bytes.Clone(atr)
	return nil
}

// Remove takes the card off the reader.
func (s *Simulated) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uid = nil
	s.atr = nil
}

// SetFault makes every call fail with err until cleared with nil.
func (s *Simulated) SetFault(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = err
}

func (s *Simulated) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return s.fault
	}
	if s.uid == nil {
		return ErrNoCard
	}
	return nil
}

func (s *Simulated) Transmit(apdu []byte) ([]byte, byte, byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return nil, 0, 0, s.fault
	}
	if s.uid == nil {
		return nil, 0, 0, ErrNoCard
	}
	if bytes.Equal(apdu, getUIDCommand) {
		return bytes.Clone(s.uid), 0x90, 0x00, nil
	}
	return nil, 0x6D, 0x00, nil // instruction not supported
}

func (s *Simulated) ATR() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return nil, s.fault
	}
	if s.uid == nil {
		return nil, ErrNoCard
	}
	return bytes.Clone(s.atr), nil
}

func (s *Simulated) Name() string { return s.name }

// ParseHex decodes "04 A1 B2 C3", "04:a1:b2:c3" or "04A1B2C3".
func ParseHex(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "-", "").Replace(strings.TrimSpace(s))
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fault.Validation("reader.parse_hex", fmt.Sprintf("invalid hex %q", s))
	}
	return b, nil
}
