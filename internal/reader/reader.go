// Package reader is the hardware boundary for a PC/SC proximity-card reader.
//
// A Driver speaks raw APDUs; Reader turns those exchanges into the three
// questions the detector asks: is a card present, what is its UID, and what
// kind of card is it.
package reader

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/rollcall/internal/fault"
)

// ErrNoCard is returned by drivers when no card is in the field.
var ErrNoCard = errors.New("no card present")

// getUIDCommand is the PC/SC pseudo-APDU for reading the card UID.
var getUIDCommand = []byte{0xFF, 0xCA, 0x00, 0x00, 0x00}

// Driver is the low-level transport. Implementations need not be safe for
// concurrent use; Reader serializes every exchange.
type Driver interface {
	// Connect opens a fresh connection to the card in the field.
	Connect() error

	// Transmit sends an APDU and returns the response data and status word.
	Transmit(apdu []byte) (data []byte, sw1, sw2 byte, err error)

	// ATR returns the answer-to-reset of the connected card.
	ATR() ([]byte, error)

	// Name is the reader's display name, empty if no reader is attached.
	Name() string
}

// TransportResult is the outcome of one APDU exchange.
type TransportResult struct {
	Data     []byte
	StatusOK bool
}

// CardInfo describes the card on the reader.
type CardInfo struct {
	CardName     string `json:"cardName"`
	T0Supported  bool   `json:"t0Supported"`
	T1Supported  bool   `json:"t1Supported"`
	T15Supported bool   `json:"t15Supported"`
	ATR          string `json:"atr"`
}

// Reader answers presence, UID, and card-type questions over a Driver.
//
// Thread-safety: safe for concurrent use. The detector loop and status
// probes share one driver, so each question holds mu for its whole
// connect-and-exchange sequence.
type Reader struct {
	mu     sync.Mutex
	driver Driver
}

// New wraps a driver.
func New(d Driver) *Reader {
	return &Reader{driver: d}
}

// Name returns the driver's reader name.
func (r *Reader) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.driver.Name()
}

// Connected reports whether a reader is attached.
func (r *Reader) Connected() bool {
	return r.Name() != ""
}

// transmit connects afresh and exchanges one APDU.
func (r *Reader) transmit(apdu []byte) (TransportResult, error) {
	if err := r.driver.Connect(); err != nil {
		return TransportResult{}, err
	}
	data, sw1, sw2, err := r.driver.Transmit(apdu)
	if err != nil {
		return TransportResult{}, err
	}
	return TransportResult{Data: data, StatusOK: sw1 == 0x90 && sw2 == 0x00}, nil
}

// CheckPresent reports whether a card answers the get-UID command. An empty
// field is (false, nil); transport faults are (false, err).
func (r *Reader) CheckPresent() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := r.transmit(getUIDCommand)
	if errors.Is(err, ErrNoCard) {
		return false, nil
	}
	if err != nil {
		return false, fault.Hardware("reader.check_present", err)
	}
	return res.StatusOK, nil
}

// ReadUID reads the card UID as upper-case hex bytes separated by spaces.
func (r *Reader) ReadUID() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := r.transmit(getUIDCommand)
	if err != nil {
		if errors.Is(err, ErrNoCard) {
			return "", err
		}
		return "", fault.Hardware("reader.read_uid", err)
	}
	if !res.StatusOK {
		return "", errors.New("get uid: card returned error status")
	}
	if len(res.Data) == 0 {
		return "", errors.New("get uid: empty response")
	}
	return HexString(res.Data), nil
}

// ReadInfo reads and decodes the card's ATR.
func (r *Reader) ReadInfo() (CardInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.driver.Connect(); err != nil {
		return CardInfo{}, fmt.Errorf("read info: %w", err)
	}
	raw, err := r.driver.ATR()
	if err != nil {
		return CardInfo{}, fmt.Errorf("read info: %w", err)
	}
	atr, err := ParseATR(raw)
	if err != nil {
		return CardInfo{}, fmt.Errorf("read info: %w", err)
	}
	return CardInfo{
		CardName:     atr.CardName(),
		T0Supported:  atr.Supports(0),
		T1Supported:  atr.Supports(1),
		T15Supported: atr.Supports(15),
		ATR:          HexString(raw),
	}, nil
}

// HexString renders bytes as "04 A1 B2 C3".
func HexString(b []byte) string {
	var sb strings.Builder
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", c)
	}
	return sb.String()
}
