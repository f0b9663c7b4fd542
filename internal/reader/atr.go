package reader

import (
	"errors"
	"fmt"
)

// cardNames maps the two standard-name bytes found in the PC/SC historical
// bytes to a card type.
var cardNames = map[string]string{
	"00 01": "MIFARE Classic 1K",
	"00 02": "MIFARE Classic 4K",
	"00 03": "MIFARE Ultralight",
	"00 26": "MIFARE Mini",
	"F0 04": "Topaz and Jewel",
	"F0 11": "FeliCa 212K/424K",
}

// UnknownCard is the name reported for cards not in the table.
const UnknownCard = "Unknown"

// ATR is a decoded ISO 7816-3 answer-to-reset.
type ATR struct {
	Raw        []byte
	Historical []byte

	// protocols holds every T=n announced by a TDi byte.
	protocols map[int]bool
	hasTD1    bool
}

// ParseATR decodes the interface and historical bytes of an ATR.
func ParseATR(raw []byte) (ATR, error) {
	if len(raw) < 2 {
		return ATR{}, errors.New("atr too short")
	}

	atr := ATR{Raw: raw, protocols: map[int]bool{}}
	t0 := raw[1]
	k := int(t0 & 0x0F)
	y := t0 >> 4
	pos := 2

	for i := 1; ; i++ {
		for _, bit := range []byte{0x1, 0x2, 0x4} { // TAi, TBi, TCi
			if y&bit != 0 {
				pos++
			}
		}
		if y&0x8 == 0 {
			break
		}
		if pos >= len(raw) {
			return ATR{}, fmt.Errorf("atr truncated at TD%d", i)
		}
		td := raw[pos]
		pos++
		if i == 1 {
			atr.hasTD1 = true
		}
		atr.protocols[int(td&0x0F)] = true
		y = td >> 4
	}

	if pos > len(raw) {
		return ATR{}, errors.New("atr truncated in interface bytes")
	}
	end := pos + k
	if end > len(raw) {
		end = len(raw)
	}
	atr.Historical = raw[pos:end]
	return atr, nil
}

// Supports reports whether protocol T=t is announced. An ATR without TD1
// implies T=0.
func (a ATR) Supports(t int) bool {
	if t == 0 && !a.hasTD1 {
		return true
	}
	return a.protocols[t]
}

// CardName looks up the card type from historical bytes n-6 and n-5.
func (a ATR) CardName() string {
	n := len(a.Historical)
	if n < 6 {
		return UnknownCard
	}
	key := HexString(a.Historical[n-6 : n-4])
	if name, ok := cardNames[key]; ok {
		return name
	}
	return UnknownCard
}
