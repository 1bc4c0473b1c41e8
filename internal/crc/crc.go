// Package crc implements the Mode S CRC-24 validator and single-bit
// corrector (§4.5), plus the address whitelist that gates correction on
// the surveillance formats whose CRC is overlaid with the aircraft
// address regardless of frame length.
package crc

import (
	"time"

	cache "github.com/patrickmn/go-cache"
)

// GeneratorPoly is the fixed Mode S CRC-24 generator polynomial (§4.5).
const GeneratorPoly = 0xFFFA04

// WhitelistTTL is how long an ICAO address recognized via DF11/17/18
// stays eligible for short-frame single-bit correction (§9 open
// question; recommended value).
const WhitelistTTL = 60 * time.Second

var table [256]uint32

func init() {
	for i := 0; i < 256; i++ {
		c := uint32(i) << 16
		for b := 0; b < 8; b++ {
			if c&0x800000 != 0 {
				c = (c << 1) ^ GeneratorPoly
			} else {
				c <<= 1
			}
		}
		table[i] = c & 0xffffff
	}
}

// checksumOverMessage computes the 24-bit Mode S CRC remainder over
// every byte of msg. Encode runs it over the data bits alone to produce
// the checksum; Syndrome runs it over the whole frame, checksum included.
func checksumOverMessage(msg []byte) uint32 {
	var rem uint32
	n := len(msg)
	for i := 0; i < n; i++ {
		rem = (rem << 8) ^ table[byte(msg[i])^byte(rem>>16)]
		rem &= 0xffffff
	}
	return rem
}

// Syndrome computes the CRC syndrome of a full frame (data bits plus
// the trailing 24 checksum bits). A syndrome of zero means the frame is
// valid as received (§3 CRC invariant).
func Syndrome(frame []byte) uint32 {
	return checksumOverMessage(frame)
}

// Encode computes the 24-bit checksum to append after data so that a
// frame built as append(data, encodedBytes...) has Syndrome == 0. Used
// by tests as the reference encoder for the CRC round-trip property.
func Encode(data []byte) uint32 {
	return checksumOverMessage(data)
}

// singleBitSyndrome112/56 hold, for each bit position, the syndrome
// produced by flipping only that bit in an all-zero frame of the
// matching length. The CRC convolution folds in every byte of the
// message, so the syndrome contributed by flipping bit i depends on how
// many bytes follow it: a table built over 14-byte frames does not
// apply to 7-byte frames, so short and long frames each need their own
// table (dump1090 instead recomputes the checksum per candidate bit at
// the frame's actual length; precomputing both tables once at startup
// is equivalent and cheaper per decode).
var singleBitSyndrome112 [112]uint32
var singleBitSyndrome56 [56]uint32

func init() {
	for bit := 0; bit < 112; bit++ {
		var msg [14]byte
		msg[bit/8] = 1 << uint(7-bit%8)
		singleBitSyndrome112[bit] = checksumOverMessage(msg[:])
	}
	for bit := 0; bit < 56; bit++ {
		var msg [7]byte
		msg[bit/8] = 1 << uint(7-bit%8)
		singleBitSyndrome56[bit] = checksumOverMessage(msg[:])
	}
}

// singleBitSyndrome returns the syndrome table matching a frame of the
// given bit length (56 or 112).
func singleBitSyndrome(bits int) []uint32 {
	if bits == 56 {
		return singleBitSyndrome56[:]
	}
	return singleBitSyndrome112[:]
}

// Result is the outcome of validating one frame (§3 Validated frame).
type Result struct {
	Valid     bool
	Corrected bool
	BitIndex  int // valid only if Corrected
	Bad       bool
}

// overlayDF reports whether df is one of the surveillance formats whose
// CRC field is tied to the aircraft address rather than carrying a
// clean checksum (§4.5, §9): DF0/4/5/16/20/21 overlay the full AP field
// with the address, and DF11's PI field overlays it with the (usually
// zero) interrogator code, so recovering an address from any of them
// needs the whitelist gate regardless of whether the frame is the
// 56-bit or 112-bit length.
func overlayDF(df int) bool {
	switch df {
	case 0, 4, 5, 11, 16, 20, 21:
		return true
	default:
		return false
	}
}

// Whitelist tracks ICAO addresses recently confirmed via DF11/17/18, the
// precondition §4.5 imposes before a short frame's CRC-overlaid address
// can be trusted for single-bit correction.
type Whitelist struct {
	cache *cache.Cache
}

// NewWhitelist creates a Whitelist with the standard TTL and a cleanup
// sweep at the same interval.
func NewWhitelist() *Whitelist {
	return &Whitelist{cache: cache.New(WhitelistTTL, WhitelistTTL)}
}

// Add records icao as recently seen via a trusted downlink format.
func (w *Whitelist) Add(icao uint32) {
	w.cache.Set(icaoKey(icao), struct{}{}, cache.DefaultExpiration)
}

// Contains reports whether icao was added within the TTL window.
func (w *Whitelist) Contains(icao uint32) bool {
	_, ok := w.cache.Get(icaoKey(icao))
	return ok
}

func icaoKey(icao uint32) string {
	const hex = "0123456789ABCDEF"
	b := [6]byte{}
	for i := 5; i >= 0; i-- {
		b[i] = hex[icao&0xf]
		icao >>= 4
	}
	return string(b[:])
}

// Validator validates and, where allowed, corrects Mode S frames.
type Validator struct {
	Whitelist *Whitelist
}

// NewValidator creates a Validator backed by its own address whitelist.
func NewValidator() *Validator {
	return &Validator{Whitelist: NewWhitelist()}
}

// Validate runs the CRC validator/corrector of §4.5 against frame,
// whose length (56 or 112 bits) is already resolved by the caller via
// the DF field. preferredBit is the single low-confidence bit index
// flagged by the demodulator, or -1 if none was recorded.
func (v *Validator) Validate(frame []byte, preferredBit int) Result {
	bits := len(frame) * 8
	df := int(frame[0] >> 3)
	syn := Syndrome(frame)

	if syn == 0 {
		if df == 11 || df == 17 || df == 18 {
			v.Whitelist.Add(icaoFromADSB(frame))
		}
		return Result{Valid: true}
	}

	if overlayDF(df) {
		// A single-bit error inside the DF field can turn a clean-CRC
		// format into an overlay one; correct that case first.
		table := singleBitSyndrome(bits)
		for bit := 0; bit < 5; bit++ {
			if table[bit] == syn && !overlayDF(df^(1<<uint(4-bit))) {
				r := flip(frame, bit)
				if d := int(frame[0] >> 3); d == 17 || d == 18 {
					v.Whitelist.Add(icaoFromADSB(frame))
				}
				return r
			}
		}
		return v.validateOverlay(frame, df, bits, preferredBit)
	}

	// DF17/18, and any other clean-CRC format, carry the checksum over
	// the whole message with no address overlay: any matching
	// single-bit syndrome is trustworthy on its own.
	table := singleBitSyndrome(bits)
	if preferredBit >= 0 && preferredBit < bits && table[preferredBit] == syn {
		r := flip(frame, preferredBit)
		if df == 17 || df == 18 {
			v.Whitelist.Add(icaoFromADSB(frame))
		}
		return r
	}
	for bit := 0; bit < bits; bit++ {
		if table[bit] == syn {
			r := flip(frame, bit)
			if df == 17 || df == 18 {
				v.Whitelist.Add(icaoFromADSB(frame))
			}
			return r
		}
	}
	return Result{Bad: true}
}

// validateOverlay handles the address-overlay formats (§4.5, §9), where
// a nonzero whole-frame syndrome is the norm even for an error-free
// reply: the transmitted AP/PI field is the data checksum XORed with
// the aircraft address, so the single-bit delta tables (built for a
// zero-syndrome target) don't apply here. Instead, each candidate frame
// — first as received, then with each bit in turn flipped — is checked
// by recovering its candidate address and confirming that address is
// already whitelisted from a trusted DF11/17/18 reply.
func (v *Validator) validateOverlay(frame []byte, df, bits, preferredBit int) Result {
	if v.Whitelist.Contains(candidateICAO(frame, df)) {
		return Result{Valid: true}
	}

	if preferredBit >= 0 && preferredBit < bits {
		if r, ok := v.tryOverlayBit(frame, df, preferredBit); ok {
			return r
		}
	}
	for bit := 0; bit < bits; bit++ {
		if r, ok := v.tryOverlayBit(frame, df, bit); ok {
			return r
		}
	}
	return Result{Bad: true}
}

// tryOverlayBit flips bit, checks whether the resulting candidate
// address is whitelisted, and leaves the flip in place only on success.
func (v *Validator) tryOverlayBit(frame []byte, df, bit int) (Result, bool) {
	frame[bit/8] ^= 1 << uint(7-bit%8)
	if v.Whitelist.Contains(candidateICAO(frame, df)) {
		return Result{Valid: true, Corrected: true, BitIndex: bit}, true
	}
	frame[bit/8] ^= 1 << uint(7-bit%8)
	return Result{}, false
}

func flip(frame []byte, bit int) Result {
	frame[bit/8] ^= 1 << uint(7-bit%8)
	return Result{Valid: true, Corrected: true, BitIndex: bit}
}

// icaoFromADSB extracts the ICAO-24 address from a DF11/17/18 frame,
// where it sits unencoded in bytes 1-3.
func icaoFromADSB(frame []byte) uint32 {
	return uint32(frame[1])<<16 | uint32(frame[2])<<8 | uint32(frame[3])
}

// candidateICAO returns the address frame would carry if it has zero
// bit errors. DF11's address sits unencoded in the AA field (bytes
// 1-3), the PI field overlay only covering the interrogator code. The
// other overlay formats have no unencoded address field at all: their
// AP field was built by the transmitter as RecoverOverlayICAO's
// inverse (AP = Encode(data) XOR address), so XOR-ing the received AP
// back against a freshly computed Encode(data) recovers the address
// exactly — the whole-frame Syndrome alone cannot, since it folds the
// address through the CRC convolution rather than leaving it isolated.
func candidateICAO(frame []byte, df int) uint32 {
	if df == 11 {
		return icaoFromADSB(frame)
	}
	return RecoverOverlayICAO(frame)
}

// RecoverOverlayICAO recovers the aircraft address XORed into the AP
// field of a DF0/4/5/16/20/21 frame (§4.5), valid once the frame is
// known to have zero bit errors (Validate has already confirmed or
// corrected it).
func RecoverOverlayICAO(frame []byte) uint32 {
	n := len(frame)
	ap := uint32(frame[n-3])<<16 | uint32(frame[n-2])<<8 | uint32(frame[n-1])
	return ap ^ Encode(frame[:n-3])
}
