package modes

// decodeSquawk converts a 13-bit Mode A identity field into a 4-digit
// squawk code. The field's bits are not four contiguous 3-bit groups:
// they're interleaved as C1-A1-C2-A2-C4-A4-X-B1-D1-B2-D2-B4-D4 (message
// bits 20-32; bit 26 is spare), so each of the four octal digits A/B/C/D
// is assembled from three bits scattered across the field -- the same
// Gillham interleaving the mode_s decoder's squawk table documents.
func decodeSquawk(identity uint16) int {
	a := ((identity & 0x0080) >> 5) | ((identity & 0x0200) >> 8) | ((identity & 0x0800) >> 11)
	b := ((identity & 0x0002) << 1) | ((identity & 0x0008) >> 2) | ((identity & 0x0020) >> 5)
	c := ((identity & 0x0100) >> 6) | ((identity & 0x0400) >> 9) | ((identity & 0x1000) >> 12)
	d := ((identity & 0x0001) << 2) | ((identity & 0x0004) >> 1) | ((identity & 0x0010) >> 4)

	return int(a)*1000 + int(b)*100 + int(c)*10 + int(d)
}
