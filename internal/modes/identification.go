package modes

import "strings"

// charset is the 6-bit ADS-B callsign character table (§4.6 TC 1-4).
const charset = "@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_ !\"#$%&'()*+,-./0123456789:;<=>?"

// decodeIdentification decodes an 8-character callsign and emitter
// category from a TC 1-4 ME field.
func decodeIdentification(me []byte, tc int) Payload {
	var cs [8]byte
	cs[0] = charset[getBits(me, 9, 14)]
	cs[1] = charset[getBits(me, 15, 20)]
	cs[2] = charset[getBits(me, 21, 26)]
	cs[3] = charset[getBits(me, 27, 32)]
	cs[4] = charset[getBits(me, 33, 38)]
	cs[5] = charset[getBits(me, 39, 44)]
	cs[6] = charset[getBits(me, 45, 50)]
	cs[7] = charset[getBits(me, 51, 56)]

	callsign := strings.TrimRight(string(cs[:]), " ")
	category := Category(getBits(me, 6, 8)) | Category(tc)<<3

	return Payload{
		Kind:     PayloadIdentification,
		Callsign: callsign,
		Category: category,
	}
}
