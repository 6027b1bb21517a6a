package tlv

import "fmt"

// Neighbor report fixed-prefix layout, bit-exact (802.11k Neighbor Report
// element plus a private preference subelement carried in the subelement
// list):
//
//	bytes 0..5   BSSID
//	bytes 6..9   BSSID-info
//	byte  10     operating class
//	byte  11     channel
//	byte  12     PHY type
//	bytes 13..   TLV subelement list (see element.go)
const (
	// NRPrefixLen is the size of the fixed neighbor-report prefix before the
	// subelement list begins.
	NRPrefixLen = 13

	nrOffBSSID     = 0
	nrOffBSSIDInfo = 6
	nrOffOpClass   = 10
	nrOffChannel   = 11
	nrOffPHYType   = 12

	// PreferenceSubelement is the subelement tag carrying the 1-byte
	// candidate preference value (0..255) used by RRM neighbor-report
	// replies to rank APs for a requesting STA.
	PreferenceSubelement byte = 3
)

// subelements returns the subelement-list portion of buf, or an error if buf
// is shorter than the fixed prefix.
func subelements(buf []byte) ([]byte, error) {
	if len(buf) < NRPrefixLen {
		return nil, fmt.Errorf("%w: neighbor report shorter than %d-byte prefix", ErrBufferTooSmall, NRPrefixLen)
	}
	return buf[NRPrefixLen:], nil
}

// NRLen returns the total length of the neighbor report in buf: the fixed
// prefix plus the length of its subelement list. Returns an error if the
// subelement list is malformed.
func NRLen(buf []byte) (int, error) {
	sub, err := subelements(buf)
	if err != nil {
		return 0, err
	}
	n, err := ListLen(sub)
	if err != nil {
		return 0, err
	}
	return NRPrefixLen + n, nil
}

// NRValid reports whether buf holds a structurally valid neighbor report.
func NRValid(buf []byte) bool {
	n, err := NRLen(buf)
	return err == nil && n >= NRPrefixLen
}

// NRSetSubelement upserts a subelement into the neighbor report's subelement
// list, leaving the fixed prefix untouched.
func NRSetSubelement(buf []byte, tag byte, data []byte) error {
	sub, err := subelements(buf)
	if err != nil {
		return err
	}
	return SetElement(sub, tag, data)
}

// NRGetSubelement returns a copy of the named subelement's value.
func NRGetSubelement(buf []byte, tag byte) ([]byte, error) {
	sub, err := subelements(buf)
	if err != nil {
		return nil, err
	}
	return GetElement(sub, tag)
}

// NRBSSID returns the 6-byte BSSID prefix field.
func NRBSSID(buf []byte) ([6]byte, error) {
	var bssid [6]byte
	if len(buf) < NRPrefixLen {
		return bssid, fmt.Errorf("%w: neighbor report shorter than %d-byte prefix", ErrBufferTooSmall, NRPrefixLen)
	}
	copy(bssid[:], buf[nrOffBSSID:nrOffBSSID+6])
	return bssid, nil
}

// NROpClass returns the operating-class prefix byte.
func NROpClass(buf []byte) (byte, error) {
	if len(buf) < NRPrefixLen {
		return 0, fmt.Errorf("%w: neighbor report shorter than %d-byte prefix", ErrBufferTooSmall, NRPrefixLen)
	}
	return buf[nrOffOpClass], nil
}

// NRChannel returns the channel-number prefix byte.
func NRChannel(buf []byte) (byte, error) {
	if len(buf) < NRPrefixLen {
		return 0, fmt.Errorf("%w: neighbor report shorter than %d-byte prefix", ErrBufferTooSmall, NRPrefixLen)
	}
	return buf[nrOffChannel], nil
}

// BuildPrefix writes the fixed 13-byte prefix fields into buf[:13]. buf must
// be at least NRPrefixLen bytes; the subelement list (if any) past byte 13 is
// left untouched.
func BuildPrefix(buf []byte, bssid [6]byte, bssidInfo [4]byte, opClass, channel, phyType byte) error {
	if len(buf) < NRPrefixLen {
		return fmt.Errorf("%w: need at least %d bytes for prefix", ErrBufferTooSmall, NRPrefixLen)
	}
	copy(buf[nrOffBSSID:], bssid[:])
	copy(buf[nrOffBSSIDInfo:], bssidInfo[:])
	buf[nrOffOpClass] = opClass
	buf[nrOffChannel] = channel
	buf[nrOffPHYType] = phyType
	return nil
}
