package utils

import (
	"encoding/hex"
)

// HexBinary is a []byte that marshals to/from lowercase hex text.
// It is used by json test vectors.
type HexBinary []byte

// UnmarshalText implements encoding.TextUnmarshaler, reusing self capacity when possible.
func (self *HexBinary) UnmarshalText(text []byte) error {
	var dst []byte
	hxsz := hex.DecodedLen(len(text))
	if cap([]byte(*self)) >= hxsz {
		dst = []byte(*self)[:0]
	} else {
		dst = make([]byte, 0, hxsz)
	}

	dst, err := hex.AppendDecode(dst, text)
	if nil != err {
		return err
	}

	*self = HexBinary(dst)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (self HexBinary) MarshalText() ([]byte, error) {
	return hex.AppendEncode(nil, []byte(self)), nil
}
