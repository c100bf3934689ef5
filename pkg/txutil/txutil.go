package txutil

import (
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

var (
	// ErrMalformedTx ...
	ErrMalformedTx = errors.New("transaction must be a CBOR array with the body as first element")
	// ErrIndefiniteLength ...
	ErrIndefiniteLength = errors.New("indefinite-length CBOR items are not supported")
	// ErrTruncatedTx ...
	ErrTruncatedTx = errors.New("transaction bytes are truncated")
)

// ExtractBody returns the raw CBOR bytes of the transaction body, ie. the
// first element of the top-level transaction array. Both unsigned and signed
// envelopes keep the body as first element, which is what makes signatures
// comparable across them.
func ExtractBody(tx []byte) ([]byte, error) {
	if len(tx) == 0 {
		return nil, ErrMalformedTx
	}
	major := tx[0] >> 5
	if major != 4 {
		return nil, ErrMalformedTx
	}
	numItems, offset, err := readHeader(tx)
	if err != nil {
		return nil, err
	}
	if numItems < 1 {
		return nil, ErrMalformedTx
	}
	end, err := itemLength(tx, offset)
	if err != nil {
		return nil, err
	}
	return tx[offset:end], nil
}

// BodyHash returns the blake2b-256 digest of the transaction body.
func BodyHash(tx []byte) ([32]byte, error) {
	body, err := ExtractBody(tx)
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(body), nil
}

// BodyHashHex is like BodyHash but returns the digest in hex format.
func BodyHashHex(tx []byte) (string, error) {
	hash, err := BodyHash(tx)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(hash[:]), nil
}

// AssembleTx builds a signed envelope out of a transaction body and a single
// vkey witness, ie. a 2-element array [body, {0: [[vkey, signature]]}].
func AssembleTx(body, vkey, signature []byte) ([]byte, error) {
	if len(body) == 0 {
		return nil, ErrMalformedTx
	}
	tx := make([]byte, 0, len(body)+len(vkey)+len(signature)+16)
	tx = append(tx, 0x82)
	tx = append(tx, body...)
	tx = append(tx, 0xa1, 0x00, 0x81, 0x82)
	tx = appendBytestring(tx, vkey)
	tx = appendBytestring(tx, signature)
	return tx, nil
}

func appendBytestring(buf, b []byte) []byte {
	switch {
	case len(b) < 24:
		buf = append(buf, 0x40|byte(len(b)))
	case len(b) < 256:
		buf = append(buf, 0x58, byte(len(b)))
	default:
		buf = append(buf, 0x59, byte(len(b)>>8), byte(len(b)))
	}
	return append(buf, b...)
}

// readHeader decodes the argument of the CBOR item starting at index 0 and
// returns it along with the offset of the first byte past the header.
func readHeader(b []byte) (uint64, int, error) {
	info := b[0] & 0x1f
	switch {
	case info < 24:
		return uint64(info), 1, nil
	case info == 24:
		if len(b) < 2 {
			return 0, 0, ErrTruncatedTx
		}
		return uint64(b[1]), 2, nil
	case info == 25:
		if len(b) < 3 {
			return 0, 0, ErrTruncatedTx
		}
		return uint64(b[1])<<8 | uint64(b[2]), 3, nil
	case info == 26:
		if len(b) < 5 {
			return 0, 0, ErrTruncatedTx
		}
		return uint64(b[1])<<24 | uint64(b[2])<<16 | uint64(b[3])<<8 | uint64(b[4]), 5, nil
	case info == 27:
		if len(b) < 9 {
			return 0, 0, ErrTruncatedTx
		}
		var v uint64
		for i := 1; i <= 8; i++ {
			v = v<<8 | uint64(b[i])
		}
		return v, 9, nil
	case info == 31:
		return 0, 0, ErrIndefiniteLength
	default:
		return 0, 0, fmt.Errorf("reserved CBOR additional info %d", info)
	}
}

// itemLength returns the index of the first byte past the CBOR item starting
// at the given offset.
func itemLength(b []byte, offset int) (int, error) {
	if offset >= len(b) {
		return 0, ErrTruncatedTx
	}
	major := b[offset] >> 5
	arg, hdrLen, err := readHeader(b[offset:])
	if err != nil {
		return 0, err
	}
	next := offset + hdrLen

	switch major {
	case 0, 1, 7: // uint, negative int, simple/float
		return next, nil
	case 2, 3: // byte string, text string
		end := next + int(arg)
		if end > len(b) {
			return 0, ErrTruncatedTx
		}
		return end, nil
	case 4: // array
		for i := uint64(0); i < arg; i++ {
			next, err = itemLength(b, next)
			if err != nil {
				return 0, err
			}
		}
		return next, nil
	case 5: // map
		for i := uint64(0); i < 2*arg; i++ {
			next, err = itemLength(b, next)
			if err != nil {
				return 0, err
			}
		}
		return next, nil
	default: // tag
		return itemLength(b, next)
	}
}
