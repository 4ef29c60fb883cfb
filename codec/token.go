package codec

import (
	"errors"
	"fmt"
	"math"
)

// Quantized correlation values and their token encoding.
//
// A correlation r in [-1, 1] is stored as round(r * Scale) in an int16.
// Undefined correlations use the reserved value Undefined. Tokens are:
//
//	NaN,      undefined
//	1.0000,   exactly 1
//	.dddd,    0 <= r < 1, no leading zero
//	-.dddd,   -1 < r < 0
//	-1.0000,  exactly -1
//
// The last token of a row carries no trailing comma.
const (
	// Scale is the quantization factor: four decimal digits.
	Scale = 10000

	// Undefined marks a correlation that could not be computed.
	Undefined int16 = math.MaxInt16

	// MaxTokenLen is the longest token including its separator ("-1.0000,").
	MaxTokenLen = 8
)

// ErrMalformed is returned for input that does not follow the token grammar.
var ErrMalformed = errors.New("malformed correlation token")

// MalformedTokenError describes where decoding failed.
type MalformedTokenError struct {
	Column int
	Offset int
	Reason string
}

func (e *MalformedTokenError) Error() string {
	return fmt.Sprintf("malformed correlation token at column %d (byte %d): %s", e.Column, e.Offset, e.Reason)
}

func (e *MalformedTokenError) Unwrap() error { return ErrMalformed }

// Quantize rounds r to four decimals. If ok is false or r is not finite,
// it returns Undefined. r is clamped to [-1, 1].
func Quantize(r float64, ok bool) int16 {
	if !ok || math.IsNaN(r) || math.IsInf(r, 0) {
		return Undefined
	}
	r = max(-1, min(1, r))
	return int16(math.Round(r * Scale))
}

// Dequantize converts q back to a correlation. ok is false for Undefined.
func Dequantize(q int16) (r float64, ok bool) {
	if q == Undefined {
		return 0, false
	}
	return float64(q) / Scale, true
}

// Valid reports whether q is Undefined or within [-Scale, Scale].
func Valid(q int16) bool {
	return q == Undefined || (q >= -Scale && q <= Scale)
}

// AppendToken appends the token for q, including its trailing comma.
// It panics if q is not Valid; quantized values never are.
func AppendToken(dst []byte, q int16) []byte {
	if q == Undefined {
		return append(dst, 'N', 'a', 'N', ',')
	}
	if !Valid(q) {
		panic(fmt.Sprintf("codec: quantized value %d out of range", q))
	}

	if q < 0 {
		dst = append(dst, '-')
		q = -q
	}
	if q == Scale {
		return append(dst, '1', '.', '0', '0', '0', '0', ',')
	}
	return append(dst, '.',
		byte('0'+q/1000),
		byte('0'+q/100%10),
		byte('0'+q/10%10),
		byte('0'+q%10),
		',')
}

// AppendRow appends one complete row: every token of qs, with the final
// comma replaced by a newline.
func AppendRow(dst []byte, qs []int16) []byte {
	if len(qs) == 0 {
		return append(dst, '\n')
	}
	for _, q := range qs {
		dst = AppendToken(dst, q)
	}
	dst[len(dst)-1] = '\n'
	return dst
}

// DecodeRow walks one row (without its line terminator) and calls fn for
// every token in column order, undefined columns included. It returns the
// number of columns decoded.
//
// Decoding dispatches on the first byte of each token and consumes a fixed
// width; anything else is rejected with a *MalformedTokenError.
func DecodeRow(line []byte, fn func(col int, q int16)) (int, error) {
	if len(line) == 0 {
		return 0, nil
	}

	col := 0
	pos := 0
	for {
		q, width, reason := decodeToken(line[pos:])
		if reason != "" {
			return col, &MalformedTokenError{Column: col, Offset: pos, Reason: reason}
		}
		fn(col, q)
		col++
		pos += width

		if pos == len(line) {
			return col, nil
		}
		if line[pos] != ',' {
			return col, &MalformedTokenError{Column: col - 1, Offset: pos, Reason: fmt.Sprintf("expected ',' after token, got %q", line[pos])}
		}
		pos++
		if pos == len(line) {
			return col, &MalformedTokenError{Column: col, Offset: pos, Reason: "trailing separator"}
		}
	}
}

// DecodeRowInto decodes line into dst and returns the number of columns.
// It fails if the row has more columns than dst can hold.
func DecodeRowInto(line []byte, dst []int16) (int, error) {
	overflow := false
	n, err := DecodeRow(line, func(col int, q int16) {
		if col < len(dst) {
			dst[col] = q
		} else {
			overflow = true
		}
	})
	if err != nil {
		return n, err
	}
	if overflow {
		return n, &MalformedTokenError{Column: len(dst), Offset: -1, Reason: fmt.Sprintf("row has %d columns, want at most %d", n, len(dst))}
	}
	return n, nil
}

// decodeToken decodes the token at the start of b and returns its value and
// width without separator. A non-empty reason reports a grammar violation.
func decodeToken(b []byte) (q int16, width int, reason string) {
	switch b[0] {
	case 'N':
		if len(b) < 3 || b[1] != 'a' || b[2] != 'N' {
			return 0, 0, "bad NaN token"
		}
		return Undefined, 3, ""
	case '.':
		v, ok := digits4(b, 1)
		if !ok {
			return 0, 0, "expected four digits after '.'"
		}
		return v, 5, ""
	case '-':
		if len(b) >= 2 && b[1] == '.' {
			v, ok := digits4(b, 2)
			if !ok {
				return 0, 0, "expected four digits after '-.'"
			}
			return -v, 6, ""
		}
		if !isOne(b[1:]) {
			return 0, 0, "bad -1.0000 token"
		}
		return -Scale, 7, ""
	case '1':
		if !isOne(b) {
			return 0, 0, "bad 1.0000 token"
		}
		return Scale, 6, ""
	default:
		return 0, 0, fmt.Sprintf("unexpected byte %q", b[0])
	}
}

func digits4(b []byte, off int) (int16, bool) {
	if len(b) < off+4 {
		return 0, false
	}
	var v int16
	for _, c := range b[off : off+4] {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int16(c-'0')
	}
	return v, true
}

func isOne(b []byte) bool {
	return len(b) >= 6 && b[0] == '1' && b[1] == '.' &&
		b[2] == '0' && b[3] == '0' && b[4] == '0' && b[5] == '0'
}
