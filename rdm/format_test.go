package rdm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_ParseFormat_RejectsOversizedParam(t *testing.T) {
	var big = ""
	for i := 0; i < 30; i++ {
		big += "a8" // 30 * 8 = 240 > 231
	}
	_, err := ParseFormat(big)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormatSyntax)
}

func Test_ParseFormat_RejectsVariableNotLast(t *testing.T) {
	_, err := ParseFormat("ab")
	require.Error(t, err)
}

func Test_ParseFormat_RejectsOptionalUIDNotLast(t *testing.T) {
	_, err := ParseFormat("vb")
	require.Error(t, err)
}

func Test_ParseFormat_RejectsLiteralTooLong(t *testing.T) {
	_, err := ParseFormat("#123456789012345678h")
	require.Error(t, err)
}

func Test_ParseFormat_RejectsMissingTerminator(t *testing.T) {
	_, err := ParseFormat("#1234")
	require.Error(t, err)
}

func Test_ParseFormat_RejectsZeroLengthFixedASCII(t *testing.T) {
	_, err := ParseFormat("a0")
	require.Error(t, err)
}

func Test_ParseFormat_Singleton(t *testing.T) {
	f, err := ParseFormat("bbww")
	require.NoError(t, err)
	assert.False(t, f.Singleton())
	assert.Equal(t, 6, f.ParamSize())

	f2, err := ParseFormat("bv")
	require.NoError(t, err)
	assert.True(t, f2.Singleton())

	f3, err := ParseFormat("")
	require.NoError(t, err)
	assert.True(t, f3.Singleton())
}

func Test_Emplace_LiteralPrefix(t *testing.T) {
	f, err := ParseFormat("#cc0118h")
	require.NoError(t, err)

	var dst [3]byte
	n := f.Emplace(dst[:], nil, false)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{0xCC, 0x01, 0x18}, dst[:])
}

func Test_Emplace_WordByteSwap(t *testing.T) {
	f, err := ParseFormat("w")
	require.NoError(t, err)

	var native = []byte{0x34, 0x12} // little-endian 0x1234
	var wire [2]byte
	n := f.Emplace(wire[:], native, false)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{0x12, 0x34}, wire[:])

	// Idempotent: applying again reverses back to native order.
	var back [2]byte
	f.Emplace(back[:], wire[:], false)
	assert.Equal(t, native, back[:])
}

func Test_Emplace_UIDField(t *testing.T) {
	f, err := ParseFormat("u")
	require.NoError(t, err)

	var native [6]byte
	putUIDNative(native[:], UID{ManID: 0x0001, DevID: 0x00000002})

	var wire [6]byte
	f.Emplace(wire[:], native[:], false)
	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x02}, wire[:])
}

func Test_Emplace_OptionalUIDNullStopsEmission(t *testing.T) {
	f, err := ParseFormat("bv")
	require.NoError(t, err)

	var native = make([]byte, 1+6) // b=1, null uid
	native[0] = 0x42

	var dst = make([]byte, 7)
	n := f.Emplace(dst, native, false)
	assert.Equal(t, 1, n, "null optional UID should stop emission after the byte field")
	assert.Equal(t, byte(0x42), dst[0])
}

func Test_Emplace_VariableASCII(t *testing.T) {
	f, err := ParseFormat("a")
	require.NoError(t, err)

	var src = append([]byte("hello"), make([]byte, 27)...) // pad to avoid strnlen overrun
	var dst = make([]byte, 32)
	n := f.Emplace(dst, src, false)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(dst[:5]))
}

func Test_Emplace_VariableASCII_WithNullTerminator(t *testing.T) {
	f, err := ParseFormat("a")
	require.NoError(t, err)

	var src = append([]byte("hi"), make([]byte, 30)...)
	var dst = make([]byte, 32)
	n := f.Emplace(dst, src, true)
	assert.Equal(t, 3, n) // "hi" + NUL
	assert.Equal(t, byte(0), dst[2])
}

func Test_HeaderFormat_MatchesScenario(t *testing.T) {
	// Mirrors the worked serialize-header example: dest=1:2, src=3:4,
	// tn=5, port_id=1, message_count=0, sub_device=0, cc=0x20, pid=0x0060.
	var header = Header{
		DestUID:              UID{ManID: 1, DevID: 2},
		SrcUID:               UID{ManID: 3, DevID: 4},
		TN:                   5,
		PortIDOrResponseType: 1,
		MessageCount:         0,
		SubDevice:            0,
		CC:                   GetCommand,
		PID:                  0x0060,
	}
	native := header.nativeBytes()

	var dst [headerFixedWireSize]byte
	n := headerFixedFields.Emplace(dst[:], native[:], false)
	assert.Equal(t, headerFixedWireSize, n)

	expected := []byte{
		0xCC, 0x01, 0x18,
		0x00, 0x01, 0x00, 0x00, 0x00, 0x02, // dest uid
		0x00, 0x03, 0x00, 0x00, 0x00, 0x04, // src uid
		0x05,       // tn
		0x01,       // port id
		0x00,       // message count
		0x00, 0x00, // sub device
		0x20,       // cc
		0x00, 0x60, // pid
	}
	assert.Equal(t, expected, dst[:])
}

// Property: for any format with no variable-length fields or optional-UID
// nulls, deserializing a serialized buffer recovers the original bytes.
func Test_Emplace_RoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kinds := rapid.SampledFrom([]string{"b", "w", "d", "u"})
		n := rapid.IntRange(1, 6).Draw(t, "nFields")
		var formatStr string
		var nativeSize int
		for i := 0; i < n; i++ {
			k := kinds.Draw(t, "kind")
			formatStr += k
			switch k {
			case "b":
				nativeSize += 1
			case "w":
				nativeSize += 2
			case "d":
				nativeSize += 4
			case "u":
				nativeSize += 6
			}
		}

		f, err := ParseFormat(formatStr)
		require.NoError(t, err)

		native := rapid.SliceOfN(rapid.Byte(), nativeSize, nativeSize).Draw(t, "native")

		wire := make([]byte, nativeSize)
		written := f.Emplace(wire, native, false)
		require.Equal(t, nativeSize, written)

		back := make([]byte, nativeSize)
		f.Emplace(back, wire, false)

		assert.True(t, bytes.Equal(native, back))
	})
}
