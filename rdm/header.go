package rdm

/*------------------------------------------------------------------
 *
 * Purpose:	The 24-byte RDM message envelope and the command-class /
 *		response-type / well-known-PID constants the transport
 *		layer needs (full PID catalog support is out of scope).
 *
 *------------------------------------------------------------------*/

import "encoding/binary"

// CommandClass identifies the kind of RDM message: a request or its
// matching response.
type CommandClass byte

const (
	DiscCommand         CommandClass = 0x10
	DiscCommandResponse CommandClass = 0x11
	GetCommand          CommandClass = 0x20
	GetCommandResponse  CommandClass = 0x21
	SetCommand          CommandClass = 0x30
	SetCommandResponse  CommandClass = 0x31
)

// ResponseType occupies the same wire byte as PortID on a request; on a
// response it classifies the outcome. Values follow the ANSI E1.20 mapping.
type ResponseType byte

const (
	ResponseTypeAck         ResponseType = 0x00
	ResponseTypeAckTimer    ResponseType = 0x01
	ResponseTypeNackReason  ResponseType = 0x02
	ResponseTypeAckOverflow ResponseType = 0x03
)

// Well-known PIDs the transport layer itself needs to recognize.
const (
	PIDDiscUniqueBranch uint16 = 0x0001
)

// SubDeviceRoot and SubDeviceAllUnits are the two reserved sub-device
// values; every other legal value is a specific sub-device in [1, 512].
const (
	SubDeviceRoot     uint16 = 0x0000
	SubDeviceAllUnits uint16 = 0xFFFF
)

const maxSubDevice = 512

// Header is the 24-byte RDM message envelope, held in native Go types
// rather than raw wire bytes; Write/Read translate to and from the wire
// form.
type Header struct {
	DestUID UID
	SrcUID  UID

	// TN is the transaction number. The engine overwrites this from the
	// port's counter before transmitting a request.
	TN byte

	// PortIDOrResponseType is PortID on a request, ResponseType on a
	// response — the two are the same wire byte, overloaded by direction.
	PortIDOrResponseType byte

	MessageCount byte
	SubDevice    uint16
	CC           CommandClass
	PID          uint16

	// PDL is the parameter-data length. Write ignores this field and puts
	// len(pd) on the wire; Read fills it in from the wire.
	PDL byte
}

// ResponseType reads PortIDOrResponseType as a ResponseType; meaningful
// only on a received response.
func (h Header) ResponseType() ResponseType { return ResponseType(h.PortIDOrResponseType) }

// headerFixedFields is the RDM header's fixed wire format, covering every
// byte before PDL: SC, SUB_SC, a literal MSG_LEN placeholder of 24, then
// dest/src UID, TN, PortID, MessageCount, SubDevice, CC, PID.
// Write puts PDL and the final MSG_LEN in place separately, since neither
// is known until the parameter data length is.
var headerFixedFields = mustParseFormat("#cc0118huubbbwbw")

func mustParseFormat(s string) *Format {
	f, err := ParseFormat(s)
	if err != nil {
		panic("rdm: internal format string rejected: " + err.Error())
	}
	return f
}

const headerFixedWireSize = 23 // bytes produced by headerFixedFields
const headerTotalSize = 24     // fixed fields + PDL byte

// nativeBytes packs the header's non-literal fields (dest, src, tn, portID,
// msgCount, subDevice, cc, pid) into the 20-byte native-endian layout the
// format engine's byte-swap fields expect.
func (h Header) nativeBytes() [20]byte {
	var b [20]byte
	putUIDNative(b[0:6], h.DestUID)
	putUIDNative(b[6:12], h.SrcUID)
	b[12] = h.TN
	b[13] = h.PortIDOrResponseType
	b[14] = h.MessageCount
	binary.LittleEndian.PutUint16(b[15:17], h.SubDevice)
	b[17] = byte(h.CC)
	binary.LittleEndian.PutUint16(b[18:20], h.PID)
	return b
}

// headerFromNativeBytes reverses nativeBytes.
func headerFromNativeBytes(b []byte) Header {
	return Header{
		DestUID:              getUIDNative(b[0:6]),
		SrcUID:               getUIDNative(b[6:12]),
		TN:                   b[12],
		PortIDOrResponseType: b[13],
		MessageCount:         b[14],
		SubDevice:            binary.LittleEndian.Uint16(b[15:17]),
		CC:                   CommandClass(b[17]),
		PID:                  binary.LittleEndian.Uint16(b[18:20]),
	}
}

func putUIDNative(dst []byte, u UID) {
	binary.LittleEndian.PutUint16(dst[0:2], u.ManID)
	binary.LittleEndian.PutUint32(dst[2:6], u.DevID)
}

func getUIDNative(src []byte) UID {
	return UID{
		ManID: binary.LittleEndian.Uint16(src[0:2]),
		DevID: binary.LittleEndian.Uint32(src[2:6]),
	}
}
