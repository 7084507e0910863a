package rdm

/*------------------------------------------------------------------
 *
 * Purpose:	Per-port shared bus state, and reading/writing a complete
 *		RDM frame from/to a port's buffer under its critical
 *		section, with start-code and checksum validation.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

const (
	startCode    byte = 0xCC
	subStartCode byte = 0x01

	// bufferSize is one full DMX512 packet (start code plus 512 slots),
	// matching the original's fixed buffer; an RDM frame uses at most 257
	// bytes of it.
	bufferSize = 513
)

// Port holds the mutable state one DMX/RDM bus shares: its transmit/receive
// buffer, transaction counter, direction latch, and in-flight flag. Port's
// own methods access that state under mu, standing in for the original's
// interrupt-masking spinlock; Request hands slices of buffer to the HAL's
// Send and Receive, which use them outside the lock.
type Port struct {
	mu sync.Mutex

	index int // zero-based; wire PortID is index+1
	hal   HAL
	log   *log.Logger

	buffer    [bufferSize]byte
	isSending bool
	tn        byte
	ownUID    UID
}

// discardLogger is shared by every Port that isn't given one explicitly.
var discardLogger = log.NewWithOptions(io.Discard, log.Options{})

// NewPort installs a port at the given zero-based index, owned by ownUID,
// driving hal. A nil logger installs a silent one.
func NewPort(index int, ownUID UID, hal HAL, logger *log.Logger) *Port {
	if logger == nil {
		logger = discardLogger
	}
	return &Port{index: index, hal: hal, ownUID: ownUID, log: logger}
}

// Index is this port's zero-based index.
func (p *Port) Index() int { return p.index }

// OwnUID is the UID this port uses as SrcUID when a caller doesn't supply
// one.
func (p *Port) OwnUID() UID { return p.ownUID }

func frameChecksum(b []byte) uint16 {
	var sum uint16
	for _, v := range b {
		sum += uint16(v)
	}
	return sum
}

// nextTN returns the port's current transaction number and advances it,
// wrapping modulo 256, under the critical section.
func (p *Port) nextTN() byte {
	p.mu.Lock()
	tn := p.tn
	p.tn++
	p.mu.Unlock()
	return tn
}

// Write serializes header and pd into the port's buffer, finalizing MsgLen
// and checksum, and returns the number of bytes ready to transmit. It fails
// with ErrBusy if a previous Write hasn't yet been cleared by sendComplete,
// and with ErrParamTooLarge if len(pd) exceeds MaxParamSize.
func (p *Port) Write(header *Header, pd []byte) (int, error) {
	if len(pd) > MaxParamSize {
		return 0, ErrParamTooLarge
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isSending {
		return 0, ErrBusy
	}
	if p.hal.RTS(p.index) == Inbound {
		p.hal.SetRTS(p.index, Outbound)
	}

	native := header.nativeBytes()
	headerFixedFields.Emplace(p.buffer[0:headerFixedWireSize], native[:], false)

	pdl := len(pd)
	p.buffer[headerFixedWireSize] = byte(pdl)
	copy(p.buffer[headerTotalSize:headerTotalSize+pdl], pd)

	msgLen := headerTotalSize + pdl
	p.buffer[2] = byte(msgLen)

	checksum := frameChecksum(p.buffer[:msgLen])
	binary.BigEndian.PutUint16(p.buffer[msgLen:msgLen+2], checksum)

	p.isSending = true
	return msgLen + 2, nil
}

// sendComplete clears the in-flight flag. Request calls this once its
// transaction concludes, successfully or not, in place of the original's
// send-complete ISR.
func (p *Port) sendComplete() {
	p.mu.Lock()
	p.isSending = false
	p.mu.Unlock()
}

// Read validates and deserializes the frame currently in the port's buffer.
// If outHeader is non-nil it is filled in with the decoded header (including
// PDL). Up to len(outPD) bytes of parameter data are copied into outPD; the
// return values are the total frame length (0 on framing/checksum failure)
// and the number of parameter-data bytes available (which may exceed
// len(outPD)).
func (p *Port) Read(outHeader *Header, outPD []byte) (frameLen int, pdl int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.buffer[0] != startCode || p.buffer[1] != subStartCode {
		return 0, 0, ErrFraming
	}

	msgLen := int(p.buffer[2])
	if msgLen < headerTotalSize || msgLen+2 > bufferSize {
		return 0, 0, ErrFraming
	}

	checksum := frameChecksum(p.buffer[:msgLen])
	wireChecksum := binary.BigEndian.Uint16(p.buffer[msgLen : msgLen+2])
	if checksum != wireChecksum {
		return 0, 0, ErrChecksum
	}

	pdlWire := int(p.buffer[headerFixedWireSize])

	if outHeader != nil {
		// The SC/SUB_SC/MSG_LEN literal prefix has no native counterpart,
		// so only the fields after it are decoded.
		var native [20]byte
		Emplace(native[:], "uubbbwbw", p.buffer[3:headerFixedWireSize], true)
		*outHeader = headerFromNativeBytes(native[:])
		outHeader.PDL = byte(pdlWire)
	}

	cpy := pdlWire
	if outPD != nil {
		if len(outPD) < cpy {
			cpy = len(outPD)
		}
		copy(outPD[:cpy], p.buffer[headerTotalSize:headerTotalSize+cpy])
	}

	return msgLen + 2, pdlWire, nil
}
