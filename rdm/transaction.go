package rdm

/*------------------------------------------------------------------
 *
 * Purpose:	Compose a request, transmit it, conditionally await and
 *		classify the response, and report a typed Ack. This is the
 *		only component that drives the HAL directly; everything
 *		else in the package is a pure codec.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"encoding/binary"
)

// Request issues one RDM transaction on p. header is both input and output:
// on entry it describes the request (PortIDOrResponseType, SrcUID, TN, and
// MessageCount are normalized by the engine and need not be set); on return
// it holds the response header (or, for a successful DISC_UNIQUE_BRANCH, a
// header synthesized from the decoded UID). pdIn is the outgoing parameter
// data; pdOut, if non-nil, receives up to len(pdOut) bytes of the response's
// parameter data.
//
// Request never retries. Framing failures, response-validation mismatches,
// and transport errors all surface as Ack{Type: AckTypeInvalid}, not as a
// returned error — err is reserved for precondition failures and the write
// path, so callers can switch on Ack.Type as the single source of truth for
// how a transaction concluded. ctx bounds every suspension point (send
// completion, response receive); Request returns promptly once ctx is done.
func (p *Port) Request(ctx context.Context, header *Header, pdIn []byte, pdOut []byte) (int, Ack, error) {
	if header == nil {
		return 0, Ack{}, ErrPrecondition
	}
	if header.DestUID.IsNull() {
		return 0, Ack{}, ErrPrecondition
	}
	if header.SrcUID.IsBroadcast() {
		return 0, Ack{}, ErrPrecondition
	}
	switch header.CC {
	case DiscCommand, GetCommand, SetCommand:
	default:
		return 0, Ack{}, ErrPrecondition
	}
	if header.SubDevice > maxSubDevice && header.SubDevice != SubDeviceAllUnits {
		return 0, Ack{}, ErrPrecondition
	}
	if header.SubDevice == SubDeviceAllUnits && header.CC == GetCommand {
		return 0, Ack{}, ErrPrecondition
	}
	if len(pdIn) > MaxParamSize {
		return 0, Ack{}, ErrParamTooLarge
	}

	req := *header
	if req.PortIDOrResponseType == 0 {
		req.PortIDOrResponseType = byte(p.index + 1)
	}
	if req.SrcUID.IsNull() {
		req.SrcUID = p.ownUID
	}
	req.TN = p.nextTN()
	req.MessageCount = 0

	n, err := p.Write(&req, pdIn)
	if err != nil {
		return 0, Ack{}, err
	}

	p.mu.Lock()
	txBuf := p.buffer[:n]
	p.mu.Unlock()

	if serr := p.hal.Send(ctx, p.index, txBuf); serr != nil {
		p.sendComplete()
		*header = req
		return 0, Ack{Type: AckTypeInvalid, Err: serr}, nil
	}

	discUniqueBranch := req.CC == DiscCommand && req.PID == PIDDiscUniqueBranch
	responseExpected := !req.DestUID.IsBroadcast() || discUniqueBranch

	if !responseExpected {
		werr := p.hal.WaitSent(ctx, p.index)
		p.sendComplete()
		*header = req
		if werr != nil {
			return n, Ack{Type: AckTypeInvalid, Err: werr}, nil
		}
		return n, Ack{Type: AckTypeNone}, nil
	}

	p.mu.Lock()
	rxBuf := p.buffer[:]
	p.mu.Unlock()

	recvN, rerr := p.hal.Receive(ctx, p.index, rxBuf)
	if rerr != nil {
		p.sendComplete()
		*header = req
		return recvN, Ack{Type: AckTypeInvalid, Err: rerr}, nil
	}

	var frameLen int
	var ack Ack
	if discUniqueBranch {
		frameLen, ack = p.classifyDiscovery(header, recvN)
	} else {
		frameLen, ack = p.classifyResponse(header, req, pdOut)
	}
	p.sendComplete()
	return frameLen, ack, nil
}

// classifyResponse decodes a standard RDM response frame already sitting in
// the port's buffer and validates it against req, the pre-receive copy of
// the request, matching the original's "validate against a local copy, not
// the buffer" resource-sharing rule. Once the frame passes its start-code
// and checksum checks, header is set to the decoded response header
// whatever the validation outcome; on a framing or checksum failure header
// is left unchanged.
func (p *Port) classifyResponse(header *Header, req Header, pdOut []byte) (int, Ack) {
	var resp Header
	var raw [MaxParamSize]byte
	frameLen, pdl, rerr := p.Read(&resp, raw[:])
	if rerr != nil {
		return 0, Ack{Type: AckTypeInvalid}
	}
	*header = resp

	if pdOut != nil {
		cpy := pdl
		if cpy > len(pdOut) {
			cpy = len(pdOut)
		}
		copy(pdOut[:cpy], raw[:cpy])
	}

	switch resp.ResponseType() {
	case ResponseTypeAck, ResponseTypeAckTimer, ResponseTypeNackReason, ResponseTypeAckOverflow:
	default:
		return frameLen, Ack{Type: AckTypeInvalid}
	}

	invalid := req.CC+1 != resp.CC ||
		req.PID != resp.PID ||
		req.TN != resp.TN ||
		!IsTarget(resp.SrcUID, req.DestUID) ||
		!req.SrcUID.Eq(resp.DestUID)
	if invalid {
		return frameLen, Ack{Type: AckTypeInvalid}
	}

	switch resp.ResponseType() {
	case ResponseTypeAck:
		return frameLen, Ack{Type: AckTypeAck, Num: pdl}
	case ResponseTypeAckTimer:
		ack := Ack{Type: AckTypeAckTimer}
		if pdl >= 2 {
			// Wire units are 10ms ticks; Num is reported in whole
			// milliseconds since the engine has no RTOS tick rate to
			// convert against.
			ack.Num = int(binary.BigEndian.Uint16(raw[:2])) * 10
		}
		return frameLen, ack
	case ResponseTypeNackReason:
		ack := Ack{Type: AckTypeNackReason}
		if pdl >= 2 {
			ack.Num = int(binary.BigEndian.Uint16(raw[:2]))
		}
		return frameLen, ack
	default: // ResponseTypeAckOverflow
		return frameLen, Ack{Type: AckTypeAckOverflow}
	}
}

// classifyDiscovery decodes a DISC_UNIQUE_BRANCH response, which has no
// standard frame: it's the preamble/dual-byte encoding read straight off the
// wire via ReadSlots. On success it synthesizes the response header the
// standard path would otherwise have produced, so callers don't need a
// separate code path to learn which UID answered.
func (p *Port) classifyDiscovery(header *Header, recvN int) (int, Ack) {
	size := recvN
	if size > headerTotalSize {
		size = headerTotalSize
	}
	raw := make([]byte, size)
	got := p.hal.ReadSlots(p.index, raw)

	uid, _, ok := DecodeUID(raw[:got])
	if !ok {
		return recvN, Ack{Type: AckTypeInvalid}
	}

	*header = Header{
		SrcUID:               uid,
		DestUID:              Null,
		TN:                   0,
		PortIDOrResponseType: byte(ResponseTypeAck),
		MessageCount:         0,
		SubDevice:            SubDeviceRoot,
		CC:                   DiscCommandResponse,
		PID:                  PIDDiscUniqueBranch,
	}
	return recvN, Ack{Type: AckTypeAck}
}
