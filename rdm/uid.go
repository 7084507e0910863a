// Package rdm implements the wire codec, UID algebra, and transaction engine
// for a DMX512 / RDM transport stack, ported from the esp_dmx core.
package rdm

/*------------------------------------------------------------------
 *
 * Purpose:	48-bit RDM device identifiers and the ordering/target-match
 *		algebra defined over them.
 *
 *------------------------------------------------------------------*/

import "encoding/binary"

// UID is a 48-bit RDM device identifier: a 16-bit manufacturer ID and a
// 32-bit device ID.
type UID struct {
	ManID uint16
	DevID uint32
}

// AllManufacturers is the manufacturer ID wildcard used in broadcast UIDs.
const AllManufacturers uint16 = 0xFFFF

// AllDevices is the device ID wildcard used in broadcast UIDs.
const AllDevices uint32 = 0xFFFFFFFF

// Null is the all-zero UID, used to mean "no source/target given".
var Null = UID{ManID: 0, DevID: 0}

// BroadcastAll addresses every responder on the bus, regardless of
// manufacturer.
var BroadcastAll = UID{ManID: AllManufacturers, DevID: AllDevices}

// BroadcastManufacturer addresses every responder made by manID.
func BroadcastManufacturer(manID uint16) UID {
	return UID{ManID: manID, DevID: AllDevices}
}

// Eq reports whether a and b are the same UID.
func (a UID) Eq(b UID) bool { return a.ManID == b.ManID && a.DevID == b.DevID }

// Lt reports whether a sorts before b under lexicographic (ManID, DevID)
// order.
func (a UID) Lt(b UID) bool {
	if a.ManID != b.ManID {
		return a.ManID < b.ManID
	}
	return a.DevID < b.DevID
}

// Gt reports whether a sorts after b.
func (a UID) Gt(b UID) bool { return b.Lt(a) }

// Le reports whether a sorts at or before b.
func (a UID) Le(b UID) bool { return !a.Gt(b) }

// Ge reports whether a sorts at or after b.
func (a UID) Ge(b UID) bool { return !a.Lt(b) }

// IsNull reports whether the UID is the all-zero sentinel.
func (a UID) IsNull() bool { return a.ManID == 0 && a.DevID == 0 }

// IsBroadcast reports whether the UID's device portion is the broadcast
// wildcard, regardless of manufacturer.
func (a UID) IsBroadcast() bool { return a.DevID == AllDevices }

// IsTarget reports whether alias addresses uid: either they're equal, or
// alias is a broadcast (all-manufacturer or same-manufacturer) address that
// covers uid.
func IsTarget(uid, alias UID) bool {
	if alias.Eq(uid) {
		return true
	}
	return (alias.ManID == AllManufacturers || alias.ManID == uid.ManID) && alias.DevID == AllDevices
}

// uidWireSize is the number of bytes a UID occupies on the wire.
const uidWireSize = 6

// PutUID writes u to dst in big-endian wire order: ManID hi, ManID lo, then
// DevID most-significant byte first. dst must be at least uidWireSize bytes.
func PutUID(dst []byte, u UID) {
	binary.BigEndian.PutUint16(dst[0:2], u.ManID)
	binary.BigEndian.PutUint32(dst[2:6], u.DevID)
}

// GetUID reads a big-endian wire-order UID from src, which must be at least
// uidWireSize bytes.
func GetUID(src []byte) UID {
	return UID{
		ManID: binary.BigEndian.Uint16(src[0:2]),
		DevID: binary.BigEndian.Uint32(src[2:6]),
	}
}
