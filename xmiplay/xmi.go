package main

import (
	"encoding/binary"
	"errors"
)

// chunk ids as big-endian 32-bit ints for cheap comparison
const (
	idFORM = 0x464f524d // "FORM"
	idCAT  = 0x43415420 // "CAT "
	idXMID = 0x584d4944 // "XMID"
	idEVNT = 0x45564e54 // "EVNT"
	idMROF = 0x4d524f46 // "MROF", a FORM header written little-endian
)

var (
	errNoEvnt    = errors.New("no EVNT chunk in file")
	errTruncated = errors.New("truncated container")
)

// locate the first EVNT chunk in an XMI file, returning the byte range
// of its payload
func findEvnt(data []byte) (start, end int, err error) {
	return walkChunks(data, 0, len(data))
}

// walk a sequence of IFF chunks in [pos, limit), descending into FORM
// and CAT containers. chunk sizes are big-endian and exclude the 8-byte
// header; odd-sized chunks are followed by a pad byte.
func walkChunks(data []byte, pos, limit int) (int, int, error) {
	for pos+8 <= limit {
		id := binary.BigEndian.Uint32(data[pos:])
		size := int(binary.BigEndian.Uint32(data[pos+4:]))
		pos += 8
		// some files write the outer header as "XMID" followed by the
		// integer value of "FORM"; reinterpret as a FORM chunk and read
		// the real size from the next word
		if id == idXMID && size == idFORM {
			if pos+4 > limit {
				return 0, 0, errTruncated
			}
			id = idFORM
			size = int(binary.BigEndian.Uint32(data[pos:]))
			pos += 4
		}
		if size < 0 || pos+size > limit {
			return 0, 0, errTruncated
		}
		switch id {
		case idEVNT:
			return pos, pos + size, nil
		case idFORM:
			if size < 4 {
				return 0, 0, errTruncated
			}
			// skip the form type id, then walk the sub-chunks
			s, e, err := walkChunks(data, pos+4, pos+size)
			if err == nil {
				return s, e, nil
			} else if err != errNoEvnt {
				return 0, 0, err
			}
		case idCAT:
			s, e, err := walkCatalog(data, pos, pos+size)
			if err == nil {
				return s, e, nil
			} else if err != errNoEvnt {
				return 0, 0, err
			}
		}
		pos += size
		if size%2 == 1 && pos < limit {
			pos++
		}
	}
	return 0, 0, errNoEvnt
}

// walk a CAT payload. a catalog either contains nested forms directly or
// is an offset list pointing at forms elsewhere in the file. offset-list
// fields are little-endian, unlike everything else in the container.
func walkCatalog(data []byte, pos, limit int) (int, int, error) {
	if pos+4 > limit {
		return 0, 0, errTruncated
	}
	switch binary.BigEndian.Uint32(data[pos:]) {
	case idFORM, idXMID:
		return walkChunks(data, pos, limit)
	case idMROF:
		// byte-swapped FORM header: little-endian size follows
		if pos+8 > limit {
			return 0, 0, errTruncated
		}
		size := int(binary.LittleEndian.Uint32(data[pos+4:]))
		if size < 4 || pos+8+size > limit {
			return 0, 0, errTruncated
		}
		return walkChunks(data, pos+12, pos+8+size)
	}

	// offset list: 16-bit entry count, two reserved bytes, then 32-bit
	// absolute file offsets. a failed entry aborts only that branch.
	count := int(binary.LittleEndian.Uint16(data[pos:]))
	pos += 4
	for i := 0; i < count; i++ {
		if pos+4 > limit {
			return 0, 0, errTruncated
		}
		off := int(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4
		if off == 0 {
			continue
		}
		if s, e, err := walkCatalogEntry(data, off); err == nil {
			return s, e, nil
		}
	}
	return 0, 0, errNoEvnt
}

// probe a single catalog entry, expecting a FORM/XMID header at off
func walkCatalogEntry(data []byte, off int) (int, int, error) {
	if off+8 > len(data) {
		return 0, 0, errTruncated
	}
	id := binary.BigEndian.Uint32(data[off:])
	size := int(binary.BigEndian.Uint32(data[off+4:]))
	pos := off + 8
	if id == idXMID && size == idFORM {
		if pos+4 > len(data) {
			return 0, 0, errTruncated
		}
		id = idFORM
		size = int(binary.BigEndian.Uint32(data[pos:]))
		pos += 4
	}
	if size < 0 || pos+size > len(data) {
		return 0, 0, errTruncated
	}
	switch id {
	case idFORM:
		if size < 4 {
			return 0, 0, errTruncated
		}
		return walkChunks(data, pos+4, pos+size)
	case idXMID:
		// the id doubles as the form type; sub-chunks follow directly
		return walkChunks(data, pos, pos+size)
	}
	return 0, 0, errNoEvnt
}
