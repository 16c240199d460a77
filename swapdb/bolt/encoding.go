package bolt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/athanorlabs/btcxmrswap/swapdb"
)

// encodeRecord serializes a SwapRecord as:
//   id(16) | stageNameLen(2) | stageName | unixNano(8) | payloadLen(4) | payload
// Fixed-width fields precede variable-length ones, matching the teacher's
// general preference for simple length-prefixed binary encodings over
// gob/json for on-disk records (see channeldb's encode helpers operating
// directly on io.Writer).
func encodeRecord(rec swapdb.SwapRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(rec.ID[:])

	if len(rec.StageName) > 0xffff {
		return nil, fmt.Errorf("swapdb/bolt: stage name too long")
	}
	var nameLen [2]byte
	binary.BigEndian.PutUint16(nameLen[:], uint16(len(rec.StageName)))
	buf.Write(nameLen[:])
	buf.WriteString(rec.StageName)

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(rec.UpdatedAt.UnixNano()))
	buf.Write(ts[:])

	var plen [4]byte
	binary.BigEndian.PutUint32(plen[:], uint32(len(rec.Payload)))
	buf.Write(plen[:])
	buf.Write(rec.Payload)

	return buf.Bytes(), nil
}

func decodeRecord(raw []byte) (swapdb.SwapRecord, error) {
	var rec swapdb.SwapRecord
	if len(raw) < 16+2 {
		return rec, fmt.Errorf("swapdb/bolt: truncated record")
	}
	copy(rec.ID[:], raw[:16])
	off := 16

	nameLen := int(binary.BigEndian.Uint16(raw[off : off+2]))
	off += 2
	if len(raw) < off+nameLen+8+4 {
		return rec, fmt.Errorf("swapdb/bolt: truncated record")
	}
	rec.StageName = string(raw[off : off+nameLen])
	off += nameLen

	nanos := int64(binary.BigEndian.Uint64(raw[off : off+8]))
	rec.UpdatedAt = time.Unix(0, nanos)
	off += 8

	plen := int(binary.BigEndian.Uint32(raw[off : off+4]))
	off += 4
	if len(raw) < off+plen {
		return rec, fmt.Errorf("swapdb/bolt: truncated payload")
	}
	rec.Payload = append([]byte(nil), raw[off:off+plen]...)

	return rec, nil
}

// encodeAddrs/decodeAddrs serialize a list of multiaddr strings as a
// length-prefixed sequence, mirroring encodeRecord's convention.
func encodeAddrs(addrs []swapdb.Multiaddr) ([]byte, error) {
	var buf bytes.Buffer
	var count [2]byte
	binary.BigEndian.PutUint16(count[:], uint16(len(addrs)))
	buf.Write(count[:])

	for _, a := range addrs {
		if len(a) > 0xffff {
			return nil, fmt.Errorf("swapdb/bolt: multiaddr too long")
		}
		var l [2]byte
		binary.BigEndian.PutUint16(l[:], uint16(len(a)))
		buf.Write(l[:])
		buf.WriteString(string(a))
	}
	return buf.Bytes(), nil
}

func decodeAddrs(raw []byte) ([]swapdb.Multiaddr, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("swapdb/bolt: truncated addrs")
	}
	count := int(binary.BigEndian.Uint16(raw[:2]))
	off := 2

	addrs := make([]swapdb.Multiaddr, 0, count)
	for i := 0; i < count; i++ {
		if len(raw) < off+2 {
			return nil, fmt.Errorf("swapdb/bolt: truncated addrs")
		}
		l := int(binary.BigEndian.Uint16(raw[off : off+2]))
		off += 2
		if len(raw) < off+l {
			return nil, fmt.Errorf("swapdb/bolt: truncated addrs")
		}
		addrs = append(addrs, swapdb.Multiaddr(raw[off:off+l]))
		off += l
	}
	return addrs, nil
}
