package blockstore

import (
	"encoding/binary"
	"fmt"
)

// Keyspace, ordered for per-partition map-range scans:
//
//	sh/{shuffle_be4}/meta                                  (shuffle metadata)
//	sh/{shuffle_be4}/f/{file}/p/{part_be4}/m/{map_be4}     (block bytes)
func keyShufflePrefix(shuffleID uint32) []byte {
	k := make([]byte, 0, 16)
	k = append(k, "sh/"...)
	k = appendUint32(k, shuffleID)
	k = append(k, '/')
	return k
}

func keyShuffleMeta(shuffleID uint32) []byte {
	return append(keyShufflePrefix(shuffleID), "meta"...)
}

func keyBlockPrefix(shuffleID uint32, file string, partition uint32) []byte {
	k := keyShufflePrefix(shuffleID)
	k = append(k, fmt.Sprintf("f/%s/p/", file)...)
	k = appendUint32(k, partition)
	k = append(k, "/m/"...)
	return k
}

func keyBlock(shuffleID uint32, file string, partition, mapIndex uint32) []byte {
	return appendUint32(keyBlockPrefix(shuffleID, file, partition), mapIndex)
}

func keyFilePrefix(shuffleID uint32, file string) []byte {
	return append(keyShufflePrefix(shuffleID), fmt.Sprintf("f/%s/", file)...)
}

func appendUint32(k []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(k, b[:]...)
}

// mapIndexFromKey extracts the trailing map index from a block key.
func mapIndexFromKey(key []byte) uint32 {
	if len(key) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(key[len(key)-4:])
}
