// Package hash provides the CRC32-Castagnoli checksum used to verify spill
// segments before they are decoded.
//
// CRC32C is hardware accelerated on x86 (SSE4.2) and ARM (CRC extension),
// so checksumming a segment costs far less than the disk read that produced it.
//
//	sum := hash.CRC32C(payload)
package hash
