// Package benewake decodes the serial output of Benewake single-point LiDAR
// sensors (TF-Luna, TFmini and friends).
//
// The sensor streams fixed 9-byte frames:
//
//	0x59 0x59 distL distH strengthL strengthH tempL tempH checksum
//
// where checksum is the low byte of the sum of the first eight bytes. Decoder
// reassembles frames from an arbitrary byte stream and silently drops line
// noise; Reader drains one poll worth of bytes and aggregates every frame it
// completes into a single Reading.
package benewake
