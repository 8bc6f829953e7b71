// Package bmeii reads and writes .bmeii volume files.
//
// A .bmeii file has no magic number or version field. It starts with a
// 24-byte header followed directly by the sample payload:
//
//	u32 rows
//	u32 cols
//	u32 slices
//	f32 pixel spacing x
//	f32 pixel spacing y
//	f32 slice thickness
//	payload
//
// Files written by the acquisition software use the legacy layout: the
// payload is rows*cols*slices*8 bytes long, the first rows*cols*slices signed
// 16-bit samples are packed at its start and only the first rows x cols plane
// is ever shown. The dense layout packs rows*cols*slices samples in
// rows*cols*slices*2 bytes and exposes every slice.
//
// Byte order is not recorded in the file. Readers default to the host byte
// order, which is what the producing system used.
//
// Files ending in .bmeii.gz or .bmeii.zst are decompressed transparently.
package bmeii
