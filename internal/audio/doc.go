// Package audio provides the canonical post-conditioning audio artifact type
// and multi-channel WAV encoding/decoding for persistence.
package audio
