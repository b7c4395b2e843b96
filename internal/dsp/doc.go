// Package dsp turns raw capture buffers into playback-grade audio artifacts:
// sample decoding, per-channel reshaping, noise-profile estimation, noise
// reduction and 16-bit quantization.
package dsp
