// Package device abstracts the audio input subsystem: enumeration of input
// devices (including loopback captures of the system output mix) and blocking
// frame reads from open input streams. The portaudio-backed host is the
// production implementation; tests substitute an in-memory host.
package device
