// Package capture implements dual-stream audio acquisition: one capture unit
// per input device pulling fixed-size frames on its own goroutine, with
// periodic flushing of the in-memory buffer to temporary segment files so
// peak memory stays bounded regardless of session length, and a coordinator
// that runs the system and microphone units concurrently.
package capture
