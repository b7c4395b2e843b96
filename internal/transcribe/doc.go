// Package transcribe splits long audio artifacts into overlapping windows,
// submits them in order to an external speech-to-text backend and retries
// rate-limited windows with a fixed cool-down.
package transcribe
