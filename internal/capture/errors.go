package capture

import "fmt"

// ConfigError reports a missing or invalid device selection. It is fatal and
// never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// CaptureError reports a device I/O failure during recording, naming the
// stream that failed. The sibling stream's partial data is still preserved.
type CaptureError struct {
	Stream string
	Err    error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed on %s stream: %v", e.Stream, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}
