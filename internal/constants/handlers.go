package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event listener channels
	EventChannelBuffer = 100

	// FrameChannelBuffer is the buffer size for display frame listeners.
	// Frames are dropped when a listener falls behind.
	FrameChannelBuffer = 2
)
