// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// AcceptanceThreshold is the minimum probability (1 - distance) a reference
	// comparison must exceed to become a match candidate
	AcceptanceThreshold = 0.5

	// MaxDistance is the cosine distance reported when no comparison is possible
	// (no face in a reference image, empty embedding)
	MaxDistance = 2.0

	// MinFaceWidthPx is the smallest detected face width, in frame pixels, that is verified
	MinFaceWidthPx = 20

	// DetectJPEGQuality is the JPEG quality of frames sent to the embedding server
	DetectJPEGQuality = 90

	// WorkerPoolSize is the default number of parallel requests when warming reference embeddings
	WorkerPoolSize = 8
)

// Loop cadence constants
const (
	// FrameInterval is the pause between capture iterations (~30 frames/second)
	FrameInterval = 30 * time.Millisecond

	// CountdownInterval is the tick of the session countdown
	CountdownInterval = time.Second

	// SchedulePollInterval is the longest the schedule poller sleeps before re-planning
	SchedulePollInterval = time.Minute

	// ShutdownTimeout bounds the web server shutdown
	ShutdownTimeout = 10 * time.Second
)

// Display constants
const (
	// DisplayWidth and DisplayHeight are the dimensions frames are scaled to for display
	DisplayWidth  = 640
	DisplayHeight = 480

	// DisplayJPEGQuality is the JPEG quality used for the MJPEG display stream
	DisplayJPEGQuality = 80
)

// Report constants
const (
	// ReportTimestampLayout names report files (attendance_2025-03-14_09-05-00.xlsx)
	ReportTimestampLayout = "2006-01-02_15-04-05"

	// ClockLayout formats arrival and late times
	ClockLayout = "15:04:05"
)
