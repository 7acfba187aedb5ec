package handlers

import (
	"bytes"
	"image"
	"image/jpeg"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

const frameBoundary = "frame"

// FrameHub is the web display: it encodes annotated frames as JPEG and fans
// them out to MJPEG viewers. Slow viewers drop frames.
type FrameHub struct {
	quality int

	mu        sync.RWMutex
	listeners map[chan []byte]struct{}
	latest    []byte
	closed    bool
}

// NewFrameHub creates a hub with no viewers.
func NewFrameHub() *FrameHub {
	return &FrameHub{
		quality:   constants.DisplayJPEGQuality,
		listeners: make(map[chan []byte]struct{}),
	}
}

// Show encodes frame and offers it to every viewer. Without viewers the frame
// is discarded unencoded.
func (h *FrameHub) Show(frame image.Image) {
	if h.ListenerCount() == 0 {
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: h.quality}); err != nil {
		log.Printf("Warning: failed to encode display frame: %v", err)
		return
	}
	data := buf.Bytes()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.latest = data
	for ch := range h.listeners {
		select {
		case ch <- data:
		default:
		}
	}
}

// AddListener registers a viewer. It receives the last frame right away when
// there is one. On a closed hub the channel is already closed.
func (h *FrameHub) AddListener() chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan []byte, constants.FrameChannelBuffer)
	if h.closed {
		close(ch)
		return ch
	}
	if h.latest != nil {
		ch <- h.latest
	}
	h.listeners[ch] = struct{}{}
	return ch
}

// RemoveListener unregisters and closes a viewer.
func (h *FrameHub) RemoveListener(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.listeners[ch]; ok {
		delete(h.listeners, ch)
		close(ch)
	}
}

// ListenerCount returns the number of viewers.
func (h *FrameHub) ListenerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Close ends every viewer stream.
func (h *FrameHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.listeners {
		close(ch)
	}
	h.listeners = make(map[chan []byte]struct{})
}

// Stream serves the display as multipart/x-mixed-replace JPEG frames.
func (h *FrameHub) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(frameBoundary); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+frameBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	frames := h.AddListener()
	defer h.RemoveListener(frames)

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-frames:
			if !ok {
				return
			}
			header := textproto.MIMEHeader{}
			header.Set("Content-Type", "image/jpeg")
			header.Set("Content-Length", strconv.Itoa(len(data)))
			part, err := mw.CreatePart(header)
			if err != nil {
				return
			}
			if _, err := part.Write(data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
