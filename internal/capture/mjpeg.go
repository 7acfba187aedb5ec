package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

// httpSource reads frames from an IP camera. A multipart/x-mixed-replace
// response is consumed as an MJPEG stream; an image response switches to
// snapshot mode where every Read fetches the URL again.
type httpSource struct {
	url    string
	client *http.Client
	ctx    context.Context // lives until Close
	cancel context.CancelFunc

	body     io.ReadCloser
	parts    *multipart.Reader
	snapshot bool
	pending  image.Image
}

// OpenHTTP connects to an MJPEG stream or snapshot URL.
func OpenHTTP(ctx context.Context, url string) (Source, error) {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &httpSource{
		url:    url,
		client: http.DefaultClient,
		ctx:    streamCtx,
		cancel: cancel,
	}

	resp, err := s.get()
	if err != nil {
		cancel()
		return nil, err
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("parse content type: %w", err)
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		// Some cameras repeat the leading dashes in the boundary parameter.
		boundary := strings.TrimPrefix(params["boundary"], "--")
		if boundary == "" {
			resp.Body.Close()
			cancel()
			return nil, errors.New("multipart stream without boundary")
		}
		s.body = resp.Body
		s.parts = multipart.NewReader(resp.Body, boundary)
	case strings.HasPrefix(mediaType, "image/"):
		img, _, err := image.Decode(resp.Body)
		resp.Body.Close()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		s.snapshot = true
		s.pending = img
	default:
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("unsupported camera content type %q", mediaType)
	}
	return s, nil
}

func (s *httpSource) get() (*http.Response, error) {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to camera: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("camera returned status %d", resp.StatusCode)
	}
	return resp, nil
}

// Read returns the next frame. A cancelled ctx aborts the pending read and
// leaves the source unusable. Read returns only after the aborted read has
// finished, so Close never releases the stream under it.
func (s *httpSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		img image.Image
		err error
	}
	ch := make(chan result, 1)
	go func() {
		img, err := s.next()
		ch <- result{img, err}
	}()

	select {
	case <-ctx.Done():
		s.cancel()
		<-ch
		return nil, ctx.Err()
	case r := <-ch:
		return r.img, r.err
	}
}

func (s *httpSource) next() (image.Image, error) {
	if s.snapshot {
		if img := s.pending; img != nil {
			s.pending = nil
			return img, nil
		}
		resp, err := s.get()
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		img, _, err := image.Decode(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		return img, nil
	}

	part, err := s.parts.NextPart()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read stream part: %w", err)
	}
	defer part.Close()

	img, _, err := image.Decode(part)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

func (s *httpSource) Close() error {
	s.cancel()
	if s.body != nil {
		return s.body.Close()
	}
	return nil
}
