package fingerprint

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"os"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"golang.org/x/sync/singleflight"
)

// ErrNoFace is returned when a face crop yields no embedding.
var ErrNoFace = errors.New("no face found")

// FaceService detects faces in frames and verifies them against reference
// images using embeddings from the embedding server. Reference embeddings
// are cached in memory and, when a store is set, persisted across runs.
type FaceService struct {
	client *Client
	store  database.ReferenceStore

	mu    sync.RWMutex
	refs  map[string]*database.ReferenceEmbedding
	group singleflight.Group
}

// NewFaceService creates a face service. store may be nil.
func NewFaceService(client *Client, store database.ReferenceStore) *FaceService {
	return &FaceService{
		client: client,
		store:  store,
		refs:   make(map[string]*database.ReferenceEmbedding),
	}
}

// Detect returns every face in frame large enough to verify, with its
// cropped image and embedding.
func (s *FaceService) Detect(ctx context.Context, frame image.Image) ([]attendance.Detection, error) {
	data, err := encodeJPEG(frame)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DetectFaces(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	detections := make([]attendance.Detection, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		box := facematch.BBoxToRect(f.BBox, frame.Bounds())
		if box.Empty() || box.Dx() < constants.MinFaceWidthPx {
			continue
		}
		detections = append(detections, attendance.Detection{
			Box:   box,
			Score: f.DetScore,
			Face: attendance.Face{
				Image:     facematch.Crop(frame, box),
				Embedding: f.Embedding,
			},
		})
	}
	return detections, nil
}

// Prepare computes the embedding of a face crop that has none yet.
func (s *FaceService) Prepare(ctx context.Context, face *attendance.Face) error {
	if len(face.Embedding) > 0 {
		return nil
	}
	if face.Image == nil {
		return ErrNoFace
	}

	data, err := encodeJPEG(face.Image)
	if err != nil {
		return err
	}
	resp, err := s.client.DetectFaces(ctx, data)
	if err != nil {
		return fmt.Errorf("embed face: %w", err)
	}
	best := resp.Best()
	if best == nil {
		return ErrNoFace
	}
	face.Embedding = best.Embedding
	return nil
}

// Verify returns the cosine distance between face and the face in the
// reference image. A reference without a face is maximally distant; an
// unreadable reference is an error.
func (s *FaceService) Verify(ctx context.Context, face attendance.Face, referencePath string) (float64, error) {
	ref, err := s.Reference(ctx, referencePath)
	if err != nil {
		return 0, err
	}
	if !ref.HasFace() {
		return constants.MaxDistance, nil
	}

	if len(face.Embedding) == 0 {
		if err := s.Prepare(ctx, &face); err != nil {
			return 0, err
		}
	}
	return database.CosineDistance(face.Embedding, ref.Embedding), nil
}

// Reference returns the embedding of a reference image, computing it on first
// use. Concurrent requests for the same path share one computation.
func (s *FaceService) Reference(ctx context.Context, path string) (*database.ReferenceEmbedding, error) {
	s.mu.RLock()
	ref, ok := s.refs[path]
	s.mu.RUnlock()
	if ok {
		return ref, nil
	}

	v, err, _ := s.group.Do(path, func() (any, error) {
		ref, err := s.loadReference(ctx, path)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.refs[path] = ref
		s.mu.Unlock()
		return ref, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*database.ReferenceEmbedding), nil
}

func (s *FaceService) loadReference(ctx context.Context, path string) (*database.ReferenceEmbedding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference: %w", err)
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if s.store != nil {
		stored, err := s.store.Get(ctx, path)
		if err != nil {
			log.Printf("Warning: reference store lookup for %s failed: %v", path, err)
		} else if stored != nil && stored.ContentHash == hash {
			return stored, nil
		}
	}

	resp, err := s.client.DetectFaces(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("embed reference: %w", err)
	}

	ref := &database.ReferenceEmbedding{
		Path:        path,
		ContentHash: hash,
		Model:       resp.Model,
	}
	if best := resp.Best(); best != nil {
		ref.Embedding = best.Embedding
		ref.DetScore = best.DetScore
		ref.Dim = len(best.Embedding)
	} else {
		log.Printf("Warning: no face found in reference %s", path)
	}

	if s.store != nil {
		if err := s.store.Save(ctx, ref); err != nil {
			log.Printf("Warning: failed to store reference %s: %v", path, err)
		}
	}
	return ref, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: constants.DetectJPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	_ attendance.Verifier     = (*FaceService)(nil)
	_ attendance.FacePreparer = (*FaceService)(nil)
)
