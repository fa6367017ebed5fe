package resource

import (
	"context"

	"github.com/hupe1980/mrpt/blobstore"
)

// ThrottleStore returns a blobstore.Store whose reads and writes are paced
// by the controller's I/O limit. A nil controller returns s unchanged.
func ThrottleStore(s blobstore.Store, c *Controller) blobstore.Store {
	if c == nil || c.ioLimiter == nil {
		return s
	}
	return &throttledStore{Store: s, rc: c}
}

type throttledStore struct {
	blobstore.Store
	rc *Controller
}

func (s *throttledStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	b, err := s.Store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &throttledBlob{Blob: b, rc: s.rc}, nil
}

func (s *throttledStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.rc.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	return s.Store.Put(ctx, name, data)
}

// throttledBlob deliberately hides Mappable so every byte is paced.
type throttledBlob struct {
	blobstore.Blob
	rc *Controller
}

func (b *throttledBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := b.rc.AcquireIO(ctx, len(p)); err != nil {
		return 0, err
	}
	return b.Blob.ReadAt(ctx, p, off)
}
