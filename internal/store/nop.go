package store

import (
	"context"

	"github.com/amishk599/autocareer/internal/model"
)

// NopStore is a no-op job store used in dry-run mode. Nothing is persisted,
// so every listing appears new on each scan.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) Exists(ctx context.Context, url string) (bool, error) { return false, nil }
func (s *NopStore) Insert(ctx context.Context, job model.Job) (model.Job, error) {
	return job, nil
}
