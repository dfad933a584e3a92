package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	goredis "github.com/redis/go-redis/v9"
)

const previewKeyPrefix = "payroll:preview:"

type previewStore struct {
	client goredis.UniversalClient
}

// NewPreviewStore keeps batch previews as JSON values that expire on their own.
func NewPreviewStore(client goredis.UniversalClient) payroll.PreviewStore {
	return &previewStore{client: client}
}

func previewKey(runID string) string {
	return previewKeyPrefix + runID
}

// Save implements payroll.PreviewStore.
func (s *previewStore) Save(ctx context.Context, preview payroll.BatchPreview, ttl time.Duration) error {
	data, err := json.Marshal(preview)
	if err != nil {
		return fmt.Errorf("failed to encode payroll preview: %w", err)
	}

	if err := s.client.Set(ctx, previewKey(preview.RunID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store payroll preview %s: %w", preview.RunID, err)
	}
	return nil
}

// Get implements payroll.PreviewStore.
func (s *previewStore) Get(ctx context.Context, runID string) (payroll.BatchPreview, error) {
	data, err := s.client.Get(ctx, previewKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return payroll.BatchPreview{}, payroll.ErrPreviewNotFound
		}
		return payroll.BatchPreview{}, fmt.Errorf("failed to load payroll preview %s: %w", runID, err)
	}

	var preview payroll.BatchPreview
	if err := json.Unmarshal(data, &preview); err != nil {
		return payroll.BatchPreview{}, fmt.Errorf("failed to decode payroll preview %s: %w", runID, err)
	}
	return preview, nil
}

// Delete implements payroll.PreviewStore.
func (s *previewStore) Delete(ctx context.Context, runID string) error {
	if err := s.client.Del(ctx, previewKey(runID)).Err(); err != nil {
		return fmt.Errorf("failed to delete payroll preview %s: %w", runID, err)
	}
	return nil
}
