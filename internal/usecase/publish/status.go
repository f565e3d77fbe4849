package publish

import (
	"errors"
	"time"

	"zapgoals/internal/domain"
)

const statusTTL = 24 * time.Hour

// statusBook keeps the delivery state of publish jobs in the cache.
type statusBook struct {
	cache domain.Cache
}

func statusKey(jobID string) string {
	return "zapgoals:publish:" + jobID
}

func (b statusBook) set(jobID string, status domain.PublishJobStatus) error {
	if b.cache == nil {
		return nil
	}
	return b.cache.Set(statusKey(jobID), []byte(status), statusTTL)
}

func (b statusBook) get(jobID string) (domain.PublishJobStatus, error) {
	if b.cache == nil {
		return "", domain.ErrJobNotFound
	}
	raw, err := b.cache.Get(statusKey(jobID))
	if errors.Is(err, domain.ErrCacheMiss) {
		return "", domain.ErrJobNotFound
	}
	if err != nil {
		return "", err
	}
	return domain.PublishJobStatus(raw), nil
}
