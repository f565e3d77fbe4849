package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"zapgoals/internal/domain"
)

func encodeJob(job domain.PublishJob) ([]byte, error) {
	if job.ID == "" {
		return nil, errors.New("publish job without id")
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	return payload, nil
}

func decodeJob(payload []byte) (domain.PublishJob, error) {
	var job domain.PublishJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return domain.PublishJob{}, fmt.Errorf("decode job: %w", err)
	}
	if job.ID == "" {
		return domain.PublishJob{}, errors.New("decode job: missing job_id")
	}
	return job, nil
}
