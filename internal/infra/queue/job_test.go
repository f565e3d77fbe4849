package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zapgoals/internal/domain"
)

func TestJobCodec(t *testing.T) {
	job := domain.PublishJob{
		ID:          "job-1",
		Attempt:     2,
		RequestedAt: time.Unix(1700000000, 0).UTC(),
		Event: domain.RawEvent{
			ID:        "abc",
			PubKey:    "pk",
			CreatedAt: 1700000000,
			Kind:      domain.KindGoal,
			Tags:      [][]string{{"d", "roof"}, {"amount", "1000"}},
			Content:   "{}",
			Sig:       "sig",
		},
	}
	payload, err := encodeJob(job)
	require.NoError(t, err)

	got, err := decodeJob(payload)
	require.NoError(t, err)
	require.True(t, job.RequestedAt.Equal(got.RequestedAt))
	got.RequestedAt = job.RequestedAt
	require.Equal(t, job, got)
}

func TestJobCodecRejectsMissingID(t *testing.T) {
	_, err := encodeJob(domain.PublishJob{})
	require.Error(t, err)

	_, err = decodeJob([]byte(`{"event":{"id":"x"}}`))
	require.Error(t, err)

	_, err = decodeJob([]byte(`not json`))
	require.Error(t, err)
}
