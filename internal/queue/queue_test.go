package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 4, BaseDelay: 5 * time.Second}

	assert.Equal(t, 5*time.Second, policy.Backoff(1))
	assert.Equal(t, 10*time.Second, policy.Backoff(2))
	assert.Equal(t, 20*time.Second, policy.Backoff(3))
}

func TestRetryPolicy_ZeroValue(t *testing.T) {
	var policy RetryPolicy

	assert.Equal(t, 1, policy.attempts())
	assert.Equal(t, time.Duration(0), policy.Backoff(1))
}

func TestNewJob_Envelope(t *testing.T) {
	job, envelope, err := newJob(TopicAuditWrite, map[string]string{"k": "v"})

	assert.NoError(t, err)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", job.ID.String())
	assert.Equal(t, TopicAuditWrite, job.Topic)
	assert.False(t, job.EnqueuedAt.IsZero())
	assert.JSONEq(t, `{"k":"v"}`, string(job.Payload))
	assert.Contains(t, string(envelope), job.ID.String())
}

func TestTopics_CoverEveryJobFamily(t *testing.T) {
	assert.ElementsMatch(t, []string{
		TopicAuditWrite, TopicAlertEvaluate, TopicWebhookSend, TopicRetentionDelete,
	}, Topics())
	assert.True(t, SerialTopics()[TopicRetentionDelete])
	assert.False(t, SerialTopics()[TopicAuditWrite])
}
