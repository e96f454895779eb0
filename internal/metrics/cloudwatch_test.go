package metrics

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/assert"
)

func newTestCloudWatch(t *testing.T) (*Client, *atomic.Int32) {
	t.Helper()
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cw := cloudwatch.New(cloudwatch.Options{
		Region:           "us-east-1",
		BaseEndpoint:     aws.String(srv.URL),
		Credentials:      aws.AnonymousCredentials{},
		RetryMaxAttempts: 1,
	})
	return &Client{client: cw, enabled: true, environment: "production"}, &requests
}

func TestCloudWatchClient_RecordGeneration(t *testing.T) {
	client, requests := newTestCloudWatch(t)

	client.RecordGeneration("chord", "openai", 250*time.Millisecond, true)

	// One count datum and one duration datum
	assert.Eventually(t, func() bool { return requests.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestCloudWatchClient_RecordTokenUsage(t *testing.T) {
	client, requests := newTestCloudWatch(t)

	client.RecordTokenUsage("anthropic", "claude-3-opus-20240229", 120, 30)

	assert.Eventually(t, func() bool { return requests.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestCloudWatchClient_EnabledWithoutClient(t *testing.T) {
	client := &Client{enabled: true, environment: "production"}

	assert.True(t, client.Enabled())
	assert.NotPanics(t, func() {
		client.RecordGeneration("melody", "gemini", time.Second, false)
		client.RecordTokenUsage("gemini", "gemini-pro", 1, 1)
	})
	assert.NoError(t, client.putMetric(t.Context(), "Generations", 1, "Count", nil))
}

func TestCloudWatchClient_Dimensions(t *testing.T) {
	client := &Client{environment: "staging"}

	dims := client.dimensions()
	if assert.Len(t, dims, 1) {
		assert.Equal(t, "Environment", aws.ToString(dims[0].Name))
		assert.Equal(t, "staging", aws.ToString(dims[0].Value))
	}
}
