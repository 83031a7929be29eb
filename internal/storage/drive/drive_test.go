package drive

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAuth struct {
	calls atomic.Int32
}

func (a *countingAuth) Client(ctx context.Context) (*http.Client, error) {
	a.calls.Add(1)
	return http.DefaultClient, nil
}

func TestBackend_ServiceInitIsSingleFlight(t *testing.T) {
	auth := &countingAuth{}
	backend := New(auth, "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc, err := backend.service(context.Background())
			assert.NoError(t, err)
			assert.NotNil(t, svc)
		}()
	}
	wg.Wait()

	// 50 concurrent first uses must trigger exactly one handshake.
	assert.Equal(t, int32(1), auth.calls.Load())
}

func TestPublicURL(t *testing.T) {
	url := PublicURL("abc123")
	assert.Equal(t, "https://drive.google.com/uc?export=view&id=abc123", url)
}

func TestExtractFileID(t *testing.T) {
	tests := []struct {
		name   string
		handle string
		want   string
	}{
		{"view url", "https://drive.google.com/uc?export=view&id=abc123", "abc123"},
		{"id not last", "https://drive.google.com/uc?id=abc123&export=view", "abc123"},
		{"round trip", PublicURL("xyz-789"), "xyz-789"},
		{"no id", "https://drive.google.com/file/d/preview", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFileID(tt.handle))
		})
	}
}

func TestBackend_DeleteEmptyHandleIsNoop(t *testing.T) {
	backend := New(&countingAuth{}, "")
	require.NoError(t, backend.Delete(context.Background(), ""))
	require.NoError(t, backend.Delete(context.Background(), "/local/path.pdf"))
}
