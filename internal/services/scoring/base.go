package scoring

import (
	"context"
	"fmt"
	"time"

	xhttp "CoinScope/pkg/http"
)

// retryBase spaces retry n of a model-service call by n*retryBase.
const retryBase = 50 * time.Millisecond

// HTTPServiceBase centralizes client construction and JSON POST handling for
// the external model services.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
}

func NewHTTPServiceBase(baseURL string, timeout time.Duration) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPServiceBase{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// PostJSON posts the payload to `path` under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("model service client not initialized")
	}
	opts := &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Body:   payload,
	}
	if err := b.client.SendAndParse(ctx, opts, dest); err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// PostJSONWithRetry posts JSON with up to `attempts` tries, backing off
// linearly between them. Cancelling ctx aborts the wait.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload, dest interface{}, attempts int) error {
	var err error
	for n := 1; ; n++ {
		if err = b.PostJSON(ctx, path, payload, dest); err == nil || n >= attempts {
			return err
		}
		t := time.NewTimer(time.Duration(n) * retryBase)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}
