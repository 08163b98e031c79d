package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/imroc/req/v3"
)

const (
	fetchTimeout = 10 * time.Second
	fetchRetries = 2
)

// HTTPSource fetches snapshots from an HTTP endpoint.
type HTTPSource struct {
	url    string
	client *req.Client
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		url: url,
		client: req.C().
			SetTimeout(fetchTimeout).
			SetCommonRetryCount(fetchRetries),
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]Event, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("accept", "application/json").
		Get(s.url)
	if err != nil {
		return nil, err
	}
	if resp.IsErrorState() {
		return nil, fmt.Errorf("snapshot fetch failed: %s", resp.Status)
	}
	return Events(resp.Bytes())
}
