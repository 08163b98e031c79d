package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"

	"github.com/moonwalker/linewatch/pkg/alerts"
)

// Firing is one delivered alert, kept for audit.
type Firing struct {
	Alert   string         `json:"alert"`
	EventID string         `json:"event_id"`
	Payload alerts.Payload `json:"payload,omitempty"`
	Message string         `json:"message"`
	At      time.Time      `json:"at"`
}

// Recorder keeps the audit trail of delivered alerts. Recording is
// best-effort: a failed write is logged by the caller and never affects
// delivery or seen state.
type Recorder interface {
	Record(ctx context.Context, f *Firing) error
	Close() error
}

const indexPrefix = "alert-firings-"

// Elastic writes one document per firing into a daily index.
type Elastic struct {
	es *elasticsearch.Client
}

// NewElastic connects to the given addresses, or with the default
// client config (ELASTICSEARCH_URL) when none are given.
func NewElastic(addresses ...string) (*Elastic, error) {
	if len(addresses) == 0 {
		es, err := elasticsearch.NewDefaultClient()
		if err != nil {
			return nil, err
		}
		return &Elastic{es: es}, nil
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, err
	}
	return &Elastic{es: es}, nil
}

func (e *Elastic) Record(ctx context.Context, f *Firing) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      IndexFor(f.At),
		DocumentID: DocumentID(f),
		Body:       bytes.NewReader(b),
	}
	res, err := req.Do(ctx, e.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index firing: %s", res.Status())
	}

	return nil
}

func (e *Elastic) Close() error {
	return nil
}

// IndexFor names the daily index a firing lands in.
func IndexFor(at time.Time) string {
	return indexPrefix + at.UTC().Format("20060102")
}

// DocumentID keys the document so the same alert and event pair
// overwrites itself instead of duplicating.
func DocumentID(f *Firing) string {
	return f.Alert + ":" + f.EventID
}
