package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	elastic "github.com/elastic/go-elasticsearch/v8"

	"github.com/banking/muling-detector/internal/config"
	"github.com/banking/muling-detector/internal/report"
)

// ringDocument is the Elasticsearch-indexed shape of a fraud ring,
// tagged with the run it came from so rings stay searchable across runs.
type ringDocument struct {
	RunID string `json:"run_id"`
	report.FraudRingEntry
}

// RingSearchRepository indexes and searches fraud-ring evidence.
type RingSearchRepository struct {
	client *elastic.Client
	index  string
}

// NewRingSearchRepository creates a new ring search repository.
func NewRingSearchRepository(cfg config.ElasticsearchConfig) (*RingSearchRepository, error) {
	client, err := elastic.NewClient(elastic.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	if _, err := client.Info(); err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}

	return &RingSearchRepository{
		client: client,
		index:  cfg.Index,
	}, nil
}

// IndexRing indexes one fraud ring for search, using the ring id as
// the document id so repeated indexing of the same ring is idempotent.
func (r *RingSearchRepository) IndexRing(ctx context.Context, runID string, ring report.FraudRingEntry) error {
	doc := ringDocument{RunID: runID, FraudRingEntry: ring}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal ring: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(data),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(ring.RingID),
	)
	if err != nil {
		return fmt.Errorf("failed to index ring: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// SearchRings performs a query_string search over indexed rings (e.g.
// "pattern:\"Circular Fund Routing\" AND involved_accounts:ACC123").
func (r *RingSearchRepository) SearchRings(ctx context.Context, query string, from, size int) ([]report.FraudRingEntry, int64, error) {
	esQuery := map[string]interface{}{
		"from": from,
		"size": size,
		"query": map[string]interface{}{
			"query_string": map[string]interface{}{
				"query": query,
			},
		},
		"sort": []map[string]interface{}{
			{"risk_score": "desc"},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, 0, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to perform search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("elasticsearch search error: %s", res.String())
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, 0, fmt.Errorf("failed to decode response: %w", err)
	}

	hitsMap, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, 0, nil
	}

	var total int64
	if totalMap, ok := hitsMap["total"].(map[string]interface{}); ok {
		if val, ok := totalMap["value"].(float64); ok {
			total = int64(val)
		}
	}

	hitsList, ok := hitsMap["hits"].([]interface{})
	if !ok {
		return nil, total, nil
	}

	var rings []report.FraudRingEntry
	for _, hit := range hitsList {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}

		sourceBytes, err := json.Marshal(source)
		if err != nil {
			continue
		}
		var doc ringDocument
		if err := json.Unmarshal(sourceBytes, &doc); err == nil {
			rings = append(rings, doc.FraudRingEntry)
		}
	}

	return rings, total, nil
}
