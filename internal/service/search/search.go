package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/medstore/api/internal/models"
)

// Search runs a fuzzy name/description query over the medicine index. When
// rxOnly is non-nil the results are filtered on the requires_prescription flag.
func Search(ctx context.Context, es *elasticsearch.Client, index, query string, rxOnly *bool, from, size int) (int64, []models.Product, error) {
	must := []map[string]interface{}{
		{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
	}

	boolQuery := map[string]interface{}{"must": must}
	if rxOnly != nil {
		boolQuery["filter"] = []map[string]interface{}{
			{"term": map[string]interface{}{"requires_prescription": *rxOnly}},
		}
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"from":  from,
		"size":  size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	prods := make([]models.Product, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		prods[i] = hit.Source
	}
	return r.Hits.Total.Value, prods, nil
}
