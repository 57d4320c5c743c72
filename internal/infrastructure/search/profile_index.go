// Package search indexes billing profiles in Elasticsearch for back-office review.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/organizer-billing/internal/domain/entity"
	"github.com/oksasatya/organizer-billing/pkg/helpers"
)

const requestTimeout = 3 * time.Second

// ProfileDoc is the indexed view of a profile. Bank data and documents are
// never indexed.
type ProfileDoc struct {
	UserID               string    `json:"user_id"`
	EntityType           string    `json:"entity_type"`
	DisplayName          string    `json:"display_name"`
	IdentificationNumber string    `json:"identification_number"`
	ContactEmail         string    `json:"contact_email"`
	City                 string    `json:"city"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type ProfileIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewProfileIndex(es *elasticsearch.Client, index string) *ProfileIndex {
	return &ProfileIndex{es: es, index: index}
}

func NewProfileDoc(p *entity.BillingProfile) ProfileDoc {
	doc := ProfileDoc{
		UserID:       p.UserID,
		EntityType:   string(p.EntityType()),
		ContactEmail: p.Contact.Email,
		City:         p.Address.City,
		UpdatedAt:    p.UpdatedAt.UTC(),
	}
	if p.Identity != nil {
		doc.DisplayName = p.Identity.DisplayName()
		doc.IdentificationNumber = p.Identity.IdentificationNumber()
	}
	return doc
}

const profileMapping = `{
  "mappings": {
    "properties": {
      "user_id":               {"type": "keyword"},
      "entity_type":           {"type": "keyword"},
      "display_name":          {"type": "text"},
      "identification_number": {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "contact_email":         {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "city":                  {"type": "text"},
      "updated_at":            {"type": "date"}
    }
  }
}`

// EnsureIndex creates the profile index with its mapping on first start.
func (x *ProfileIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return helpers.EnsureIndex(c, x.es, x.index, []byte(profileMapping))
}

// IndexProfile upserts the profile document keyed by user id.
func (x *ProfileIndex) IndexProfile(ctx context.Context, p *entity.BillingProfile) error {
	b, err := json.Marshal(NewProfileDoc(p))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.index, DocumentID: p.UserID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index profile %s: %s", p.UserID, res.Status())
	}
	return nil
}

// Search runs a multi_match over name, identification number, email and city.
func (x *ProfileIndex) Search(ctx context.Context, q string, size int) ([]ProfileDoc, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"display_name^2", "identification_number^2", "contact_email", "city"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := x.es.Search(x.es.Search.WithContext(c), x.es.Search.WithIndex(x.index), x.es.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search profiles: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string     `json:"_id"`
				Source ProfileDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]ProfileDoc, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
