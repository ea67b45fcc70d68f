package opensearch

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mstgnz/vrpay/infra/config"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

const (
	indexPrefix = "vrpay-"
	systemIndex = indexPrefix + "system-logs"
)

// Client wraps the OpenSearch client
type Client struct {
	client *opensearch.Client
	config *config.AppConfig
}

// NewClient creates a new OpenSearch client. Exchange indices are created
// when logging is enabled.
func NewClient(cfg *config.AppConfig) (*Client, error) {
	opensearchConfig := opensearch.Config{
		Addresses: []string{cfg.OpenSearchURL},
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.Environment != "production",
			},
		},
		MaxRetries:    3,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			return time.Duration(i) * 100 * time.Millisecond
		},
	}

	if cfg.OpenSearchUser != "" && cfg.OpenSearchPass != "" {
		opensearchConfig.Username = cfg.OpenSearchUser
		opensearchConfig.Password = cfg.OpenSearchPass
	}

	client, err := opensearch.NewClient(opensearchConfig)
	if err != nil {
		return nil, err
	}

	osClient := &Client{
		client: client,
		config: cfg,
	}

	if cfg.EnableLogging {
		if err := osClient.setupIndices(context.Background()); err != nil {
			log.Printf("Warning: Failed to setup OpenSearch indices: %v", err)
		}
	}

	return osClient, nil
}

// GetClient returns the underlying OpenSearch client
func (c *Client) GetClient() *opensearch.Client {
	return c.client
}

// setupIndices creates the exchange index of both platforms
func (c *Client) setupIndices(ctx context.Context) error {
	for _, sandbox := range []bool{true, false} {
		indexName := c.GetLogIndexName(sandbox)

		exists, err := c.indexExists(ctx, indexName)
		if err != nil {
			return fmt.Errorf("checking index %s: %w", indexName, err)
		}
		if exists {
			continue
		}
		if err := c.createLogIndex(ctx, indexName); err != nil {
			return fmt.Errorf("creating index %s: %w", indexName, err)
		}
		log.Printf("Created OpenSearch index: %s", indexName)
	}
	return nil
}

// indexExists checks if an index exists
func (c *Client) indexExists(ctx context.Context, indexName string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{
		Index: []string{indexName},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	return res.StatusCode == http.StatusOK, nil
}

// createLogIndex creates an exchange index with its mapping
func (c *Client) createLogIndex(ctx context.Context, indexName string) error {
	mapping := `{
		"mappings": {
			"properties": {
				"timestamp": {"type": "date", "format": "strict_date_optional_time||epoch_millis"},
				"entity_id": {"type": "keyword"},
				"sandbox": {"type": "boolean"},
				"operation": {"type": "keyword"},
				"method": {"type": "keyword"},
				"url": {"type": "keyword"},
				"request_id": {"type": "keyword"},
				"merchant_transaction_id": {"type": "keyword"},
				"response": {
					"type": "object",
					"properties": {
						"status_code": {"type": "integer"},
						"headers": {"type": "object", "enabled": false},
						"body": {"type": "text"},
						"processing_time_ms": {"type": "integer"}
					}
				},
				"result": {
					"type": "object",
					"properties": {
						"code": {"type": "keyword"},
						"description": {"type": "text"},
						"outcome": {"type": "keyword"},
						"categories": {"type": "keyword"}
					}
				},
				"error": {
					"type": "object",
					"properties": {
						"code": {"type": "keyword"},
						"message": {"type": "text"}
					}
				}
			}
		},
		"settings": {
			"number_of_shards": 1,
			"number_of_replicas": 0
		}
	}`

	req := opensearchapi.IndicesCreateRequest{
		Index: indexName,
		Body:  strings.NewReader(mapping),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index creation error: %s", res.String())
	}

	return nil
}

// GetLogIndexName returns the exchange index of the test or live platform
func (c *Client) GetLogIndexName(sandbox bool) string {
	if sandbox {
		return indexPrefix + "test-exchanges"
	}
	return indexPrefix + "live-exchanges"
}

// IsEnabled returns whether OpenSearch logging is enabled
func (c *Client) IsEnabled() bool {
	return c.config.EnableLogging
}
