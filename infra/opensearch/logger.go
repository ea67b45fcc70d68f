package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// ExchangeLog is one archived round trip with the gateway
type ExchangeLog struct {
	Timestamp             time.Time   `json:"timestamp"`
	EntityID              string      `json:"entity_id"`
	Sandbox               bool        `json:"sandbox"`
	Operation             string      `json:"operation"`
	Method                string      `json:"method"`
	URL                   string      `json:"url"`
	RequestID             string      `json:"request_id,omitempty"`
	MerchantTransactionID string      `json:"merchant_transaction_id,omitempty"`
	Response              ResponseLog `json:"response"`
	Result                ResultInfo  `json:"result,omitempty"`
	Error                 ErrorInfo   `json:"error,omitempty"`
}

// ResponseLog represents response details
type ResponseLog struct {
	StatusCode       int               `json:"status_code"`
	Headers          map[string]string `json:"headers,omitempty"`
	Body             string            `json:"body,omitempty"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
}

// ResultInfo is the classified result code of an exchange
type ResultInfo struct {
	Code        string   `json:"code,omitempty"`
	Description string   `json:"description,omitempty"`
	Outcome     string   `json:"outcome,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Logger handles OpenSearch logging operations
type Logger struct {
	client *Client
}

// NewLogger creates a new OpenSearch logger
func NewLogger(client *Client) *Logger {
	return &Logger{
		client: client,
	}
}

// LogExchange indexes a gateway exchange
func (l *Logger) LogExchange(ctx context.Context, log ExchangeLog) error {
	if !l.client.IsEnabled() {
		return nil
	}

	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}

	return l.index(ctx, l.client.GetLogIndexName(log.Sandbox), log)
}

// LogSystemEvent logs a system event to OpenSearch
func (l *Logger) LogSystemEvent(ctx context.Context, log any) error {
	if !l.client.IsEnabled() {
		return nil
	}
	return l.index(ctx, systemIndex, log)
}

func (l *Logger) index(ctx context.Context, indexName string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal log: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: indexName,
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index log: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s", res.String())
	}

	return nil
}

// search posts body to the exchange index of the platform and decodes the answer into out
func (l *Logger) search(ctx context.Context, sandbox bool, body map[string]any, out any) error {
	if !l.client.IsEnabled() {
		return fmt.Errorf("logging is disabled")
	}

	queryJSON, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{l.client.GetLogIndexName(sandbox)},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch search error: %s", res.String())
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode search results: %w", err)
	}
	return nil
}

// sinceHours matches exchanges indexed during the last hours
func sinceHours(hours int) map[string]any {
	return map[string]any{
		"range": map[string]any{
			"timestamp": map[string]any{"gte": fmt.Sprintf("now-%dh", hours)},
		},
	}
}

var hasError = map[string]any{"exists": map[string]any{"field": "error.code"}}

// SearchExchanges runs query against the exchange index, newest first
func (l *Logger) SearchExchanges(ctx context.Context, sandbox bool, query map[string]any) ([]ExchangeLog, error) {
	body := map[string]any{
		"query": query,
		"sort":  []map[string]any{{"timestamp": map[string]string{"order": "desc"}}},
		"size":  100,
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source ExchangeLog `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := l.search(ctx, sandbox, body, &result); err != nil {
		return nil, err
	}

	logs := make([]ExchangeLog, len(result.Hits.Hits))
	for i, hit := range result.Hits.Hits {
		logs[i] = hit.Source
	}
	return logs, nil
}

// GetTransactionExchanges returns the exchanges of one merchant transaction id
func (l *Logger) GetTransactionExchanges(ctx context.Context, sandbox bool, merchantTransactionID string) ([]ExchangeLog, error) {
	return l.SearchExchanges(ctx, sandbox, map[string]any{
		"term": map[string]any{"merchant_transaction_id": merchantTransactionID},
	})
}

// GetRecentErrorExchanges returns failed exchanges of the last hours
func (l *Logger) GetRecentErrorExchanges(ctx context.Context, sandbox bool, hours int) ([]ExchangeLog, error) {
	return l.SearchExchanges(ctx, sandbox, map[string]any{
		"bool": map[string]any{
			"must": []map[string]any{sinceHours(hours), hasError},
		},
	})
}

func termsAgg(field string) map[string]any {
	return map[string]any{"terms": map[string]any{"field": field, "size": 10}}
}

// GetExchangeStats aggregates the exchanges of the last hours by operation,
// outcome and status code
func (l *Logger) GetExchangeStats(ctx context.Context, sandbox bool, hours int) (map[string]any, error) {
	body := map[string]any{
		"query": sinceHours(hours),
		"aggs": map[string]any{
			"operations":          termsAgg("operation"),
			"outcomes":            termsAgg("result.outcome"),
			"status_codes":        termsAgg("response.status_code"),
			"error_count":         map[string]any{"filter": hasError},
			"avg_processing_time": map[string]any{"avg": map[string]any{"field": "response.processing_time_ms"}},
		},
		"size": 0,
	}

	var result map[string]any
	if err := l.search(ctx, sandbox, body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

var sensitiveFields = []string{
	"cardNumber", "card_number", "cvv", "cvc", "holder", "iban", "number",
	"apiKey", "api_key", "secretKey", "secret_key", "password", "token", "bearerToken",
	"authorization", "x-api-key", "x-secret-key",
}

var sensitivePatterns = compileSensitivePatterns()

type sensitivePattern struct {
	re          *regexp.Regexp
	replacement string
}

func compileSensitivePatterns() []sensitivePattern {
	var out []sensitivePattern
	for _, field := range sensitiveFields {
		replacement := fmt.Sprintf(`"%s":"***REDACTED***"`, field)
		for _, pattern := range []string{
			fmt.Sprintf(`"%s"\s*:\s*"[^"]*"`, regexp.QuoteMeta(field)),
			fmt.Sprintf(`"%s"\s*:\s*'[^']*'`, regexp.QuoteMeta(field)),
		} {
			out = append(out, sensitivePattern{regexp.MustCompile(pattern), replacement})
		}
		out = append(out, sensitivePattern{
			regexp.MustCompile(fmt.Sprintf(`\b%s=[^&\s]+`, regexp.QuoteMeta(field))),
			field + "=***REDACTED***",
		})
	}
	return out
}

// SanitizeForLog removes sensitive information from data before logging
func SanitizeForLog(data string) string {
	result := data
	for _, p := range sensitivePatterns {
		result = p.re.ReplaceAllString(result, p.replacement)
	}
	return result
}
