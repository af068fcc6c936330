package batch

import (
	"context"
	"encoding/json"
	"fmt"
)

// Item statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MaxItems bounds the number of items a single batch call may carry.
const MaxItems = 50

// Result represents the result of a single item in a batch
type Result struct {
	Index  int    `json:"index"`
	Status string `json:"status"` // "success" or "error"
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchResult represents the aggregated results of a batch operation
type BatchResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseObjects parses a parameter that is an object, an array of objects or
// a JSON encoded array of objects.
func ParseObjects(param any, paramName string) ([]map[string]any, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var items []any
	switch v := param.(type) {
	case map[string]any:
		return []map[string]any{v}, nil
	case []any:
		items = v
	case string:
		if err := json.Unmarshal([]byte(v), &items); err != nil {
			return nil, fmt.Errorf("%s must be an array of objects: %w", paramName, err)
		}
	default:
		return nil, fmt.Errorf("%s must be an object or an array of objects", paramName)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", paramName)
	}
	if len(items) > MaxItems {
		return nil, fmt.Errorf("%s has %d items, at most %d are allowed", paramName, len(items), MaxItems)
	}

	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be an object", paramName, i)
		}
		out = append(out, obj)
	}
	return out, nil
}

// Process runs fn on each item in order and collects one Result per item.
// Once ctx is done the remaining items fail with the context error.
func Process[T any](ctx context.Context, items []T, fn func(ctx context.Context, item T) (string, error)) []Result {
	results := make([]Result, 0, len(items))

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			results = append(results, NewErrorResult(i, err))
			continue
		}
		res, err := fn(ctx, item)
		if err != nil {
			results = append(results, NewErrorResult(i, err))
			continue
		}
		results = append(results, NewSuccessResult(i, res))
	}

	return results
}

// Summarize counts the results.
func Summarize(results []Result) BatchResult {
	br := BatchResult{
		Total:   len(results),
		Results: results,
	}
	for _, r := range results {
		if r.Status == StatusSuccess {
			br.Successful++
		} else {
			br.Failed++
		}
	}
	return br
}

// FormatResults creates a formatted JSON string from batch results
func FormatResults(results []Result) string {
	jsonBytes, _ := json.MarshalIndent(Summarize(results), "", "  ")
	return string(jsonBytes)
}

// NewSuccessResult creates a success result
func NewSuccessResult(index int, message string) Result {
	return Result{
		Index:  index,
		Status: StatusSuccess,
		Result: message,
	}
}

// NewErrorResult creates an error result
func NewErrorResult(index int, err error) Result {
	return Result{
		Index:  index,
		Status: StatusError,
		Error:  err.Error(),
	}
}
