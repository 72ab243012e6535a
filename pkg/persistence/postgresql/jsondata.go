package postgresql

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// PostgreSQL error codes mapped to store sentinels.
const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

func isPQError(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == code
}

func encodeData(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record data: %w", err)
	}

	return encoded, nil
}

// decodeData unmarshals a jsonb object keeping integral numbers as int64.
func decodeData(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	v, err := decodeValue(raw)
	if err != nil {
		return nil, err
	}

	data, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("record data is %T, not an object", v)
	}

	return data, nil
}

func decodeValue(raw []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var v any
	if err := decoder.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal jsonb value: %w", err)
	}

	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if !strings.ContainsAny(t.String(), ".eE") {
			if i, err := t.Int64(); err == nil {
				return i
			}
		}

		f, _ := t.Float64()

		return f
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeNumbers(item)
		}

		return t
	case []any:
		for i, item := range t {
			t[i] = normalizeNumbers(item)
		}

		return t
	default:
		return v
	}
}
