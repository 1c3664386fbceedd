// File path: internal/ingest/json.go
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nicodishanthj/talkdata/internal/common"
	"github.com/nicodishanthj/talkdata/internal/dataset"
)

// readJSON parses an array of flat objects. Column order follows the first
// object's key order; keys appearing only in later objects are appended.
func readJSON(r io.Reader) (dataset.Schema, []dataset.Row, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("read json: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, nil, errors.New("json upload must be an array of objects")
	}

	var columns []string
	index := make(map[string]int)
	var objects []map[string]any

	for dec.More() {
		object, order, err := decodeObject(dec)
		if err != nil {
			return nil, nil, err
		}
		for _, key := range order {
			if _, seen := index[key]; !seen {
				index[key] = len(columns)
				columns = append(columns, key)
			}
		}
		objects = append(objects, object)
	}
	if len(columns) == 0 {
		return nil, nil, errors.New("json array contains no objects")
	}

	records := make([][]string, len(objects))
	typed := make([][]any, len(objects))
	for i, object := range objects {
		record := make([]string, len(columns))
		cells := make([]any, len(columns))
		for j, key := range columns {
			value, ok := object[key]
			if !ok || value == nil {
				continue
			}
			cells[j] = value
			record[j] = fmt.Sprint(value)
		}
		records[i] = record
		typed[i] = cells
	}

	// Type inference runs over the string forms; typed cells carry numeric
	// precision through conversion.
	schema := make(dataset.Schema, len(columns))
	for j, name := range columns {
		schema[j] = dataset.Column{Name: name, Type: inferColumnType(records, j)}
	}
	rows := make([]dataset.Row, len(objects))
	for i := range objects {
		row := make(dataset.Row, len(columns))
		for j := range columns {
			row[j] = convertJSONCell(schema[j].Type, typed[i][j])
		}
		rows[i] = row
	}
	common.Logger().Debug("ingest: json file parsed", "rows", len(rows), "columns", len(schema))
	return schema, rows, nil
}

// convertJSONCell reconciles a typed JSON value with the inferred column
// type. The string fallback covers mismatches such as numeric strings in a
// text column.
func convertJSONCell(colType dataset.ColumnType, cell any) any {
	if cell == nil {
		return nil
	}
	switch colType {
	case dataset.TypeInteger:
		if v, ok := cell.(int64); ok {
			return v
		}
	case dataset.TypeFloat:
		switch v := cell.(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		}
	case dataset.TypeBoolean:
		if v, ok := cell.(bool); ok {
			return v
		}
	case dataset.TypeTimestamp, dataset.TypeText:
		if v, ok := cell.(string); ok {
			return v
		}
	}
	return fmt.Sprint(cell)
}

func decodeObject(dec *json.Decoder) (map[string]any, []string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("read json object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, errors.New("json array elements must be objects")
	}
	object := make(map[string]any)
	var order []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("read json key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, errors.New("invalid json object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("read json value for %q: %w", key, err)
		}
		value, err := decodeScalar(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("value for %q: %w", key, err)
		}
		object[key] = value
		order = append(order, key)
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return nil, nil, fmt.Errorf("read json object end: %w", err)
	}
	return object, order, nil
}

// decodeScalar interprets one JSON value; nested arrays and objects are kept
// as their raw text since the tabular model has no nested type.
func decodeScalar(raw json.RawMessage) (any, error) {
	sub := json.NewDecoder(bytes.NewReader(raw))
	sub.UseNumber()
	tok, err := sub.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case string:
		return v, nil
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return parsed, nil
		}
		if parsed, err := v.Float64(); err == nil {
			return parsed, nil
		}
		return v.String(), nil
	case json.Delim:
		return string(raw), nil
	default:
		return fmt.Sprint(v), nil
	}
}
