// File path: internal/ingest/ingest_test.go
package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/nicodishanthj/talkdata/internal/dataset"
)

func TestDetectByExtension(t *testing.T) {
	cases := map[string]Format{
		"orders.csv":  FormatCSV,
		"ORDERS.CSV":  FormatCSV,
		"orders.tsv":  FormatTSV,
		"orders.txt":  FormatTSV,
		"orders.json": FormatJSON,
	}
	for filename, want := range cases {
		got, err := Detect(filename)
		if err != nil {
			t.Fatalf("Detect(%q): %v", filename, err)
		}
		if got != want {
			t.Fatalf("Detect(%q) = %s, want %s", filename, got, want)
		}
	}
	if _, err := Detect("orders.parquet"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestReadTableCSVInfersTypes(t *testing.T) {
	input := "region,amount,count,active,ordered_at\n" +
		"north,10.5,3,true,2024-01-01\n" +
		"south,7.25,2,false,2024-01-02\n" +
		"east,,1,true,\n"
	schema, rows, err := ReadTable(FormatCSV, strings.NewReader(input))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	wantTypes := []dataset.ColumnType{
		dataset.TypeText,
		dataset.TypeFloat,
		dataset.TypeInteger,
		dataset.TypeBoolean,
		dataset.TypeTimestamp,
	}
	if len(schema) != len(wantTypes) {
		t.Fatalf("expected %d columns, got %d", len(wantTypes), len(schema))
	}
	for i, want := range wantTypes {
		if schema[i].Type != want {
			t.Fatalf("column %s: expected %s, got %s", schema[i].Name, want, schema[i].Type)
		}
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][1] != 10.5 {
		t.Fatalf("amount not typed: %v (%T)", rows[0][1], rows[0][1])
	}
	if rows[0][2] != int64(3) {
		t.Fatalf("count not typed: %v (%T)", rows[0][2], rows[0][2])
	}
	if rows[0][3] != true {
		t.Fatalf("active not typed: %v (%T)", rows[0][3], rows[0][3])
	}
	if rows[2][1] != nil || rows[2][4] != nil {
		t.Fatalf("empty cells should be nil: %v", rows[2])
	}
}

func TestReadTableSniffsSemicolonDelimiter(t *testing.T) {
	input := "region;amount\nnorth;10\nsouth;20\n"
	schema, rows, err := ReadTable(FormatCSV, strings.NewReader(input))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(schema) != 2 || schema[0].Name != "region" {
		t.Fatalf("delimiter not sniffed: %v", schema)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestReadTableTSV(t *testing.T) {
	input := "region\tamount\nnorth\t10\n"
	schema, rows, err := ReadTable(FormatTSV, strings.NewReader(input))
	if err != nil {
		t.Fatalf("read tsv: %v", err)
	}
	if len(schema) != 2 || len(rows) != 1 {
		t.Fatalf("unexpected shape: %d columns, %d rows", len(schema), len(rows))
	}
}

func TestReadTableRejectsRaggedRows(t *testing.T) {
	input := "a,b\n1,2\n3\n"
	if _, _, err := ReadTable(FormatCSV, strings.NewReader(input)); err == nil {
		t.Fatalf("expected field count error")
	}
}

func TestReadTableRejectsEmptyFile(t *testing.T) {
	if _, _, err := ReadTable(FormatCSV, strings.NewReader("")); err == nil {
		t.Fatalf("expected empty file error")
	}
}

func TestNormalizeHeaderFillsBlankColumns(t *testing.T) {
	input := "a,,c\n1,2,3\n"
	schema, _, err := ReadTable(FormatCSV, strings.NewReader(input))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if schema[1].Name != "column_2" {
		t.Fatalf("blank header not filled: %v", schema.Names())
	}
}

func TestReadTableJSONPreservesKeyOrder(t *testing.T) {
	input := `[
		{"region": "north", "amount": 10.5, "count": 3},
		{"region": "south", "amount": 7, "count": 2, "note": "late"}
	]`
	schema, rows, err := ReadTable(FormatJSON, strings.NewReader(input))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	wantNames := []string{"region", "amount", "count", "note"}
	for i, want := range wantNames {
		if schema[i].Name != want {
			t.Fatalf("column %d = %s, want %s", i, schema[i].Name, want)
		}
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][3] != nil {
		t.Fatalf("missing key should be nil, got %v", rows[0][3])
	}
	if rows[1][3] != "late" {
		t.Fatalf("late note lost: %v", rows[1][3])
	}
}

func TestReadTableJSONNumbers(t *testing.T) {
	input := `[{"count": 3, "ratio": 0.5}, {"count": 4, "ratio": 1.25}]`
	schema, rows, err := ReadTable(FormatJSON, strings.NewReader(input))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if schema[0].Type != dataset.TypeInteger || schema[1].Type != dataset.TypeFloat {
		t.Fatalf("unexpected types: %v, %v", schema[0].Type, schema[1].Type)
	}
	if rows[0][0] != int64(3) {
		t.Fatalf("count not int64: %v (%T)", rows[0][0], rows[0][0])
	}
	if rows[1][1] != 1.25 {
		t.Fatalf("ratio not float64: %v (%T)", rows[1][1], rows[1][1])
	}
}

func TestReadTableJSONRejectsNonArray(t *testing.T) {
	if _, _, err := ReadTable(FormatJSON, strings.NewReader(`{"a": 1}`)); err == nil {
		t.Fatalf("expected error for non-array input")
	}
	if _, _, err := ReadTable(FormatJSON, strings.NewReader(`[]`)); err == nil {
		t.Fatalf("expected error for empty array")
	}
}
