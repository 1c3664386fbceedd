// File path: internal/dataset/types_test.go
package dataset

import (
	"testing"
)

func TestTableNameSanitizesSourceNames(t *testing.T) {
	cases := map[string]string{
		"orders.csv":        "orders",
		"Orders 2024.csv":   "orders_2024",
		"sales-data.json":   "sales_data",
		"2024 report.csv":   "t_2024_report",
		"  weird!!name.tsv": "weird__name",
		"...":               "data",
	}
	for input, want := range cases {
		if got := TableName(input); got != want {
			t.Fatalf("TableName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSchemaValidate(t *testing.T) {
	good := Schema{{Name: "a", Type: TypeText}, {Name: "b", Type: TypeInteger}}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid schema rejected: %v", err)
	}
	cases := []Schema{
		{},
		{{Name: "", Type: TypeText}},
		{{Name: "a", Type: "decimal"}},
		{{Name: "a", Type: TypeText}, {Name: "A", Type: TypeText}},
	}
	for i, schema := range cases {
		if err := schema.Validate(); err == nil {
			t.Fatalf("case %d: invalid schema accepted", i)
		}
	}
}

func TestParseTimeLayouts(t *testing.T) {
	accepted := []string{
		"2024-01-02T15:04:05Z",
		"2024-01-02 15:04:05",
		"2024-01-02",
		"01/02/2024",
	}
	for _, value := range accepted {
		if _, ok := ParseTime(value); !ok {
			t.Fatalf("ParseTime(%q) should succeed", value)
		}
	}
	for _, value := range []string{"", "north", "10.5", "2024-13-45"} {
		if _, ok := ParseTime(value); ok {
			t.Fatalf("ParseTime(%q) should fail", value)
		}
	}
}

func TestTableRecords(t *testing.T) {
	table := &Table{
		Columns: []string{"region", "amount"},
		Rows:    []Row{{"north", 10.5}, {"south", nil}},
	}
	records := table.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0]["region"] != "north" || records[0]["amount"] != 10.5 {
		t.Fatalf("unexpected first record: %v", records[0])
	}
	if records[1]["amount"] != nil {
		t.Fatalf("null cell should stay nil: %v", records[1])
	}
}

func TestColumnTypeSQLiteMapping(t *testing.T) {
	cases := map[ColumnType]string{
		TypeInteger:   "INTEGER",
		TypeBoolean:   "INTEGER",
		TypeFloat:     "REAL",
		TypeText:      "TEXT",
		TypeTimestamp: "TEXT",
	}
	for colType, want := range cases {
		if got := colType.SQLiteType(); got != want {
			t.Fatalf("%s maps to %s, want %s", colType, got, want)
		}
	}
	if !TypeInteger.Numeric() || !TypeFloat.Numeric() || TypeText.Numeric() {
		t.Fatalf("numeric classification wrong")
	}
}
