// File path: internal/profile/profiler_test.go
package profile

import (
	"strings"
	"testing"

	"github.com/nicodishanthj/talkdata/internal/dataset"
)

func sampleSchema() dataset.Schema {
	return dataset.Schema{
		{Name: "region", Type: dataset.TypeText},
		{Name: "amount", Type: dataset.TypeFloat},
		{Name: "ordered_at", Type: dataset.TypeTimestamp},
	}
}

func sampleRows() []dataset.Row {
	return []dataset.Row{
		{"north", 10.0, "2024-01-03"},
		{"south", 20.0, "2024-01-01"},
		{"north", nil, "2024-01-02"},
		{"north", 10.0, "2024-01-03"},
	}
}

func TestBuildComputesColumnStatistics(t *testing.T) {
	report := Build(sampleSchema(), sampleRows())
	if report.RowCount != 4 || report.ColumnCount != 3 {
		t.Fatalf("unexpected shape: %d rows, %d columns", report.RowCount, report.ColumnCount)
	}

	region := report.Columns[0]
	if region.DistinctCount != 2 {
		t.Fatalf("region distinct = %d, want 2", region.DistinctCount)
	}
	if len(region.TopValues) == 0 || region.TopValues[0].Value != "north" || region.TopValues[0].Count != 3 {
		t.Fatalf("unexpected top values: %+v", region.TopValues)
	}

	amount := report.Columns[1]
	if amount.NullCount != 1 {
		t.Fatalf("amount nulls = %d, want 1", amount.NullCount)
	}
	if amount.NullPercent != 25 {
		t.Fatalf("amount null percent = %v, want 25", amount.NullPercent)
	}
	if amount.Min == nil || *amount.Min != 10 {
		t.Fatalf("amount min = %v", amount.Min)
	}
	if amount.Max == nil || *amount.Max != 20 {
		t.Fatalf("amount max = %v", amount.Max)
	}
	if amount.Mean == nil || *amount.Mean != 13.33 {
		t.Fatalf("amount mean = %v", amount.Mean)
	}

	ordered := report.Columns[2]
	if ordered.MinTime != "2024-01-01" || ordered.MaxTime != "2024-01-03" {
		t.Fatalf("time range = %s .. %s", ordered.MinTime, ordered.MaxTime)
	}
}

func TestBuildCountsDuplicateRows(t *testing.T) {
	report := Build(sampleSchema(), sampleRows())
	if report.DuplicateRows != 1 {
		t.Fatalf("duplicates = %d, want 1", report.DuplicateRows)
	}
}

func TestBuildQualityScorePenalizesNullsAndDuplicates(t *testing.T) {
	clean := Build(sampleSchema(), []dataset.Row{
		{"north", 1.0, "2024-01-01"},
		{"south", 2.0, "2024-01-02"},
	})
	if clean.QualityScore != 100 {
		t.Fatalf("clean score = %v, want 100", clean.QualityScore)
	}
	dirty := Build(sampleSchema(), sampleRows())
	if dirty.QualityScore >= clean.QualityScore {
		t.Fatalf("dirty score %v should be below clean score %v", dirty.QualityScore, clean.QualityScore)
	}
}

func TestBuildSuggestsQuestionsFromSchemaShape(t *testing.T) {
	report := Build(sampleSchema(), sampleRows())
	if len(report.SuggestedQuestions) == 0 {
		t.Fatalf("expected suggested questions")
	}
	joined := strings.Join(report.SuggestedQuestions, "\n")
	if !strings.Contains(joined, "amount") || !strings.Contains(joined, "region") {
		t.Fatalf("suggestions should reference the schema: %s", joined)
	}
}

func TestBuildEmptyDataset(t *testing.T) {
	report := Build(sampleSchema(), nil)
	if report.RowCount != 0 {
		t.Fatalf("row count = %d", report.RowCount)
	}
	if report.QualityScore != 0 {
		t.Fatalf("empty dataset score = %v, want 0", report.QualityScore)
	}
	for _, col := range report.Columns {
		if col.Min != nil || col.Mean != nil {
			t.Fatalf("numeric stats on empty dataset: %+v", col)
		}
	}
}
