// File path: internal/safety/validator_test.go
package safety

import (
	"strings"
	"testing"
)

func knownTables(names ...string) map[string]struct{} {
	known := make(map[string]struct{}, len(names))
	for _, name := range names {
		known[name] = struct{}{}
	}
	return known
}

func TestValidateAcceptsSimpleSelect(t *testing.T) {
	stmt, rej := Validate("SELECT region, SUM(amount) FROM orders GROUP BY region", knownTables("orders"))
	if rej != nil {
		t.Fatalf("unexpected rejection: %v", rej)
	}
	if !strings.HasPrefix(stmt, "SELECT") {
		t.Fatalf("unexpected statement text: %q", stmt)
	}
}

func TestValidateAcceptsTrailingSemicolon(t *testing.T) {
	stmt, rej := Validate("SELECT * FROM orders;", knownTables("orders"))
	if rej != nil {
		t.Fatalf("unexpected rejection: %v", rej)
	}
	if strings.Contains(stmt, ";") {
		t.Fatalf("accepted text should not carry the terminator: %q", stmt)
	}
}

func TestValidateRejectsMultipleStatements(t *testing.T) {
	_, rej := Validate("SELECT * FROM orders; DROP TABLE orders;", knownTables("orders"))
	if rej == nil {
		t.Fatalf("expected rejection")
	}
	if rej.Reason != ReasonMultiStatement {
		t.Fatalf("expected %s, got %s (%s)", ReasonMultiStatement, rej.Reason, rej.Detail)
	}
}

func TestValidateRejectsWriteStatements(t *testing.T) {
	cases := []string{
		"INSERT INTO orders VALUES (1)",
		"UPDATE orders SET amount = 0",
		"DELETE FROM orders",
		"DROP TABLE orders",
		"CREATE TABLE t (x)",
		"ALTER TABLE orders ADD COLUMN x",
		"PRAGMA table_info(orders)",
		"ATTACH DATABASE 'other.db' AS other",
		"VACUUM",
	}
	for _, candidate := range cases {
		_, rej := Validate(candidate, knownTables("orders"))
		if rej == nil {
			t.Fatalf("expected rejection for %q", candidate)
		}
		if rej.Reason != ReasonForbiddenOperation {
			t.Fatalf("%q: expected %s, got %s (%s)", candidate, ReasonForbiddenOperation, rej.Reason, rej.Detail)
		}
	}
}

func TestValidateRejectsForbiddenKeywordInsideSelect(t *testing.T) {
	_, rej := Validate("SELECT * FROM orders WHERE id IN (DELETE FROM orders)", knownTables("orders"))
	if rej == nil || rej.Reason != ReasonForbiddenOperation {
		t.Fatalf("expected forbidden_operation, got %v", rej)
	}
}

func TestValidateKeywordCasingAndCommentsDoNotBypass(t *testing.T) {
	cases := []string{
		"dElEtE FROM orders",
		"DELETE /* harmless */ FROM orders",
		"DELETE -- just reading\nFROM orders",
	}
	for _, candidate := range cases {
		_, rej := Validate(candidate, knownTables("orders"))
		if rej == nil || rej.Reason != ReasonForbiddenOperation {
			t.Fatalf("%q: expected forbidden_operation, got %v", candidate, rej)
		}
	}
}

func TestValidateAllowsKeywordsInsideStringLiterals(t *testing.T) {
	stmt, rej := Validate("SELECT * FROM orders WHERE note = 'please DROP this'", knownTables("orders"))
	if rej != nil {
		t.Fatalf("string literal should not trigger the keyword check: %v", rej)
	}
	if stmt == "" {
		t.Fatalf("expected accepted statement text")
	}
}

func TestValidateAllowsUpdatedAtColumnName(t *testing.T) {
	// update_count is a plain identifier; only the bare keyword is forbidden.
	_, rej := Validate("SELECT update_count FROM orders", knownTables("orders"))
	if rej != nil {
		t.Fatalf("unexpected rejection: %v", rej)
	}
}

func TestValidateRejectsUnknownTable(t *testing.T) {
	_, rej := Validate("SELECT * FROM customers", knownTables("orders"))
	if rej == nil {
		t.Fatalf("expected rejection")
	}
	if rej.Reason != ReasonUnknownTable {
		t.Fatalf("expected %s, got %s (%s)", ReasonUnknownTable, rej.Reason, rej.Detail)
	}
}

func TestValidateRejectsUnknownJoinTable(t *testing.T) {
	_, rej := Validate("SELECT * FROM orders o JOIN customers c ON o.cid = c.id", knownTables("orders"))
	if rej == nil || rej.Reason != ReasonUnknownTable {
		t.Fatalf("expected unknown_table, got %v", rej)
	}
}

func TestValidateResolvesCommaSeparatedFromList(t *testing.T) {
	_, rej := Validate("SELECT * FROM orders, customers", knownTables("orders", "customers"))
	if rej != nil {
		t.Fatalf("unexpected rejection: %v", rej)
	}
	_, rej = Validate("SELECT * FROM orders, customers", knownTables("orders"))
	if rej == nil || rej.Reason != ReasonUnknownTable {
		t.Fatalf("expected unknown_table for second list entry, got %v", rej)
	}
}

func TestValidateTableNamesMatchCaseInsensitively(t *testing.T) {
	_, rej := Validate("SELECT * FROM Orders", knownTables("orders"))
	if rej != nil {
		t.Fatalf("unexpected rejection: %v", rej)
	}
}

func TestValidateAcceptsCTEReferences(t *testing.T) {
	query := "WITH totals AS (SELECT region, SUM(amount) total FROM orders GROUP BY region) " +
		"SELECT * FROM totals ORDER BY total DESC"
	_, rej := Validate(query, knownTables("orders"))
	if rej != nil {
		t.Fatalf("unexpected rejection: %v", rej)
	}
}

func TestValidateAcceptsMultipleCTEs(t *testing.T) {
	query := "WITH a AS (SELECT * FROM orders), b AS (SELECT * FROM a) SELECT * FROM b"
	_, rej := Validate(query, knownTables("orders"))
	if rej != nil {
		t.Fatalf("unexpected rejection: %v", rej)
	}
}

func TestValidateCTEBodyTablesStillChecked(t *testing.T) {
	query := "WITH totals AS (SELECT * FROM customers) SELECT * FROM totals"
	_, rej := Validate(query, knownTables("orders"))
	if rej == nil || rej.Reason != ReasonUnknownTable {
		t.Fatalf("expected unknown_table inside CTE body, got %v", rej)
	}
}

func TestValidateAllowsSubqueries(t *testing.T) {
	query := "SELECT * FROM (SELECT region FROM orders) t WHERE region IN (SELECT region FROM orders)"
	_, rej := Validate(query, knownTables("orders"))
	if rej != nil {
		t.Fatalf("unexpected rejection: %v", rej)
	}
}

func TestValidateQualifiedReferences(t *testing.T) {
	if _, rej := Validate("SELECT * FROM main.orders", knownTables("orders")); rej != nil {
		t.Fatalf("main qualifier should be allowed: %v", rej)
	}
	_, rej := Validate("SELECT * FROM other.orders", knownTables("orders"))
	if rej == nil || rej.Reason != ReasonUnknownTable {
		t.Fatalf("foreign schema should be rejected, got %v", rej)
	}
}

func TestValidateRejectsNonQueryText(t *testing.T) {
	for _, candidate := range []string{"", "   ", "I cannot answer that question."} {
		_, rej := Validate(candidate, knownTables("orders"))
		if rej == nil {
			t.Fatalf("expected rejection for %q", candidate)
		}
		if rej.Reason != ReasonNotAQuery {
			t.Fatalf("%q: expected %s, got %s", candidate, ReasonNotAQuery, rej.Reason)
		}
	}
}

func TestValidateRejectsUnterminatedString(t *testing.T) {
	_, rej := Validate("SELECT * FROM orders WHERE note = 'oops", knownTables("orders"))
	if rej == nil || rej.Reason != ReasonNotAQuery {
		t.Fatalf("expected not_a_query, got %v", rej)
	}
}

func TestValidateIsPure(t *testing.T) {
	known := knownTables("orders")
	first, rej := Validate("SELECT * FROM orders", known)
	if rej != nil {
		t.Fatalf("unexpected rejection: %v", rej)
	}
	second, rej := Validate("SELECT * FROM orders", known)
	if rej != nil {
		t.Fatalf("unexpected rejection on repeat: %v", rej)
	}
	if first != second {
		t.Fatalf("validation not deterministic: %q vs %q", first, second)
	}
	if len(known) != 1 {
		t.Fatalf("known table set mutated: %v", known)
	}
}
