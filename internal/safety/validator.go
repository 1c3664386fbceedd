// File path: internal/safety/validator.go
package safety

import (
	"fmt"
	"strings"
)

// Reason codes attached to validation rejections.
type Reason string

const (
	ReasonMultiStatement     Reason = "multi_statement"
	ReasonForbiddenOperation Reason = "forbidden_operation"
	ReasonUnknownTable       Reason = "unknown_table"
	ReasonNotAQuery          Reason = "not_a_query"
)

// Rejection explains why a candidate query was refused.
type Rejection struct {
	Reason Reason
	Detail string
}

func (r *Rejection) Error() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

func reject(reason Reason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Verbs that may never appear as a bare keyword anywhere in an accepted
// statement. None of them is valid inside a single read-only SELECT, so their
// presence as a structural token always marks a write, DDL or
// engine-administration attempt.
var forbiddenKeywords = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "DROP": {}, "CREATE": {},
	"ALTER": {}, "TRUNCATE": {}, "ATTACH": {}, "DETACH": {}, "PRAGMA": {},
	"VACUUM": {}, "REINDEX": {}, "ANALYZE": {}, "GRANT": {}, "REVOKE": {},
	"MERGE": {}, "BEGIN": {}, "COMMIT": {}, "ROLLBACK": {}, "SAVEPOINT": {},
}

// Keywords that terminate or continue a FROM clause and therefore can never
// be table aliases.
var clauseKeywords = map[string]struct{}{
	"WHERE": {}, "GROUP": {}, "ORDER": {}, "LIMIT": {}, "OFFSET": {},
	"HAVING": {}, "UNION": {}, "INTERSECT": {}, "EXCEPT": {}, "WINDOW": {},
	"JOIN": {}, "INNER": {}, "LEFT": {}, "RIGHT": {}, "FULL": {}, "CROSS": {},
	"NATURAL": {}, "ON": {}, "USING": {}, "AS": {},
}

// Allowed schema qualifiers for table references inside the session engine.
var allowedQualifiers = map[string]struct{}{"MAIN": {}, "TEMP": {}}

// Validate decides whether a candidate query is safe to run against a
// session's dataset engine. known holds the session's registered table names,
// lowercased. On acceptance the exact text to execute is returned; otherwise
// a Rejection carries the reason code. The function is pure: no side effects,
// no engine access.
func Validate(candidate string, known map[string]struct{}) (string, *Rejection) {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return "", reject(ReasonNotAQuery, "empty query text")
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return "", reject(ReasonNotAQuery, "query does not parse: %v", err)
	}
	statements := splitStatements(tokens)
	if len(statements) == 0 {
		return "", reject(ReasonNotAQuery, "no statement found")
	}
	if len(statements) > 1 {
		return "", reject(ReasonMultiStatement, "%d statements found, exactly one is allowed", len(statements))
	}
	stmt := statements[0]

	first := stmt[0]
	if first.kind != tokWord {
		return "", reject(ReasonNotAQuery, "statement does not begin with a keyword")
	}
	switch first.upper {
	case "SELECT", "WITH":
	default:
		if _, forbidden := forbiddenKeywords[first.upper]; forbidden {
			return "", reject(ReasonForbiddenOperation, "%s statements are not permitted", first.upper)
		}
		return "", reject(ReasonNotAQuery, "only SELECT statements are permitted, got %q", first.text)
	}

	for _, tok := range stmt {
		if tok.kind != tokWord {
			continue
		}
		if _, forbidden := forbiddenKeywords[tok.upper]; forbidden {
			return "", reject(ReasonForbiddenOperation, "keyword %s is not permitted in a read-only query", tok.upper)
		}
	}

	ctes := commonTableNames(stmt)
	if rej := checkTableReferences(stmt, known, ctes); rej != nil {
		return "", rej
	}

	// Token offsets are rune positions.
	runes := []rune(trimmed)
	text := strings.TrimSpace(string(runes[stmt[0].start:stmt[len(stmt)-1].end]))
	return text, nil
}

// splitStatements groups tokens into statements separated by semicolons,
// dropping empty groups left by trailing terminators.
func splitStatements(tokens []token) [][]token {
	var statements [][]token
	var current []token
	for _, tok := range tokens {
		if tok.kind == tokSemicolon {
			if len(current) > 0 {
				statements = append(statements, current)
				current = nil
			}
			continue
		}
		current = append(current, tok)
	}
	if len(current) > 0 {
		statements = append(statements, current)
	}
	return statements
}

// commonTableNames collects the names bound by a leading WITH clause so table
// references to them are not mistaken for unknown tables.
func commonTableNames(stmt []token) map[string]struct{} {
	names := make(map[string]struct{})
	if len(stmt) == 0 || stmt[0].upper != "WITH" {
		return names
	}
	i := 1
	if i < len(stmt) && stmt[i].upper == "RECURSIVE" {
		i++
	}
	for i < len(stmt) {
		if stmt[i].kind != tokWord && stmt[i].kind != tokQuotedIdent {
			break
		}
		names[strings.ToLower(stmt[i].text)] = struct{}{}
		i++
		// optional column list
		if i < len(stmt) && stmt[i].text == "(" {
			i = skipBalanced(stmt, i)
		}
		if i >= len(stmt) || stmt[i].upper != "AS" {
			break
		}
		i++
		if i < len(stmt) && stmt[i].upper == "NOT" { // AS NOT MATERIALIZED
			i++
		}
		if i < len(stmt) && stmt[i].upper == "MATERIALIZED" {
			i++
		}
		if i >= len(stmt) || stmt[i].text != "(" {
			break
		}
		i = skipBalanced(stmt, i)
		if i < len(stmt) && stmt[i].text == "," {
			i++
			continue
		}
		break
	}
	return names
}

// skipBalanced advances past a balanced parenthesis group starting at open.
func skipBalanced(stmt []token, open int) int {
	depth := 0
	for i := open; i < len(stmt); i++ {
		switch stmt[i].text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(stmt)
}

// checkTableReferences walks the token stream and resolves every name in
// table position (after FROM or JOIN, including comma-separated lists)
// against the session's registered tables and the statement's CTE names.
func checkTableReferences(stmt []token, known, ctes map[string]struct{}) *Rejection {
	for i := 0; i < len(stmt); i++ {
		tok := stmt[i]
		if tok.kind != tokWord {
			continue
		}
		if tok.upper != "FROM" && tok.upper != "JOIN" {
			continue
		}
		next, rej := checkRefList(stmt, i+1, tok.upper == "FROM", known, ctes)
		if rej != nil {
			return rej
		}
		i = next - 1
	}
	return nil
}

// checkRefList validates one table reference, plus the rest of a
// comma-separated list when list is true. It returns the index of the first
// token it did not consume.
func checkRefList(stmt []token, i int, list bool, known, ctes map[string]struct{}) (int, *Rejection) {
	for {
		if i >= len(stmt) {
			return i, nil
		}
		// Subqueries and parenthesized joins: the inner tokens are covered
		// by the outer linear walk, so no descent is needed here.
		if stmt[i].text == "(" {
			return i, nil
		}
		if stmt[i].kind != tokWord && stmt[i].kind != tokQuotedIdent {
			return i, nil
		}
		name := stmt[i].text
		i++
		// Qualified reference: qualifier.table
		if i < len(stmt) && stmt[i].text == "." {
			if _, ok := allowedQualifiers[strings.ToUpper(name)]; !ok {
				return i, reject(ReasonUnknownTable, "schema %q is not accessible from this session", name)
			}
			i++
			if i >= len(stmt) || (stmt[i].kind != tokWord && stmt[i].kind != tokQuotedIdent) {
				return i, reject(ReasonNotAQuery, "incomplete table reference")
			}
			name = stmt[i].text
			i++
		}
		// Table-valued function call; read-only, nothing to resolve.
		if i < len(stmt) && stmt[i].text == "(" {
			i = skipBalanced(stmt, i)
		} else {
			lower := strings.ToLower(name)
			if _, ok := ctes[lower]; !ok {
				if _, ok := known[lower]; !ok {
					return i, reject(ReasonUnknownTable, "table %q is not registered in this session", name)
				}
			}
		}
		// Optional alias.
		if i < len(stmt) && stmt[i].upper == "AS" {
			i++
			if i < len(stmt) && (stmt[i].kind == tokWord || stmt[i].kind == tokQuotedIdent) {
				i++
			}
		} else if i < len(stmt) && (stmt[i].kind == tokWord || stmt[i].kind == tokQuotedIdent) {
			if _, clause := clauseKeywords[stmt[i].upper]; !clause {
				i++
			}
		}
		if list && i < len(stmt) && stmt[i].text == "," {
			i++
			continue
		}
		return i, nil
	}
}
