// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tomtom215/prodledger/internal/apperr"
	"github.com/tomtom215/prodledger/internal/metrics"
)

// Validator stages, in the order they run. Each is a hard gate.
const (
	StageComments      = "comments"
	StageSeparator     = "separator"
	StageStatementKind = "statement_kind"
	StageDenyList      = "deny_list"
	StageAllowList     = "allow_list"
)

// DefaultRowCap is the LIMIT appended to statements that have none.
const DefaultRowCap = 1000

// deniedKeywords are rejected anywhere in the statement, including subqueries and literals.
var deniedKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE", "REPLACE",
	"ATTACH", "DETACH", "PRAGMA", "VACUUM", "REINDEX", "TRUNCATE",
}

var denyPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(deniedKeywords, "|") + `)\b`)

// allowedSchemas may qualify the sanctioned table. Live is the main schema of
// the ad-hoc connection; archive is attached under its own alias.
var allowedSchemas = []string{"main", "live", "archive"}

// SafeSQL is a statement that passed every stage.
type SafeSQL struct {
	// Text is the comment-stripped statement to execute, LIMIT included.
	Text string

	// LimitAppended reports whether the row cap was added.
	LimitAppended bool

	// Tables lists each table reference as written (schema-qualified when it was).
	Tables []string
}

// SQLGuard validates ad-hoc read-only SQL against a single sanctioned table.
type SQLGuard struct {
	table  string
	rowCap int
}

// NewSQLGuard creates a guard for table. rowCap <= 0 selects DefaultRowCap.
func NewSQLGuard(table string, rowCap int) *SQLGuard {
	if rowCap <= 0 {
		rowCap = DefaultRowCap
	}
	return &SQLGuard{table: strings.ToLower(table), rowCap: rowCap}
}

var defaultGuard = NewSQLGuard("production_records", DefaultRowCap)

// ValidateSQL runs the default guard for production_records.
func ValidateSQL(raw string) (SafeSQL, error) {
	return defaultGuard.Validate(raw)
}

// Validate runs the five stages in order and stops at the first rejection.
// Rejections are *apperr.Error values of kind Validation carrying Stage and Token.
//
// Values are never inspected for meaning, only structure; callers bind their
// parameters positionally when executing SafeSQL.Text.
func (g *SQLGuard) Validate(raw string) (SafeSQL, error) {
	safe, err := g.validate(raw)
	if err != nil {
		if e, ok := err.(*apperr.Error); ok {
			metrics.SQLRejections.WithLabelValues(e.Stage).Inc()
		}
		return SafeSQL{}, err
	}
	return safe, nil
}

func (g *SQLGuard) validate(raw string) (SafeSQL, error) {
	// Stage 1: comments
	stripped, err := StripComments(raw)
	if err != nil {
		return SafeSQL{}, err
	}
	stmt := strings.TrimSpace(stripped)

	// Stage 2: stacked statements
	if strings.Contains(stmt, ";") {
		return SafeSQL{}, apperr.Rejected(StageSeparator, ";", `statement separator ";" is not allowed`)
	}

	tokens, err := tokenize(stmt)
	if err != nil {
		return SafeSQL{}, err
	}

	// Stage 3: statement kind
	if len(tokens) == 0 {
		return SafeSQL{}, apperr.Rejected(StageStatementKind, "", "statement is empty")
	}
	if first := tokens[0]; first.kind != tokWord || !strings.EqualFold(first.text, "SELECT") {
		return SafeSQL{}, apperr.Rejected(StageStatementKind, first.text,
			fmt.Sprintf("only SELECT statements are allowed, got %q", first.text))
	}

	// Stage 4: deny-list
	if m := denyPattern.FindString(stmt); m != "" {
		return SafeSQL{}, apperr.Rejected(StageDenyList, m,
			fmt.Sprintf("keyword %q is not allowed", strings.ToUpper(m)))
	}

	// Stage 5: table allow-list
	tables, err := g.checkTables(tokens)
	if err != nil {
		return SafeSQL{}, err
	}

	safe := SafeSQL{Text: stmt, Tables: tables}
	if !hasTopLevelLimit(tokens) {
		safe.Text = fmt.Sprintf("%s LIMIT %d", stmt, g.rowCap)
		safe.LimitAppended = true
	}
	return safe, nil
}

// StripComments removes -- line comments and /* */ block comments outside of
// quoted text, replacing each with a single space so adjacent tokens stay apart.
// Unterminated block comments and quotes are rejected.
func StripComments(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))

	for i := 0; i < len(raw); {
		c := raw[i]
		switch {
		case c == '-' && i+1 < len(raw) && raw[i+1] == '-':
			end := strings.IndexByte(raw[i:], '\n')
			if end < 0 {
				i = len(raw)
			} else {
				i += end + 1
			}
			b.WriteByte(' ')
		case c == '/' && i+1 < len(raw) && raw[i+1] == '*':
			end := strings.Index(raw[i+2:], "*/")
			if end < 0 {
				return "", apperr.Rejected(StageComments, "/*", "unterminated block comment")
			}
			i += 2 + end + 2
			b.WriteByte(' ')
		case c == '\'' || c == '"' || c == '`' || c == '[':
			n, err := quotedLen(raw[i:])
			if err != nil {
				return "", err
			}
			b.WriteString(raw[i : i+n])
			i += n
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// quotedLen returns the byte length of the quoted run starting at s[0],
// honouring doubled-quote escapes as SQLite does.
func quotedLen(s string) (int, error) {
	open := s[0]
	closer := open
	if open == '[' {
		closer = ']'
	}
	for i := 1; i < len(s); i++ {
		if s[i] != closer {
			continue
		}
		if open != '[' && i+1 < len(s) && s[i+1] == closer {
			i++
			continue
		}
		return i + 1, nil
	}
	return 0, apperr.Rejected(StageComments, string(open), "unterminated quoted text")
}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokIdent          // quoted identifier, text unquoted
	tokString
	tokNumber
	tokPunct
)

type token struct {
	kind tokenKind
	text string
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '$'
}

// tokenize splits comment-free SQL into the tokens the allow-list and LIMIT checks need.
func tokenize(s string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			i++
		case c == '\'':
			n, err := quotedLen(s[i:])
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokString, s[i : i+n]})
			i += n
		case c == '"' || c == '`' || c == '[':
			n, err := quotedLen(s[i:])
			if err != nil {
				return nil, err
			}
			inner := s[i+1 : i+n-1]
			if c != '[' {
				inner = strings.ReplaceAll(inner, string(c)+string(c), string(c))
			}
			tokens = append(tokens, token{tokIdent, inner})
			i += n
		case isIdentStart(c):
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			tokens = append(tokens, token{tokWord, s[i:j]})
			i = j
		case c >= '0' && c <= '9':
			j := i + 1
			for j < len(s) && (isIdentPart(s[j]) || s[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, s[i:j]})
			i = j
		default:
			tokens = append(tokens, token{tokPunct, string(c)})
			i++
		}
	}
	return tokens, nil
}

func (t token) isWord(w string) bool {
	return t.kind == tokWord && strings.EqualFold(t.text, w)
}

func (t token) isName() bool {
	return t.kind == tokWord || t.kind == tokIdent
}

// clauseWords end a table reference and are never read as an alias.
var clauseWords = map[string]bool{
	"WHERE": true, "GROUP": true, "ORDER": true, "LIMIT": true, "HAVING": true,
	"WINDOW": true, "UNION": true, "EXCEPT": true, "INTERSECT": true, "ON": true,
	"USING": true, "JOIN": true, "INNER": true, "LEFT": true, "RIGHT": true,
	"FULL": true, "CROSS": true, "NATURAL": true, "OUTER": true, "FROM": true,
	"OFFSET": true, "INDEXED": true, "NOT": true,
}

// joinOperators lead into the next table reference of a FROM list.
var joinOperators = map[string]bool{
	"JOIN": true, "NATURAL": true, "LEFT": true, "RIGHT": true, "FULL": true,
	"INNER": true, "CROSS": true, "OUTER": true,
}

// fromListEnd words close a FROM list.
var fromListEnd = map[string]bool{
	"WHERE": true, "GROUP": true, "ORDER": true, "LIMIT": true, "HAVING": true,
	"WINDOW": true, "UNION": true, "EXCEPT": true, "INTERSECT": true, "OFFSET": true,
}

// checkTables verifies every table reference names the sanctioned table,
// optionally schema-qualified. References are read from each FROM list, across
// its commas, joins and parenthesized join groups, and from "IN table"
// expressions. A statement with no table reference is rejected.
func (g *SQLGuard) checkTables(tokens []token) ([]string, error) {
	var tables []string
	joined := make(map[int]bool)

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case (t.isWord("FROM") || t.isWord("JOIN")) && !joined[i]:
			refs, _, err := g.readSources(tokens, i+1, len(tokens), joined, t.text)
			if err != nil {
				return nil, err
			}
			tables = append(tables, refs...)

		case t.isWord("IN") && i+1 < len(tokens) && tokens[i+1].isName():
			name, _, err := g.readTableRef(tokens, i+1)
			if err != nil {
				return nil, err
			}
			tables = append(tables, name)
		}
	}

	if len(tables) == 0 {
		return nil, apperr.Rejected(StageAllowList, "", "statement must read from "+g.table)
	}
	return tables, nil
}

// readSources reads the FROM list in tokens[j:end] and returns its table
// references and the index where the list stops. Subqueries are left to
// checkTables; parenthesized join groups are read recursively. Every JOIN
// consumed here is recorded in joined.
func (g *SQLGuard) readSources(tokens []token, j, end int, joined map[int]bool, after string) ([]string, int, error) {
	var tables []string

	for {
		if j >= end {
			return nil, 0, apperr.Rejected(StageAllowList, after, "missing table after "+strings.ToUpper(after))
		}

		if tokens[j].kind == tokPunct && tokens[j].text == "(" {
			closeAt := skipParens(tokens, j)
			if closeAt > end || tokens[closeAt-1].kind != tokPunct || tokens[closeAt-1].text != ")" {
				return nil, 0, apperr.Rejected(StageAllowList, "(", "unbalanced parentheses")
			}
			if !isSubquery(tokens, j+1) {
				inner, next, err := g.readSources(tokens, j+1, closeAt-1, joined, "(")
				if err != nil {
					return nil, 0, err
				}
				if next != closeAt-1 {
					return nil, 0, apperr.Rejected(StageAllowList, tokens[next].text,
						fmt.Sprintf("unexpected %q in table group", tokens[next].text))
				}
				tables = append(tables, inner...)
			}
			j = closeAt
		} else {
			name, next, err := g.readTableRef(tokens, j)
			if err != nil {
				return nil, 0, err
			}
			tables = append(tables, name)
			j = next
		}

		j = skipAlias(tokens, j, end)
		j = skipIndexHint(tokens, j, end)
		j = skipJoinConstraint(tokens, j, end)
		if j >= end {
			return tables, j, nil
		}

		switch next := tokens[j]; {
		case next.kind == tokPunct && next.text == ",":
			after = ","
			j++
		case next.kind == tokWord && joinOperators[strings.ToUpper(next.text)]:
			for j < end && !tokens[j].isWord("JOIN") {
				if tokens[j].kind != tokWord || !joinOperators[strings.ToUpper(tokens[j].text)] {
					return nil, 0, apperr.Rejected(StageAllowList, tokens[j].text,
						fmt.Sprintf("unexpected %q in join", tokens[j].text))
				}
				j++
			}
			if j >= end {
				return nil, 0, apperr.Rejected(StageAllowList, next.text, "join operator without JOIN")
			}
			joined[j] = true
			after = tokens[j].text
			j++
		default:
			return tables, j, nil
		}
	}
}

// isSubquery reports whether the parenthesized group whose body starts at
// tokens[j] is a query rather than a join group.
func isSubquery(tokens []token, j int) bool {
	return j < len(tokens) && (tokens[j].isWord("SELECT") || tokens[j].isWord("WITH") || tokens[j].isWord("VALUES"))
}

// skipIndexHint skips "INDEXED BY name" or "NOT INDEXED".
func skipIndexHint(tokens []token, j, end int) int {
	switch {
	case j+2 < end && tokens[j].isWord("INDEXED") && tokens[j+1].isWord("BY"):
		return j + 3
	case j+1 < end && tokens[j].isWord("NOT") && tokens[j+1].isWord("INDEXED"):
		return j + 2
	}
	return j
}

// skipJoinConstraint skips an ON expression or USING column list. An ON
// expression ends at the first top-level comma, join operator, or clause word.
func skipJoinConstraint(tokens []token, j, end int) int {
	if j >= end {
		return j
	}
	if tokens[j].isWord("USING") {
		if j+1 < end && tokens[j+1].kind == tokPunct && tokens[j+1].text == "(" {
			return min(skipParens(tokens, j+1), end)
		}
		return j + 1
	}
	if !tokens[j].isWord("ON") {
		return j
	}

	depth := 0
	for j++; j < end; j++ {
		t := tokens[j]
		if t.kind == tokPunct {
			switch t.text {
			case "(":
				depth++
			case ")":
				depth--
				if depth < 0 {
					return j
				}
			case ",":
				if depth == 0 {
					return j
				}
			}
			continue
		}
		if depth == 0 && t.kind == tokWord {
			u := strings.ToUpper(t.text)
			if joinOperators[u] || fromListEnd[u] {
				return j
			}
		}
	}
	return j
}

// readTableRef reads [schema .] table starting at tokens[j].
func (g *SQLGuard) readTableRef(tokens []token, j int) (string, int, error) {
	first := tokens[j]
	if !first.isName() {
		return "", 0, apperr.Rejected(StageAllowList, first.text, fmt.Sprintf("unexpected %q where a table was expected", first.text))
	}

	if j+2 < len(tokens) && tokens[j+1].kind == tokPunct && tokens[j+1].text == "." && tokens[j+2].isName() {
		schema, table := first.text, tokens[j+2].text
		ref := schema + "." + table
		if !isAllowedSchema(schema) {
			return "", 0, apperr.Rejected(StageAllowList, ref, fmt.Sprintf("schema %q is not allowed", schema))
		}
		if !strings.EqualFold(table, g.table) {
			return "", 0, apperr.Rejected(StageAllowList, ref, fmt.Sprintf("table %q is not allowed", ref))
		}
		// A following "(" would make this a table-valued function call.
		if j+3 < len(tokens) && tokens[j+3].kind == tokPunct && tokens[j+3].text == "(" {
			return "", 0, apperr.Rejected(StageAllowList, ref, "table-valued functions are not allowed")
		}
		return ref, j + 3, nil
	}

	if !strings.EqualFold(first.text, g.table) {
		return "", 0, apperr.Rejected(StageAllowList, first.text, fmt.Sprintf("table %q is not allowed", first.text))
	}
	if j+1 < len(tokens) && tokens[j+1].kind == tokPunct && tokens[j+1].text == "(" {
		return "", 0, apperr.Rejected(StageAllowList, first.text, "table-valued functions are not allowed")
	}
	return first.text, j + 1, nil
}

func isAllowedSchema(schema string) bool {
	for _, s := range allowedSchemas {
		if strings.EqualFold(schema, s) {
			return true
		}
	}
	return false
}

// skipAlias skips an optional "AS alias" or bare alias after a table reference.
func skipAlias(tokens []token, j, end int) int {
	if j < end && tokens[j].isWord("AS") {
		j++
		if j < end && tokens[j].isName() {
			j++
		}
		return j
	}
	if j < end && tokens[j].isName() && !(tokens[j].kind == tokWord && clauseWords[strings.ToUpper(tokens[j].text)]) {
		j++
	}
	return j
}

// skipParens returns the index after the parenthesis group opening at tokens[j],
// or len(tokens)+1 when the group is never closed.
func skipParens(tokens []token, j int) int {
	depth := 0
	for ; j < len(tokens); j++ {
		if tokens[j].kind != tokPunct {
			continue
		}
		switch tokens[j].text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return j + 1
			}
		}
	}
	return len(tokens) + 1
}

// hasTopLevelLimit reports whether LIMIT appears outside any parentheses.
func hasTopLevelLimit(tokens []token) bool {
	depth := 0
	for _, t := range tokens {
		switch {
		case t.kind == tokPunct && t.text == "(":
			depth++
		case t.kind == tokPunct && t.text == ")":
			depth--
		case depth == 0 && t.isWord("LIMIT"):
			return true
		}
	}
	return false
}
