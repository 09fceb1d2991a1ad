package sqlite

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// join is a table the artwork query must be joined with.
type join interface {
	joinSQL() (string, []any)
}

// predicate is one conjunct of the WHERE clause.
type predicate interface {
	predicateSQL() (string, []any)
}

// ftsJoin restricts artworks to full-text matches.
type ftsJoin struct{}

func (ftsJoin) joinSQL() (string, []any) {
	return "JOIN artworks_fts ON artworks_fts.rowid = a.id", nil
}

// tagJoin restricts artworks to those linked to any of ids through a join
// table. The derived table yields each artwork at most once, so matching
// several tags never repeats a row.
type tagJoin struct {
	alias  string
	table  string
	column string
	ids    []int64
}

func (j tagJoin) joinSQL() (string, []any) {
	return fmt.Sprintf(
		"JOIN (SELECT DISTINCT artwork_id FROM %s WHERE %s IN (%s)) %s ON %s.artwork_id = a.id",
		j.table, j.column, placeholders(len(j.ids)), j.alias, j.alias,
	), int64Args(j.ids)
}

type ftsMatchPredicate struct {
	match string
}

func (p ftsMatchPredicate) predicateSQL() (string, []any) {
	return "artworks_fts MATCH ?", []any{p.match}
}

type eqPredicate struct {
	column string
	value  any
}

func (p eqPredicate) predicateSQL() (string, []any) {
	return p.column + " = ?", []any{p.value}
}

type isNullPredicate struct {
	column string
}

func (p isNullPredicate) predicateSQL() (string, []any) {
	return p.column + " IS NULL", nil
}

// notInSubquery excludes artworks that appear in a join table.
type notInSubquery struct {
	table string
}

func (p notInSubquery) predicateSQL() (string, []any) {
	return fmt.Sprintf("a.id NOT IN (SELECT artwork_id FROM %s)", p.table), nil
}

type yearPredicate struct {
	years []int
}

func (p yearPredicate) predicateSQL() (string, []any) {
	args := make([]any, len(p.years))
	for i, y := range p.years {
		args[i] = y
	}
	return fmt.Sprintf("%s AND %s IN (%s)", yearInRange("a.date"), yearExpr("a.date"), placeholders(len(p.years))), args
}

// dateBoundPredicate compares the artwork date as a calendar date. Only
// dates starting with YYYY-MM-DD take part; SQLite would otherwise read a
// bare number such as "10.1995" as a Julian day.
type dateBoundPredicate struct {
	op    string
	value string
}

func (p dateBoundPredicate) predicateSQL() (string, []any) {
	return fmt.Sprintf("a.date GLOB '%s' AND date(a.date) %s date(?)", isoDateGlob, p.op), []any{p.value}
}

const isoDateGlob = "[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]*"

// QueryPlan is a compiled artwork filter.
type QueryPlan struct {
	joins  []join
	where  []predicate
	limit  *int
	offset *int
}

// Paginated reports whether the plan carries a limit or an offset.
func (p *QueryPlan) Paginated() bool {
	return p.limit != nil || p.offset != nil
}

// Offset returns the requested offset, zero when none.
func (p *QueryPlan) Offset() int {
	if p.offset == nil {
		return 0
	}
	return *p.offset
}

// orderBy sorts numeric references descending with non-numeric and empty
// references last, then by title ignoring case, then by id so that pages
// never overlap.
const orderBy = `ORDER BY CASE WHEN trim(a.reference) <> '' AND trim(a.reference) NOT GLOB '*[^0-9]*' THEN CAST(trim(a.reference) AS INTEGER) END DESC NULLS LAST, a.title COLLATE NOCASE ASC, a.id ASC`

// CompileFilter translates an artwork filter into a query plan. Fields
// combine with AND, values of one multi-value field with OR. Empty slices
// and blank queries are ignored.
func CompileFilter(f types.ArtworkFilter) (*QueryPlan, error) {
	plan := &QueryPlan{}

	if f.Limit != nil && *f.Limit < 0 {
		return nil, types.NewFieldError("limit", "must be at least 0")
	}
	if f.Offset != nil && *f.Offset < 0 {
		return nil, types.NewFieldError("offset", "must be at least 0")
	}
	plan.limit = f.Limit
	plan.offset = f.Offset

	if match := ftsQuery(f.Query); match != "" {
		plan.joins = append(plan.joins, ftsJoin{})
		plan.where = append(plan.where, ftsMatchPredicate{match: match})
	}
	if len(f.Pigments) > 0 {
		plan.joins = append(plan.joins, tagJoin{alias: "pg", table: "artwork_pigments", column: "pigment_id", ids: f.Pigments})
	}
	if len(f.Papers) > 0 {
		plan.joins = append(plan.joins, tagJoin{alias: "pp", table: "artwork_papers", column: "paper_id", ids: f.Papers})
	}

	if f.CollectionID != nil {
		plan.where = append(plan.where, eqPredicate{column: "a.collection_id", value: *f.CollectionID})
	}
	if f.TypeID != nil {
		plan.where = append(plan.where, eqPredicate{column: "a.type_id", value: *f.TypeID})
	}
	if f.PlaceID != nil {
		plan.where = append(plan.where, eqPredicate{column: "a.place_id", value: *f.PlaceID})
	}

	if f.NoCollection {
		plan.where = append(plan.where, isNullPredicate{column: "a.collection_id"})
	}
	if f.NoType {
		plan.where = append(plan.where, isNullPredicate{column: "a.type_id"})
	}
	if f.NoPlace {
		plan.where = append(plan.where, isNullPredicate{column: "a.place_id"})
	}
	if f.NoPigments {
		plan.where = append(plan.where, notInSubquery{table: "artwork_pigments"})
	}
	if f.NoPapers {
		plan.where = append(plan.where, notInSubquery{table: "artwork_papers"})
	}

	if f.DateRange != nil {
		if from := strings.TrimSpace(f.DateRange.From); from != "" {
			plan.where = append(plan.where, dateBoundPredicate{op: ">=", value: from})
		}
		if to := strings.TrimSpace(f.DateRange.To); to != "" {
			plan.where = append(plan.where, dateBoundPredicate{op: "<=", value: to})
		}
	}

	if len(f.Years) > 0 {
		plan.where = append(plan.where, yearPredicate{years: f.Years})
	}

	return plan, nil
}

// from renders the FROM, JOIN and WHERE clauses shared by select and count.
func (p *QueryPlan) from() (string, []any) {
	var sb strings.Builder
	var args []any

	sb.WriteString("FROM artworks a")
	for _, j := range p.joins {
		clause, jargs := j.joinSQL()
		sb.WriteString(" ")
		sb.WriteString(clause)
		args = append(args, jargs...)
	}
	for i, pr := range p.where {
		clause, pargs := pr.predicateSQL()
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString("(")
		sb.WriteString(clause)
		sb.WriteString(")")
		args = append(args, pargs...)
	}
	return sb.String(), args
}

// selectSQL renders the ordered, paginated listing query over columns.
func (p *QueryPlan) selectSQL(columns string) (string, []any) {
	from, args := p.from()
	query := "SELECT " + columns + " " + from + " " + orderBy

	switch {
	case p.limit != nil && *p.limit > 0:
		query += " LIMIT ?"
		args = append(args, *p.limit)
		if p.offset != nil {
			query += " OFFSET ?"
			args = append(args, *p.offset)
		}
	case p.offset != nil:
		// SQLite needs a LIMIT before OFFSET; -1 means unbounded.
		query += " LIMIT -1 OFFSET ?"
		args = append(args, *p.offset)
	}
	return query, args
}

// countSQL renders the count of matching artworks, ignoring pagination.
func (p *QueryPlan) countSQL() (string, []any) {
	from, args := p.from()
	return "SELECT COUNT(*) " + from, args
}

// ftsQuery turns free text into an FTS5 expression: every whitespace
// separated token becomes a quoted prefix term, implicitly ANDed. Tokens
// without a letter or digit carry nothing to match and are dropped.
func ftsQuery(q string) string {
	var terms []string
	for _, tok := range strings.Fields(q) {
		if !strings.ContainsFunc(tok, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(tok, `"`, `""`)+`"*`)
	}
	return strings.Join(terms, " ")
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
