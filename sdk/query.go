package sdk

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// searchExpr accumulates a filter expression. It tracks the last property
// for parameterless And/Or and whether a filter bracket is open.
type searchExpr struct {
	buf  strings.Builder
	last string
	open bool
}

func (q *searchExpr) openFilter(property string) {
	if !q.open {
		q.buf.WriteByte('[')
		q.open = true
	}
	q.last = property
	q.buf.WriteString(property)
}

func (q *searchExpr) closeFilter() {
	if q.open {
		q.buf.WriteByte(']')
		q.open = false
	}
}

// Filter opens a bracketed filter on property.
//
// Example:
//
//	q := sdk.Filter("age").GreaterThan(18).And("name").Equal("Bob").SearchQuery()
//	// [age > 18, name = "Bob"]
func Filter(property string) *FilterProperty {
	q := &searchExpr{}
	q.openFilter(property)
	return &FilterProperty{q: q}
}

// SubObject starts an expression scoped to a nested object.
//
//	sdk.SubObject("address").Filter("city").Equal("Oslo").SearchQuery()
//	// address[city = "Oslo"]
func SubObject(name string) *SubObjectScope {
	q := &searchExpr{}
	q.buf.WriteString(name)
	return &SubObjectScope{q: q}
}

// FilterProperty is the comparator surface for one property.
type FilterProperty struct {
	q *searchExpr
}

func (f *FilterProperty) compare(op string, value any) *CombinableFilter {
	f.q.buf.WriteByte(' ')
	f.q.buf.WriteString(op)
	f.q.buf.WriteByte(' ')
	f.q.buf.WriteString(renderOperand(value))
	return &CombinableFilter{q: f.q}
}

// Equal renders "<property> = <value>".
func (f *FilterProperty) Equal(value any) *CombinableFilter {
	return f.compare("=", value)
}

// NotEqual renders "<property> != <value>".
func (f *FilterProperty) NotEqual(value any) *CombinableFilter {
	return f.compare("!=", value)
}

// LessThan renders "<property> < <value>".
func (f *FilterProperty) LessThan(value any) *CombinableFilter {
	return f.compare("<", value)
}

// GreaterThan renders "<property> > <value>".
func (f *FilterProperty) GreaterThan(value any) *CombinableFilter {
	return f.compare(">", value)
}

// LessThanOrEqual renders "<property> <= <value>".
func (f *FilterProperty) LessThanOrEqual(value any) *CombinableFilter {
	return f.compare("<=", value)
}

// GreaterThanOrEqual renders "<property> >= <value>".
func (f *FilterProperty) GreaterThanOrEqual(value any) *CombinableFilter {
	return f.compare(">=", value)
}

// Near filters on proximity to a longitude/latitude point.
func (f *FilterProperty) Near(lon, lat float64) *GeoFilter {
	return f.NearPoint(NewGeoPoint(lon, lat))
}

// NearPoint filters on proximity to p.
func (f *FilterProperty) NearPoint(p GeoPoint) *GeoFilter {
	return &GeoFilter{CombinableFilter: f.compare("near", p)}
}

// CombinableFilter follows a comparison and can be extended or terminated.
//
// Mixing And and Or inside one bracket is accepted and rendered as written,
// although the backend only evaluates a single combinator per bracket.
type CombinableFilter struct {
	q *searchExpr
}

// And continues the filter with ", ". Without a property the last property
// is repeated.
func (c *CombinableFilter) And(property ...string) *FilterProperty {
	return c.combine(", ", property)
}

// Or continues the filter with " or ". Without a property the last property
// is repeated.
func (c *CombinableFilter) Or(property ...string) *FilterProperty {
	return c.combine(" or ", property)
}

func (c *CombinableFilter) combine(sep string, property []string) *FilterProperty {
	name := c.q.last
	if len(property) > 0 && property[0] != "" {
		name = property[0]
	}
	if c.q.open {
		c.q.buf.WriteString(sep)
	}
	c.q.openFilter(name)
	return &FilterProperty{q: c.q}
}

// SubObject closes the current filter and scopes the next one to name.
func (c *CombinableFilter) SubObject(name string) *SubObjectScope {
	c.q.closeFilter()
	c.q.buf.WriteByte('.')
	c.q.buf.WriteString(name)
	return &SubObjectScope{q: c.q}
}

// SearchQuery closes any open filter and returns the expression. Calling it
// again returns the same string.
func (c *CombinableFilter) SearchQuery() string {
	c.q.closeFilter()
	return c.q.buf.String()
}

// String implements fmt.Stringer.
func (c *CombinableFilter) String() string {
	return c.SearchQuery()
}

// GeoFilter is a proximity comparison that may carry a radius.
type GeoFilter struct {
	*CombinableFilter
}

// Within bounds the proximity filter to a radius: ", <distance><unit>".
func (g *GeoFilter) Within(distance float64, unit DistanceUnit) *CombinableFilter {
	g.q.buf.WriteString(", ")
	g.q.buf.WriteString(formatDecimal(distance))
	g.q.buf.WriteString(string(unit))
	return g.CombinableFilter
}

// SubObjectScope is positioned after a dotted scope and before its filter.
type SubObjectScope struct {
	q *searchExpr
}

// Filter opens a bracketed filter inside the scope.
func (s *SubObjectScope) Filter(property string) *FilterProperty {
	s.q.openFilter(property)
	return &FilterProperty{q: s.q}
}

// SubObject nests a further scope: "a.b".
func (s *SubObjectScope) SubObject(name string) *SubObjectScope {
	s.q.buf.WriteByte('.')
	s.q.buf.WriteString(name)
	return s
}

// renderOperand quotes strings and leaves numbers and points bare.
func renderOperand(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return quote(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return formatDecimal(float64(v))
	case float64:
		return formatDecimal(v)
	case GeoPoint:
		return v.String()
	case *GeoPoint:
		return v.String()
	case time.Time:
		return quote(v.UTC().Format(time.RFC3339))
	case fmt.Stringer:
		return quote(v.String())
	default:
		return quote(fmt.Sprint(v))
	}
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}
