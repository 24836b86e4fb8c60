package mpd

import (
	"sort"
	"strings"

	"github.com/famish99/jellympd/internal/catalog"
)

// Filter is a parsed filter expression evaluated against one catalog item
type Filter interface {
	Match(it *catalog.Item, caseSensitive bool) bool
}

// TagMatch matches items having value among the tag's values
type TagMatch struct {
	Tag   catalog.Tag
	Value string
}

// TagMismatch matches items not having value among the tag's values
type TagMismatch struct {
	Tag   catalog.Tag
	Value string
}

// AnyMatch matches value against every supported tag
type AnyMatch struct {
	Value string
}

// URIMatch matches the item's uri, which is its id
type URIMatch struct {
	URI string
}

// BaseDir matches items at or below a directory of the browse tree
type BaseDir struct {
	Path string
}

// And matches when every child matches
type And []Filter

// Not inverts a filter
type Not struct {
	Filter Filter
}

func (f TagMatch) Match(it *catalog.Item, caseSensitive bool) bool {
	return matchTagValue(it, f.Tag, f.Value, caseSensitive)
}

func (f TagMismatch) Match(it *catalog.Item, caseSensitive bool) bool {
	return !matchTagValue(it, f.Tag, f.Value, caseSensitive)
}

func (f AnyMatch) Match(it *catalog.Item, caseSensitive bool) bool {
	for _, tag := range catalog.AllTags() {
		if values, ok := it.TagValues(tag); ok && len(values) > 0 && matchTagValue(it, tag, f.Value, caseSensitive) {
			return true
		}
	}
	return false
}

func (f URIMatch) Match(it *catalog.Item, caseSensitive bool) bool {
	return equal(it.ID, f.URI, caseSensitive)
}

func (f BaseDir) Match(it *catalog.Item, _ bool) bool {
	return it.InDir(f.Path)
}

func (f And) Match(it *catalog.Item, caseSensitive bool) bool {
	for _, child := range f {
		if !child.Match(it, caseSensitive) {
			return false
		}
	}
	return true
}

func (f Not) Match(it *catalog.Item, caseSensitive bool) bool {
	return !f.Filter.Match(it, caseSensitive)
}

// matchTagValue compares wanted against the item's values for tag. An item
// without values for the tag only matches the empty string.
func matchTagValue(it *catalog.Item, tag catalog.Tag, wanted string, caseSensitive bool) bool {
	values, _ := it.TagValues(tag)
	if len(values) == 0 {
		return wanted == ""
	}
	for _, v := range values {
		if equal(v, wanted, caseSensitive) {
			return true
		}
	}
	return false
}

func equal(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

// ParseFilter parses either the legacy "tag value ..." pair list or a single
// parenthesized expression such as ((artist == 'x') AND (album == 'y')).
func ParseFilter(args []string) (Filter, error) {
	if len(args) == 0 {
		return nil, errArg("missing filter argument")
	}
	if strings.HasPrefix(args[0], "(") {
		if len(args) > 1 {
			return nil, errArg("unexpected argument after filter expression: %q", args[1])
		}
		return parseExpression(args[0])
	}
	return parseLegacy(args)
}

func parseLegacy(args []string) (Filter, error) {
	if len(args)%2 != 0 {
		return nil, errArg("missing filter value for %q", args[len(args)-1])
	}

	filters := make(And, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key, value := args[i], args[i+1]
		switch strings.ToLower(key) {
		case "file":
			filters = append(filters, URIMatch{URI: value})
		case "base":
			filters = append(filters, BaseDir{Path: value})
		case "any":
			filters = append(filters, AnyMatch{Value: value})
		default:
			tag, err := parseTag(key)
			if err != nil {
				return nil, err
			}
			filters = append(filters, TagMatch{Tag: tag, Value: value})
		}
	}
	return filters, nil
}

func parseExpression(input string) (Filter, error) {
	if !strings.HasPrefix(input, "(") {
		return nil, errArg("filter must start with '(', got %q", input)
	}
	if len(input) < 2 || !strings.HasSuffix(input, ")") {
		return nil, errArg("missing ')' in filter %q", input)
	}
	inner := strings.TrimSpace(input[1 : len(input)-1])
	if inner == "" {
		return nil, errArg("empty filter expression")
	}

	if rest, ok := strings.CutPrefix(inner, "!"); ok {
		rest = strings.TrimSpace(rest)
		if rest == "" {
			return nil, errArg("missing expression after negation in %q", input)
		}
		sub, err := parseExpression(rest)
		if err != nil {
			return nil, err
		}
		return Not{Filter: sub}, nil
	}

	first, rest, err := nextTerm(inner)
	if err != nil {
		return nil, err
	}
	if first == "" {
		return nil, errArg("unexpected end of filter %q", input)
	}

	if first == "base" {
		dir, _, err := nextTerm(rest)
		if err != nil {
			return nil, err
		}
		return BaseDir{Path: dir}, nil
	}

	op, rest, err := nextTerm(rest)
	if err != nil {
		return nil, err
	}

	switch op {
	case "==", "!=":
		value, trailing, err := nextTerm(rest)
		if err != nil {
			return nil, err
		}
		if value == "" && strings.TrimSpace(rest) == "" {
			return nil, errArg("missing value for %q in filter %q", first, input)
		}
		if strings.TrimSpace(trailing) != "" {
			return nil, errArg("unexpected %q in filter %q", strings.TrimSpace(trailing), input)
		}
		return equality(first, op == "!=", value)
	case "AND":
		lhs, err := parseExpression(first)
		if err != nil {
			return nil, err
		}
		rest = strings.TrimSpace(rest)
		if rest == "" {
			return nil, errArg("missing right-hand side of AND in %q", input)
		}
		second, trailing, err := nextTerm(rest)
		if err != nil {
			return nil, err
		}
		var rhs Filter
		if strings.TrimSpace(trailing) == "" {
			rhs, err = parseExpression(second)
		} else {
			// a AND b AND c nests as a AND (b AND c)
			rhs, err = parseExpression("(" + rest + ")")
		}
		if err != nil {
			return nil, err
		}
		return And{lhs, rhs}, nil
	case "":
		return nil, errArg("missing operator in filter %q", input)
	default:
		return nil, errArg("unknown filter operator %q in %q", op, input)
	}
}

func equality(key string, negate bool, value string) (Filter, error) {
	switch strings.ToLower(key) {
	case "file":
		if negate {
			return nil, errArg("cannot mismatch by item uri")
		}
		return URIMatch{URI: value}, nil
	case "any":
		if negate {
			return Not{Filter: AnyMatch{Value: value}}, nil
		}
		return AnyMatch{Value: value}, nil
	case "audioformat":
		return nil, errArg("unsupported filter type %q", key)
	}

	tag, err := parseTag(key)
	if err != nil {
		return nil, err
	}
	if negate {
		return TagMismatch{Tag: tag, Value: value}, nil
	}
	return TagMatch{Tag: tag, Value: value}, nil
}

func parseTag(name string) (catalog.Tag, error) {
	tag, err := catalog.ParseTag(name)
	if err != nil {
		return 0, errArg("unknown tag type %q", name)
	}
	return tag, nil
}

// nextTerm returns the first term of s and the input following it. A term
// is a run of non-blank characters, a quoted literal or a parenthesized
// group. Groups are returned verbatim so they can be parsed recursively.
func nextTerm(s string) (string, string, error) {
	s = strings.TrimLeft(s, " \t")

	var term strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case ' ', '\t':
			return term.String(), s[i+1:], nil
		case '\\':
			if i+1 >= len(s) {
				return "", "", errArg("missing character after escape in filter")
			}
			i++
			term.WriteByte(s[i])
		case '\'', '"':
			end, err := readLiteral(s, i, &term)
			if err != nil {
				return "", "", err
			}
			return term.String(), s[end+1:], nil
		case '(':
			end, err := matchParen(s, i)
			if err != nil {
				return "", "", err
			}
			term.WriteString(s[i : end+1])
			return term.String(), s[end+1:], nil
		default:
			term.WriteByte(c)
		}
	}
	return term.String(), "", nil
}

// readLiteral unescapes the quoted literal starting at s[start] into term
// and returns the index of its closing quote
func readLiteral(s string, start int, term *strings.Builder) (int, error) {
	quote := s[start]
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return 0, errArg("missing character after escape in filter")
			}
			i++
			term.WriteByte(s[i])
		case quote:
			return i, nil
		default:
			term.WriteByte(s[i])
		}
	}
	return 0, errArg("unterminated literal in filter %q", s[start:])
}

// matchParen returns the index of the parenthesis closing s[start]
func matchParen(s string, start int) (int, error) {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '\'', '"':
			quote := s[i]
			for i++; i < len(s) && s[i] != quote; i++ {
				if s[i] == '\\' {
					i++
				}
			}
			if i >= len(s) {
				return 0, errArg("unterminated literal in filter %q", s[start:])
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, errArg("missing ')' in filter %q", s[start:])
}

// Window selects a slice of the result. End is -1 when open.
type Window struct {
	Start int
	End   int
}

// Query is a filter with the optional sort and window modifiers of find and
// search
type Query struct {
	Filter     Filter
	Sort       *catalog.Tag
	Descending bool
	Window     *Window
}

// ParseQuery parses a filter followed by optional "sort TAG" and
// "window START:END" pairs
func ParseQuery(args []string) (Query, error) {
	var q Query

	var filterArgs []string
	if len(args) > 0 && strings.HasPrefix(args[0], "(") {
		filterArgs, args = args[:1], args[1:]
	} else {
		for len(args) >= 2 && !isModifier(args[0]) {
			filterArgs = append(filterArgs, args[0], args[1])
			args = args[2:]
		}
	}

	for len(args) > 0 {
		if len(args) < 2 {
			return Query{}, errArg("missing value for %q", args[0])
		}
		key, value := strings.ToLower(args[0]), args[1]
		args = args[2:]

		switch key {
		case "sort":
			name, desc := strings.CutPrefix(value, "-")
			tag, err := parseTag(name)
			if err != nil {
				return Query{}, err
			}
			q.Sort, q.Descending = &tag, desc
		case "window":
			start, end, err := parseRange(value)
			if err != nil {
				return Query{}, err
			}
			q.Window = &Window{Start: start, End: end}
		default:
			return Query{}, errArg("unexpected argument %q", key)
		}
	}

	filter, err := ParseFilter(filterArgs)
	if err != nil {
		return Query{}, err
	}
	q.Filter = filter
	return q, nil
}

func isModifier(arg string) bool {
	switch strings.ToLower(arg) {
	case "sort", "window":
		return true
	}
	return false
}

// Apply filters, sorts and windows items
func (q Query) Apply(items []*catalog.Item, caseSensitive bool) []*catalog.Item {
	var matched []*catalog.Item
	for _, it := range items {
		if q.Filter.Match(it, caseSensitive) {
			matched = append(matched, it)
		}
	}

	if q.Sort != nil {
		tag := *q.Sort
		key := func(it *catalog.Item) string {
			values, _ := it.TagValues(tag)
			if len(values) == 0 {
				return ""
			}
			return values[0]
		}
		sort.SliceStable(matched, func(i, j int) bool {
			if q.Descending {
				return key(matched[i]) > key(matched[j])
			}
			return key(matched[i]) < key(matched[j])
		})
	}

	if q.Window != nil {
		start, end := q.Window.Start, q.Window.End
		if end < 0 || end > len(matched) {
			end = len(matched)
		}
		if start > end {
			start = end
		}
		matched = matched[start:end]
	}
	return matched
}
