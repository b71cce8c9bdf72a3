// Package security classifies inbound request fields against a declarative
// set of attack signatures.
//
// Any single match marks the whole request malicious. There is no scoring and
// no allow-listing, so some legitimate values are rejected: a surname written
// with a double hyphen ("Smith--Jones") matches the SQL comment rule. That
// tradeoff is accepted rather than special-cased.
package security

import "regexp"

// Category groups rules into signature families
type Category string

const (
	CategorySQLKeyword      Category = "sql_keyword"
	CategorySQLDelimiter    Category = "sql_delimiter"
	CategoryXSS             Category = "xss"
	CategoryTautology       Category = "tautology"
	CategoryUnion           Category = "union"
	CategoryInlineComment   Category = "inline_comment"
	CategoryTimeBased       Category = "time_based"
	CategorySchemaProbe     Category = "schema_probe"
	CategoryStringFunction  Category = "string_function"
	CategoryPercentEncoding Category = "percent_encoding"
	CategoryNoSQL           Category = "nosql"
	CategoryShell           Category = "shell"
	CategoryPathTraversal   Category = "path_traversal"
	CategoryLDAP            Category = "ldap"
)

// Rule is one named signature
type Rule struct {
	Name     string
	Category Category
	Pattern  *regexp.Regexp
}

// Matches reports whether value carries the signature
func (r Rule) Matches(value string) bool {
	return r.Pattern.MatchString(value)
}

func rule(name string, category Category, pattern string) Rule {
	return Rule{
		Name:     name,
		Category: category,
		Pattern:  regexp.MustCompile(`(?i)` + pattern),
	}
}

// DefaultRules returns the signature set in evaluation order
func DefaultRules() []Rule {
	return []Rule{
		rule("sql-statement", CategorySQLKeyword,
			`\b(select\s+[\w*,\s()]+\s+from|insert\s+into|update\s+\w+\s+set|delete\s+from|drop\s+(table|database|schema)|alter\s+table|truncate\s+table|create\s+(table|database|user)|exec(ute)?\s*\(|exec\s+(xp_|sp_))`),
		rule("sql-comment-or-terminator", CategorySQLDelimiter,
			`(--|/\*|\*/|;)`),
		rule("quote-then-comment", CategorySQLDelimiter,
			`['"]\s*#`),
		rule("script-tag", CategoryXSS,
			`<\s*/?\s*script\b`),
		rule("javascript-uri", CategoryXSS,
			`(java|vb)script\s*:`),
		rule("event-handler-attribute", CategoryXSS,
			`\bon(error|load|click|mouseover|focus|blur|submit|change|input|keyup|keydown)\s*=`),
		rule("embedded-element", CategoryXSS,
			`<\s*(iframe|img|svg|object|embed|body|link|meta|style)\b`),
		rule("boolean-tautology", CategoryTautology,
			`\b(or|and)\s+['"]?\w+['"]?\s*(=|<>|!=|<|>|\blike\b)\s*['"]?\w+`),
		rule("quoted-boolean", CategoryTautology,
			`['"]\s*(or|and)\s*['"(\d]`),
		rule("union-select", CategoryUnion,
			`\bunion\b(\s+(all|distinct))?\s+select\b`),
		rule("versioned-comment", CategoryInlineComment,
			`/\*!\d*`),
		rule("comment-padded-keyword", CategoryInlineComment,
			`\*/\s*(select|union|or|and|from|where)\b`),
		rule("sleep-function", CategoryTimeBased,
			`\b(sleep|pg_sleep|benchmark)\s*\(`),
		rule("waitfor-delay", CategoryTimeBased,
			`\bwaitfor\s+(delay|time)\b`),
		rule("information-schema", CategorySchemaProbe,
			`\binformation_schema\b|\bpg_catalog\b|\bsys\.(tables|columns|objects|databases)\b|\bmysql\.user\b|\bsqlite_master\b`),
		rule("string-function", CategoryStringFunction,
			`\b(char|chr|concat|concat_ws|substring|substr|ascii|hex|unhex|load_file|group_concat|mid|ord)\s*\(`),
		rule("encoded-metacharacter", CategoryPercentEncoding,
			`%(27|22|3c|3e|3b|00|23|60|7c)`),
		rule("encoded-sequence", CategoryPercentEncoding,
			`%2d%2d|%2e%2e|%2f%2a|%252e`),
		rule("query-operator", CategoryNoSQL,
			`\$(ne|eq|gt|gte|lt|lte|in|nin|regex|where|exists|or|and|not|nor|expr|elemmatch)\b`),
		rule("command-substitution", CategoryShell,
			"\\$\\(|`|\\$\\{"),
		rule("chained-command", CategoryShell,
			`(&&|\|\||[;&|])\s*(cat|ls|rm|wget|curl|nc|ncat|bash|sh|zsh|whoami|uname|id|ping|chmod|chown|python\d?|perl|ruby|php|echo|kill)\b`),
		rule("dot-dot-slash", CategoryPathTraversal,
			`\.\.[/\\]`),
		rule("sensitive-path", CategoryPathTraversal,
			`/etc/(passwd|shadow|hosts|group)\b|\bboot\.ini\b|c:\\windows\\|/proc/self/`),
		rule("filter-break", CategoryLDAP,
			`\*\)\(|\)\(\||\)\(&|\)\(!`),
		rule("filter-open", CategoryLDAP,
			`\(\s*[|&!]\s*\(`),
	}
}
