package query

import (
	"strings"
	"time"
)

// ExpansionConfig governs Expand's behavior.
type ExpansionConfig struct {
	Enabled           bool
	MaxExpansionTerms int
	CustomExpansions  map[string]string
}

// DefaultExpansionConfig returns the default expansion settings: enabled,
// capped at 10 expansion terms.
func DefaultExpansionConfig() ExpansionConfig {
	return ExpansionConfig{Enabled: true, MaxExpansionTerms: 10}
}

// Details is the richer result expandWithDetails returns alongside the
// expanded query string.
type Details struct {
	OriginalQuery     string
	ExpandedQuery     string
	ExpandedTerms     []string
	AppliedExpansions map[string]string
	ExpansionTimeMs   float64
}

// staticExpansions is the built-in abbreviation/synonym dictionary,
// covering authentication, database, API, errors, config, testing, and
// common code abbreviations.
var staticExpansions = map[string]string{
	// authentication
	"auth":     "authentication authorization",
	"authn":    "authentication",
	"authz":    "authorization",
	"login":    "signin authenticate",
	"logout":   "signout",
	"jwt":      "json web token",
	"oauth":    "open authorization",
	"sso":      "single sign-on",
	"2fa":      "two factor authentication",
	"mfa":      "multi factor authentication",
	"acl":      "access control list",
	"rbac":     "role based access control",
	"passwd":   "password",
	"creds":    "credentials",
	"token":    "access token session token",

	// database
	"db":     "database",
	"dbs":    "databases",
	"sql":    "structured query language",
	"orm":    "object relational mapping",
	"crud":   "create read update delete",
	"tx":     "transaction",
	"repo":   "repository",
	"migr":   "migration",
	"idx":    "index",
	"pk":     "primary key",
	"fk":     "foreign key",
	"conn":   "connection",
	"pool":   "connection pool",
	"schema": "database schema",

	// API / networking
	"api":     "application programming interface",
	"rest":    "representational state transfer",
	"rpc":     "remote procedure call",
	"grpc":    "google remote procedure call",
	"http":    "hypertext transfer protocol",
	"req":     "request",
	"resp":    "response",
	"endpoint": "route handler",
	"middleware": "interceptor handler chain",
	"cors":    "cross origin resource sharing",
	"ws":      "websocket",
	"webhook": "callback http notification",
	"url":     "uniform resource locator",
	"uri":     "uniform resource identifier",

	// errors
	"err":       "error",
	"errs":      "errors",
	"exc":       "exception",
	"exception": "error exception",
	"panic":     "crash fatal error",
	"stacktrace": "stack trace traceback",
	"traceback": "stack trace",
	"bug":       "defect issue",
	"fatal":     "critical error",
	"retry":     "retry backoff",

	// config
	"cfg":     "config configuration",
	"config":  "configuration settings",
	"env":     "environment variable",
	"envvar":  "environment variable",
	"yaml":    "yml configuration file",
	"toml":    "configuration file",
	"opts":    "options",
	"param":   "parameter",
	"params":  "parameters",
	"flag":    "command line flag option",

	// testing
	"test":  "test spec",
	"tests": "test suite",
	"spec":  "specification test",
	"mock":  "stub fake",
	"fixture": "test fixture setup data",
	"e2e":   "end to end",
	"unit":  "unit test",
	"ci":    "continuous integration",
	"cd":    "continuous delivery deployment",
	"cov":   "coverage",

	// common abbreviations
	"fn":     "function",
	"func":   "function",
	"impl":   "implementation",
	"ctx":    "context",
	"cb":     "callback",
	"async":  "asynchronous",
	"sync":   "synchronous",
	"ptr":    "pointer",
	"str":    "string",
	"struct": "struct type",
	"iface":  "interface",
	"var":    "variable",
	"const":  "constant",
	"pkg":    "package module",
	"util":   "utility helper",
	"utils":  "utilities helpers",
	"svc":    "service",
	"mgr":    "manager",
	"ctrl":   "controller",
	"srv":    "server",
	"cli":    "command line interface",
}

// tokenize splits q on whitespace, preserving original casing and order.
func tokenize(q string) []string {
	return strings.Fields(q)
}

// Expand returns q unchanged when cfg.Enabled is false; otherwise it
// appends deduplicated expansion tokens after the original tokens, capped
// at cfg.MaxExpansionTerms.
func Expand(q string, cfg ExpansionConfig) string {
	d := ExpandWithDetails(q, cfg)
	return d.ExpandedQuery
}

// ExpandWithDetails is Expand plus the bookkeeping callers use to explain
// what happened and how long it took.
func ExpandWithDetails(q string, cfg ExpansionConfig) Details {
	start := time.Now()
	d := Details{OriginalQuery: q, ExpandedQuery: q, AppliedExpansions: map[string]string{}}

	if !cfg.Enabled {
		d.ExpansionTimeMs = elapsedMs(start)
		return d
	}

	maxTerms := cfg.MaxExpansionTerms
	if maxTerms <= 0 {
		maxTerms = DefaultExpansionConfig().MaxExpansionTerms
	}

	tokens := tokenize(q)
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		seen[strings.ToLower(t)] = true
	}

	var expandedTerms []string
	for _, t := range tokens {
		lower := strings.ToLower(t)
		expansion, ok := cfg.CustomExpansions[lower]
		if !ok {
			expansion, ok = staticExpansions[lower]
		}
		if !ok {
			continue
		}
		for _, term := range strings.Fields(expansion) {
			if len(expandedTerms) >= maxTerms {
				break
			}
			termLower := strings.ToLower(term)
			if seen[termLower] {
				continue
			}
			seen[termLower] = true
			expandedTerms = append(expandedTerms, term)
		}
		d.AppliedExpansions[lower] = expansion
	}

	d.ExpandedTerms = expandedTerms
	if len(expandedTerms) > 0 {
		d.ExpandedQuery = q + " " + strings.Join(expandedTerms, " ")
	}
	d.ExpansionTimeMs = elapsedMs(start)
	return d
}

// elapsedMs returns the milliseconds elapsed since start, fractional.
func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Nanoseconds()) / 1e6
}
