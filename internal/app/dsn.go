package app

import (
	"net/url"
	"strings"
)

const maxTracedQueryLength = 512

// withApplicationName sets application_name on a postgres URL or keyword DSN
// unless the caller already chose one, so pg_stat_activity shows which
// process holds the settlement advisory lock.
func withApplicationName(dsn, name string) string {
	dsn = strings.TrimSpace(dsn)
	name = strings.TrimSpace(name)
	if dsn == "" || name == "" {
		return dsn
	}

	if parsed, err := url.Parse(dsn); err == nil && parsed.Scheme != "" {
		query := parsed.Query()
		if query.Get("application_name") != "" {
			return dsn
		}
		query.Set("application_name", name)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	if _, ok := keywordDSN(dsn)["application_name"]; ok {
		return dsn
	}
	return dsn + " application_name=" + quoteDSNValue(name)
}

// databaseName reads the database from either DSN form.
func databaseName(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if parsed, err := url.Parse(dsn); err == nil && parsed.Scheme != "" {
		return strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/"))
	}
	return keywordDSN(dsn)["dbname"]
}

func keywordDSN(dsn string) map[string]string {
	out := make(map[string]string)
	for _, token := range strings.Fields(dsn) {
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return out
}

func quoteDSNValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// traceQuery collapses whitespace so multi-line statements read as one span
// attribute.
func traceQuery(query string) string {
	normalized := strings.Join(strings.Fields(query), " ")
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}
	return normalized[:maxTracedQueryLength] + "..."
}
