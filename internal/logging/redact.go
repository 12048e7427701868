package logging

import "regexp"

type redactRule struct {
	pattern *regexp.Regexp
	replace string
}

// redactRules cover OAuth bearer tokens and the secrets of a service-account key file
var redactRules = []redactRule{
	{regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-._~+/]+=*`), "Bearer [REDACTED]"},
	{regexp.MustCompile(`(access_token|refresh_token|id_token)["']?\s*[:=]\s*["']?[A-Za-z0-9\-._~+/]+=*`), "$1=[REDACTED]"},
	{regexp.MustCompile(`(?i)authorization["']?\s*[:=]\s*["']?[^\s"']+`), "Authorization: [REDACTED]"},
	{regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[^-]*-----END [A-Z ]*PRIVATE KEY-----`), "[REDACTED PRIVATE KEY]"},
	{regexp.MustCompile(`"(private_key|private_key_id)"\s*:\s*"[^"]*"`), `"$1": "[REDACTED]"`},
}

// Redact masks credentials in s
func Redact(s string) string {
	for _, r := range redactRules {
		s = r.pattern.ReplaceAllString(s, r.replace)
	}
	return s
}

// redactFields returns fields with string values masked; fields is not modified
func redactFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f
		if s, ok := f.Value.(string); ok {
			out[i].Value = Redact(s)
		}
	}
	return out
}
