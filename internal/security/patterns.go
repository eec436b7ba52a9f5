package security

import "regexp"

// Static signature tables, compiled once at init and evaluated in a single
// linear pass per request. Keep entries lowercase-insensitive via (?i).

// suspiciousAgentPatterns match known attack tools, scanners and inline
// script payloads smuggled through the User-Agent header. A blank
// User-Agent is handled separately by the detector.
var suspiciousAgentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sqlmap`),
	regexp.MustCompile(`(?i)nikto`),
	regexp.MustCompile(`(?i)\bnmap\b`),
	regexp.MustCompile(`(?i)masscan`),
	regexp.MustCompile(`(?i)dirbuster|gobuster|wfuzz|ffuf`),
	regexp.MustCompile(`(?i)wpscan|joomscan`),
	regexp.MustCompile(`(?i)hydra|medusa|brutus`),
	regexp.MustCompile(`(?i)metasploit|meterpreter`),
	regexp.MustCompile(`(?i)acunetix|netsparker|qualys`),
	regexp.MustCompile(`(?i)havij|pangolin`),
	regexp.MustCompile(`(?i)<script[\s>]`),
	regexp.MustCompile(`(?i)\(\)\s*\{\s*:;\s*\};`), // shellshock probe
}

// traversalPatterns match directory traversal sequences (raw and
// percent-encoded), sensitive system directories and credential/key file
// extensions.
var traversalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.\./`),
	regexp.MustCompile(`\.\.\\`),
	regexp.MustCompile(`(?i)%2e%2e[/\\]`),
	regexp.MustCompile(`(?i)%2e%2e%2f`),
	regexp.MustCompile(`(?i)\.\.%2f`),
	regexp.MustCompile(`(?i)%252e%252e`),
	regexp.MustCompile(`(?i)/etc/(passwd|shadow|hosts|group)`),
	regexp.MustCompile(`(?i)/proc/self`),
	regexp.MustCompile(`(?i)c:[/\\]+(windows|boot\.ini|inetpub)`),
	regexp.MustCompile(`(?i)\.(env|pem|key|p12|pfx|htpasswd|npmrc|git/config)(\?|$|&)`),
	regexp.MustCompile(`(?i)(id_rsa|id_dsa|\.ssh/)`),
}

// sqlInjectionPatterns are heuristics over the combined query string,
// bounded body and path: keyword sequences, boolean tautologies and comment
// markers.
var sqlInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)union\s+(all\s+)?select`),
	regexp.MustCompile(`(?i)select\s+.+\s+from\s+`),
	regexp.MustCompile(`(?i)insert\s+into\s+.+\s+values`),
	regexp.MustCompile(`(?i)(drop|truncate)\s+table`),
	regexp.MustCompile(`(?i)delete\s+from\s+`),
	regexp.MustCompile(`(?i)\bor\b\s+\d+\s*=\s*\d+`),
	regexp.MustCompile(`(?i)\bor\b\s*'[^']*'\s*=\s*'[^']*'`),
	regexp.MustCompile(`(?i)'\s*(or|and)\s+.*(=|like)`),
	regexp.MustCompile(`(?i)(sleep|benchmark|pg_sleep)\s*\(`),
	regexp.MustCompile(`(?i)(load_file|into\s+(out|dump)file)\s*\(?`),
	regexp.MustCompile(`(--|#)\s*$`),
	regexp.MustCompile(`/\*.*\*/`),
	regexp.MustCompile(`(?i);\s*(drop|delete|update|insert|alter)\b`),
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
