package rules

// DefaultRules returns a fresh copy of the built-in rule set.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, 32)
	rules = append(rules, secretRules()...)
	rules = append(rules, injectionRules()...)
	rules = append(rules, performanceRules()...)
	rules = append(rules, qualityRules()...)
	return rules
}

func secretRules() []Rule {
	secret := func(name, pattern, what string) Rule {
		return Rule{
			Name:        name,
			Category:    CategorySecrets,
			Type:        TypeHardcodedSecret,
			Matcher:     mustRegex(pattern, 1),
			Severity:    SeverityCritical,
			Message:     "Hardcoded " + what + " detected ({count} occurrence(s))",
			Remediation: "Load " + what + "s from environment variables or a secret manager",
			Redact:      true,
		}
	}
	return []Rule{
		secret("password-assignment", `(?i)\b(?:password|passwd|pwd)\s*[:=]\s*["']([^"'\s]{4,})["']`, "password"),
		secret("api-key-assignment", `(?i)\b(?:api[_-]?key|apikey)\s*[:=]\s*["']([^"'\s]{8,})["']`, "API key"),
		secret("secret-assignment", `(?i)\b(?:secret|client[_-]?secret|secret[_-]?key)\s*[:=]\s*["']([^"'\s]{6,})["']`, "secret"),
		secret("token-assignment", `(?i)\b(?:access[_-]?token|auth[_-]?token|token)\s*[:=]\s*["']([^"'\s]{8,})["']`, "token"),
		secret("aws-access-key", `\b(AKIA[0-9A-Z]{16})\b`, "AWS access key"),
		secret("github-token", `\b(gh[pousr]_[A-Za-z0-9]{36,})\b`, "GitHub token"),
		secret("private-key", `(-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----)`, "private key"),
	}
}

func injectionRules() []Rule {
	return []Rule{
		{
			Name:        "sql-concatenation",
			Category:    CategorySQLInjection,
			Type:        TypeSQLInjection,
			Matcher:     mustRegex(`(?i)["'\x60]\s*(?:SELECT|INSERT|UPDATE|DELETE)\b[^"'\x60]*["'\x60]\s*\+`, 0),
			Severity:    SeverityCritical,
			Message:     "SQL query built by string concatenation",
			Remediation: "Use parameterized queries or prepared statements",
		},
		{
			Name:        "sql-template-interpolation",
			Category:    CategorySQLInjection,
			Type:        TypeSQLInjection,
			Matcher:     mustRegex(`(?i)\x60\s*(?:SELECT|INSERT|UPDATE|DELETE)\b[^\x60]*\$\{`, 0),
			Severity:    SeverityCritical,
			Message:     "SQL query built with template interpolation",
			Remediation: "Use parameterized queries or prepared statements",
		},
		{
			Name:        "sql-format-string",
			Category:    CategorySQLInjection,
			Type:        TypeSQLInjection,
			Matcher:     mustRegex(`(?i)(?:sprintf|format)\s*\(\s*["'](?:SELECT|INSERT|UPDATE|DELETE)\b[^"']*%[sdv]`, 0),
			Severity:    SeverityCritical,
			Message:     "SQL query built with a format string",
			Remediation: "Pass values as query arguments instead of formatting them into SQL",
		},
		{
			Name:        "inner-html-assignment",
			Category:    CategoryXSS,
			Type:        TypeXSS,
			Matcher:     mustRegex(`\.(?:innerHTML|outerHTML)\s*=[^=]`, 0),
			Severity:    SeverityHigh,
			Message:     "Direct HTML assignment may allow XSS",
			Remediation: "Use textContent or sanitize HTML before insertion",
		},
		{
			Name:        "document-write",
			Category:    CategoryXSS,
			Type:        TypeXSS,
			Matcher:     mustRegex(`\bdocument\.write(?:ln)?\s*\(`, 0),
			Severity:    SeverityHigh,
			Message:     "document.write may allow XSS",
			Remediation: "Build DOM nodes explicitly instead of writing markup",
		},
		{
			Name:        "dangerously-set-inner-html",
			Category:    CategoryXSS,
			Type:        TypeXSS,
			Matcher:     mustRegex(`\bdangerouslySetInnerHTML\b`, 0),
			Severity:    SeverityHigh,
			Message:     "dangerouslySetInnerHTML bypasses React escaping",
			Remediation: "Render text content or sanitize with a vetted library",
		},
		{
			Name:        "insert-adjacent-html",
			Category:    CategoryXSS,
			Type:        TypeXSS,
			Matcher:     mustRegex(`\.insertAdjacentHTML\s*\(`, 0),
			Severity:    SeverityHigh,
			Message:     "insertAdjacentHTML may allow XSS",
			Remediation: "Use insertAdjacentText or sanitize HTML first",
		},
		{
			Name:        "exec-interpolation",
			Category:    CategoryCommandInjection,
			Type:        TypeCommandInjection,
			Matcher:     mustRegex(`\b(?:exec|execSync|spawn|spawnSync)\s*\(\s*\x60[^\x60]*\$\{`, 0),
			Severity:    SeverityCritical,
			Message:     "Shell command built with template interpolation",
			Remediation: "Pass arguments as an array to execFile/spawn without a shell",
		},
		{
			Name:        "exec-concatenation",
			Category:    CategoryCommandInjection,
			Type:        TypeCommandInjection,
			Matcher:     mustRegex(`\b(?:exec|execSync|spawn|spawnSync)\s*\(\s*["'][^"']*["']\s*\+`, 0),
			Severity:    SeverityCritical,
			Message:     "Shell command built by string concatenation",
			Remediation: "Pass arguments as an array to execFile/spawn without a shell",
		},
		{
			Name:        "eval-call",
			Category:    CategoryCommandInjection,
			Type:        TypeCommandInjection,
			Matcher:     mustRegex(`\beval\s*\(`, 0),
			Severity:    SeverityCritical,
			Message:     "eval executes arbitrary code",
			Remediation: "Replace eval with explicit parsing or a lookup table",
		},
		{
			Name:        "shell-system-call",
			Category:    CategoryCommandInjection,
			Type:        TypeCommandInjection,
			Matcher:     mustRegex(`\bos\.system\s*\(|\bsubprocess\.\w+\([^)]*shell\s*=\s*True`, 0),
			Severity:    SeverityCritical,
			Message:     "Command runs through a shell",
			Remediation: "Use subprocess with an argument list and shell=False",
		},
	}
}

func performanceRules() []Rule {
	return []Rule{
		{
			Name:        "indexof-membership",
			Category:    CategoryPerformance,
			Type:        TypeHashmapPerformance,
			Matcher:     mustRegex(`\.indexOf\([^)]*\)\s*(?:!==|===|!=|==|>=|>|<)\s*-?[01]\b`, 0),
			Severity:    SeverityMedium,
			Message:     "Linear membership check with indexOf",
			Remediation: "Use a Set or Map for O(1) lookups",
		},
		{
			Name:        "for-in-iteration",
			Category:    CategoryPerformance,
			Type:        TypeHashmapPerformance,
			Matcher:     mustRegex(`\bfor\s*\(\s*(?:const|let|var)\s+\w+\s+in\s+`, 0),
			Severity:    SeverityLow,
			Message:     "for...in iterates inherited keys and is slow on large objects",
			Remediation: "Use a Map, or Object.keys with for...of",
		},
		{
			Name:        "nested-loop",
			Category:    CategoryPerformance,
			Type:        TypePerformance,
			Matcher:     mustRegex(`\bfor\s*\([^)]*\)\s*\{[^{}]*\bfor\s*\(`, 0),
			Severity:    SeverityMedium,
			Message:     "Nested loops may be O(n^2)",
			Remediation: "Index one side with a Map or Set",
		},
		{
			Name:        "await-in-loop",
			Category:    CategoryPerformance,
			Type:        TypePerformance,
			Matcher:     mustRegex(`\bfor\s*\([^)]*\)\s*\{[^}]*\bawait\b`, 0),
			Severity:    SeverityMedium,
			Message:     "Sequential await inside a loop",
			Remediation: "Collect promises and await Promise.all",
		},
		{
			Name:        "sync-io",
			Category:    CategoryPerformance,
			Type:        TypePerformance,
			Matcher:     mustRegex(`\b(?:readFileSync|writeFileSync|appendFileSync|existsSync)\s*\(`, 0),
			Severity:    SeverityMedium,
			Message:     "Synchronous file I/O blocks the event loop",
			Remediation: "Use the promise-based fs API",
		},
		{
			Name:        "json-deep-clone",
			Category:    CategoryPerformance,
			Type:        TypePerformance,
			Matcher:     mustRegex(`JSON\.parse\s*\(\s*JSON\.stringify\s*\(`, 0),
			Severity:    SeverityLow,
			Message:     "Deep clone through JSON serialization",
			Remediation: "Use structuredClone or copy only what is needed",
		},
	}
}

func qualityRules() []Rule {
	return []Rule{
		{
			Name:        "await-without-error-handling",
			Category:    CategoryQuality,
			Type:        TypeMissingErrorHandling,
			Matcher:     mustUnguarded(mustRegex(`\bawait\b`, 0), `\btry\s*\{`, `\.catch\s*\(`),
			Severity:    SeverityMedium,
			Message:     "Asynchronous code without error handling",
			Remediation: "Wrap awaited calls in try/catch or attach .catch()",
		},
		{
			Name:        "hardcoded-ip",
			Category:    CategoryQuality,
			Type:        TypeHardcodedValue,
			Matcher:     mustFilter(mustRegex(`\b(?:\d{1,3}\.){3}\d{1,3}\b`, 0), `^(?:127\.0\.0\.1|0\.0\.0\.0)$`),
			Severity:    SeverityLow,
			Message:     "Hardcoded IP address",
			Remediation: "Move addresses to configuration",
		},
		{
			Name:        "hardcoded-url",
			Category:    CategoryQuality,
			Type:        TypeHardcodedValue,
			Matcher:     mustFilter(mustRegex(`https?://[^\s"'\x60)]+`, 0), `^https?://(?:localhost|127\.0\.0\.1)(?:[:/]|$)`),
			Severity:    SeverityLow,
			Message:     "Hardcoded URL",
			Remediation: "Move endpoints to configuration",
		},
		{
			Name:        "hardcoded-port",
			Category:    CategoryQuality,
			Type:        TypeHardcodedValue,
			Matcher:     mustRegex(`(?i)\bport\s*[:=]\s*(\d{2,5})\b`, 1),
			Severity:    SeverityLow,
			Message:     "Hardcoded port number",
			Remediation: "Read the port from configuration or the environment",
		},
		{
			Name:        "interval-without-clear",
			Category:    CategoryQuality,
			Type:        TypeMemoryLeak,
			Matcher:     mustUnguarded(mustRegex(`\bsetInterval\s*\(`, 0), `\bclearInterval\s*\(`),
			Severity:    SeverityHigh,
			Message:     "setInterval without clearInterval",
			Remediation: "Keep the interval id and clear it on teardown",
		},
		{
			Name:        "listener-without-removal",
			Category:    CategoryQuality,
			Type:        TypeMemoryLeak,
			Matcher:     mustUnguarded(mustRegex(`\.addEventListener\s*\(`, 0), `\.removeEventListener\s*\(`),
			Severity:    SeverityHigh,
			Message:     "addEventListener without removeEventListener",
			Remediation: "Remove listeners on teardown or use an AbortController signal",
		},
	}
}
