package detect

// CommonPatterns maps well-known PII categories to ready-to-use regex
// patterns, usable directly as Compile inputs.
var CommonPatterns = map[string]string{
	"ssn":          `\b\d{3}-\d{2}-\d{4}\b`,
	"ssn_nohyphen": `\b\d{9}\b`,
	"email":        `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`,
	"phone":        `\b\(?(\d{3})\)?[-.\s]?(\d{3})[-.\s]?(\d{4})\b`,
	"credit_card":  `\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`,
	"ip_address":   `\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`,
	"date":         `\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`,
	"zip_code":     `\b\d{5}(?:-\d{4})?\b`,
}
