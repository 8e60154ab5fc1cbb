// Package password implements the password policy applied when accounts are
// created or their password changes. All failing rules are reported together.
package password

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/diewo77/go-asso/internal/i18n"
)

// ErrWeakPassword is matched (errors.Is) by every *ValidationError.
var ErrWeakPassword = errors.New("weak_password")

// Symbols is the set of accepted special characters.
const Symbols = `!@#$%^&*(),.?":{}|<>`

// DefaultMinLength is the policy floor when none is configured.
const DefaultMinLength = 8

// personalMinLen is the shortest fragment of personal data that is checked.
const personalMinLen = 3

// DefaultBlocklist holds sequences refused anywhere in a password (case-insensitive).
var DefaultBlocklist = []string{"123456", "password", "qwerty", "azerty", "abcdef"}

// Rule codes.
const (
	RuleTooShort         = "too_short"
	RuleMissingLowercase = "missing_lowercase"
	RuleMissingUppercase = "missing_uppercase"
	RuleMissingDigit     = "missing_digit"
	RuleMissingSymbol    = "missing_symbol"
	RuleBlocklisted      = "blocklisted"
	RulePersonalData     = "personal_data"
)

// Policy validates candidate passwords.
type Policy struct {
	MinLength int
	Blocklist []string
}

// NewPolicy returns the default policy with the given minimum length
// (DefaultMinLength when minLength <= 0).
func NewPolicy(minLength int) *Policy {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &Policy{MinLength: minLength, Blocklist: DefaultBlocklist}
}

// UserAttributes are the personal fields a password must not reuse.
type UserAttributes struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
}

// Violation is one failing rule. Param carries the rule argument
// (minimum length, blocklisted term, offending attribute).
type Violation struct {
	Code  string
	Param string
}

// Message renders the violation in lang.
func (v Violation) Message(lang string) string {
	msg := i18n.T(lang, v.Code)
	switch v.Code {
	case RuleTooShort, RuleBlocklisted:
		return fmt.Sprintf(strings.Replace(msg, "%d", "%s", 1), v.Param)
	case RuleMissingSymbol:
		return fmt.Sprintf(msg, Symbols)
	}
	return msg
}

// ValidationError aggregates every failing rule for one candidate.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message(i18n.DefaultLang))
	}
	return strings.Join(msgs, " ")
}

func (e *ValidationError) Unwrap() error { return ErrWeakPassword }

// Codes returns the failing rule codes in evaluation order (duplicates kept).
func (e *ValidationError) Codes() []string {
	codes := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		codes = append(codes, v.Code)
	}
	return codes
}

// Has reports whether code failed.
func (e *ValidationError) Has(code string) bool {
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Validate checks pw against every rule. user may be nil.
// It returns nil or a *ValidationError listing all failures.
func (p *Policy) Validate(pw string, user *UserAttributes) error {
	var out []Violation

	if utf8.RuneCountInString(pw) < p.MinLength {
		out = append(out, Violation{Code: RuleTooShort, Param: fmt.Sprint(p.MinLength)})
	}

	var lower, upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(Symbols, r):
			symbol = true
		}
	}
	if !lower {
		out = append(out, Violation{Code: RuleMissingLowercase})
	}
	if !upper {
		out = append(out, Violation{Code: RuleMissingUppercase})
	}
	if !digit {
		out = append(out, Violation{Code: RuleMissingDigit})
	}
	if !symbol {
		out = append(out, Violation{Code: RuleMissingSymbol})
	}

	folded := strings.ToLower(pw)
	for _, term := range p.Blocklist {
		if strings.Contains(folded, strings.ToLower(term)) {
			out = append(out, Violation{Code: RuleBlocklisted, Param: term})
		}
	}

	if user != nil {
		local := user.Email
		if i := strings.LastIndex(local, "@"); i >= 0 {
			local = local[:i]
		}
		attrs := []struct{ name, value string }{
			{"username", user.Username},
			{"first_name", user.FirstName},
			{"last_name", user.LastName},
			{"email", local},
		}
		for _, a := range attrs {
			if sharesFragment(folded, strings.ToLower(a.value)) {
				out = append(out, Violation{Code: RulePersonalData, Param: a.name})
			}
		}
	}

	if len(out) == 0 {
		return nil
	}
	return &ValidationError{Violations: out}
}

// sharesFragment reports whether pw contains any substring of attr of at least
// personalMinLen runes. Checking every window of exactly personalMinLen runes is
// enough: a longer shared substring always contains one.
func sharesFragment(pw, attr string) bool {
	runes := []rune(attr)
	for i := 0; i+personalMinLen <= len(runes); i++ {
		if strings.Contains(pw, string(runes[i:i+personalMinLen])) {
			return true
		}
	}
	return false
}

// HelpText describes the rules in lang.
func (p *Policy) HelpText(lang string) string {
	var b strings.Builder
	b.WriteString(i18n.T(lang, "help_intro"))
	rules := []Violation{
		{Code: RuleTooShort, Param: fmt.Sprint(p.MinLength)},
		{Code: RuleMissingLowercase},
		{Code: RuleMissingUppercase},
		{Code: RuleMissingDigit},
		{Code: RuleMissingSymbol},
	}
	for _, term := range p.Blocklist {
		rules = append(rules, Violation{Code: RuleBlocklisted, Param: term})
	}
	rules = append(rules, Violation{Code: RulePersonalData})
	for _, r := range rules {
		b.WriteString("\n- ")
		b.WriteString(r.Message(lang))
	}
	return b.String()
}
