package password

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codesOf(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Codes()
}

func TestValidate_StrongPassword(t *testing.T) {
	p := NewPolicy(0)
	assert.NoError(t, p.Validate("Str0ng!Pass", nil))
}

func TestValidate_AzertyReportsEveryFailure(t *testing.T) {
	p := NewPolicy(8)
	err := p.Validate("azerty12", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWeakPassword))
	assert.ElementsMatch(t,
		[]string{RuleMissingUppercase, RuleMissingSymbol, RuleBlocklisted},
		codesOf(t, err))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "azerty", verr.Violations[len(verr.Violations)-1].Param)
}

func TestValidate_NoShortCircuit(t *testing.T) {
	p := NewPolicy(12)
	// every rule fails at once, including two blocklist terms
	err := p.Validate("qwerty123456", nil)
	codes := codesOf(t, err)
	assert.ElementsMatch(t, []string{
		RuleMissingUppercase,
		RuleMissingSymbol,
		RuleBlocklisted,
		RuleBlocklisted,
	}, codes)

	err = p.Validate("", nil)
	assert.ElementsMatch(t, []string{
		RuleTooShort,
		RuleMissingLowercase,
		RuleMissingUppercase,
		RuleMissingDigit,
		RuleMissingSymbol,
	}, codesOf(t, err))
}

func TestValidate_RulesAreIndependent(t *testing.T) {
	p := NewPolicy(8)
	tests := []struct {
		name string
		pw   string
		want []string
	}{
		{"too short", "Ab1!", []string{RuleTooShort}},
		{"no lowercase", "ABCD1234!", []string{RuleMissingLowercase}},
		{"no uppercase", "abcd1234!", []string{RuleMissingUppercase}},
		{"no digit", "Abcdefgh!", []string{RuleMissingDigit, RuleBlocklisted}},
		{"no symbol", "Abcd12345", []string{RuleMissingSymbol}},
		{"blocklist is case-insensitive", "PassWORD1!", []string{RuleBlocklisted}},
		{"non ascii letters do not count", "ÉÉÉÉéééé1!", []string{RuleMissingLowercase, RuleMissingUppercase}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, codesOf(t, p.Validate(tt.pw, nil)))
		})
	}
}

func TestValidate_PersonalData(t *testing.T) {
	p := NewPolicy(8)

	// "bob" is not a substring of the password
	assert.NoError(t, p.Validate("Str0ng!Pass", &UserAttributes{Email: "bob@x"}))

	err := p.Validate("Xdupont9!", &UserAttributes{LastName: "Dupont"})
	assert.Equal(t, []string{RulePersonalData}, codesOf(t, err))

	// three-letter fragment of the email local part
	err = p.Validate("Zz9!lic3Q", &UserAttributes{Email: "alice@example.com"})
	assert.Equal(t, []string{RulePersonalData}, codesOf(t, err))

	// names shorter than three runes give no protection
	assert.NoError(t, p.Validate("Str0ng!Al", &UserAttributes{FirstName: "Al"}))

	// the domain part of the email is ignored
	assert.NoError(t, p.Validate("Str0ng!Exa", &UserAttributes{Email: "zz@example.com"}))
}

func TestValidationError_Message(t *testing.T) {
	err := NewPolicy(10).Validate("azerty", nil)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "10 caractères")
	assert.Contains(t, msg, "« azerty »")
}

func TestHelpText(t *testing.T) {
	p := NewPolicy(8)
	fr := p.HelpText("fr")
	en := p.HelpText("en")
	assert.True(t, strings.HasPrefix(fr, "Votre mot de passe"))
	assert.True(t, strings.HasPrefix(en, "Your password"))
	assert.Contains(t, fr, "8 caractères")
	assert.Contains(t, en, Symbols)
	for _, term := range DefaultBlocklist {
		assert.Contains(t, en, term)
	}
	// unsupported language falls back to French
	assert.Equal(t, fr, p.HelpText("es"))
}
