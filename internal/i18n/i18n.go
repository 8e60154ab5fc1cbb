// Package i18n holds the few user-facing messages the core produces
// (password policy rules). French is the default language.
package i18n

import "strings"

// DefaultLang is used when the requested language has no translation.
const DefaultLang = "fr"

var messages = map[string]map[string]string{
	"fr": {
		"too_short":         "Le mot de passe doit contenir au moins %d caractères.",
		"missing_lowercase": "Le mot de passe doit contenir au moins une lettre minuscule.",
		"missing_uppercase": "Le mot de passe doit contenir au moins une lettre majuscule.",
		"missing_digit":     "Le mot de passe doit contenir au moins un chiffre.",
		"missing_symbol":    "Le mot de passe doit contenir au moins un caractère spécial (%s).",
		"blocklisted":       "Le mot de passe ne doit pas contenir la séquence « %s ».",
		"personal_data":     "Le mot de passe ne doit pas contenir d'informations personnelles (nom, prénom, identifiant, email).",
		"help_intro":        "Votre mot de passe doit respecter les règles suivantes :",
	},
	"en": {
		"too_short":         "The password must contain at least %d characters.",
		"missing_lowercase": "The password must contain at least one lowercase letter.",
		"missing_uppercase": "The password must contain at least one uppercase letter.",
		"missing_digit":     "The password must contain at least one digit.",
		"missing_symbol":    "The password must contain at least one special character (%s).",
		"blocklisted":       "The password must not contain the sequence %q.",
		"personal_data":     "The password must not contain personal information (name, username, email).",
		"help_intro":        "Your password must follow these rules:",
	},
}

// DetectLanguage picks a supported language from an Accept-Language style
// value or a POSIX locale such as "en_US.UTF-8".
func DetectLanguage(accept string) string {
	for _, part := range strings.Split(accept, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag == "" {
			continue
		}
		fields := strings.FieldsFunc(tag, func(r rune) bool { return r == '-' || r == '_' || r == '.' })
		if len(fields) == 0 {
			continue
		}
		base := strings.ToLower(fields[0])
		if _, ok := messages[base]; ok {
			return base
		}
	}
	return DefaultLang
}

// T returns the message for code in lang, falling back to French, then to code itself.
func T(lang, code string) string {
	if m, ok := messages[strings.ToLower(lang)]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLang][code]; ok {
		return s
	}
	return code
}
