package goRecovery

import (
	"fmt"
	"strings"
)

// Locale selects the catalog used for default user-visible messages.
type Locale string

const (
	LocaleEnglish Locale = "en"
	LocaleFrench  Locale = "fr"
)

var messageCatalog = map[Locale]map[Kind]string{
	LocaleEnglish: {
		KindUnknown:                     "Something went wrong. Please try again.",
		KindNotFound:                    "No account matches this name and email.",
		KindInvalidCredential:           "The default password is incorrect.",
		KindNoDefaultPasswordConfigured: "No default password is configured for this account. Contact your administrator.",
		KindNetworkUnavailable:          "Unable to reach the server. Check your connection and try again.",
		KindPasswordMismatch:            "The passwords do not match.",
		KindPasswordTooShort:            "The password must be at least %d characters long.",
		KindServerRejected:              "The server rejected the request.",
		KindMissingField:                "Please fill in all required fields.",
		KindRateLimited:                 "Too many attempts. Please wait before trying again.",
	},
	LocaleFrench: {
		KindUnknown:                     "Une erreur est survenue. Veuillez réessayer.",
		KindNotFound:                    "Aucun compte ne correspond à ce nom et cet email.",
		KindInvalidCredential:           "Le mot de passe par défaut est incorrect.",
		KindNoDefaultPasswordConfigured: "Aucun mot de passe par défaut n'est configuré pour ce compte. Contactez votre administrateur.",
		KindNetworkUnavailable:          "Impossible de joindre le serveur. Vérifiez votre connexion et réessayez.",
		KindPasswordMismatch:            "Les mots de passe ne correspondent pas.",
		KindPasswordTooShort:            "Le mot de passe doit contenir au moins %d caractères.",
		KindServerRejected:              "Le serveur a refusé la demande.",
		KindMissingField:                "Veuillez remplir tous les champs obligatoires.",
		KindRateLimited:                 "Trop de tentatives. Veuillez patienter avant de réessayer.",
	},
}

// ParseLocale maps a language tag such as "fr-FR" to a supported Locale,
// falling back to English.
func ParseLocale(tag string) Locale {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	if _, ok := messageCatalog[Locale(tag)]; ok {
		return Locale(tag)
	}
	return LocaleEnglish
}

// DefaultMessage returns the catalog text for kind in locale.
func DefaultMessage(locale Locale, kind Kind) string {
	return defaultMessage(locale, kind, defaultMinPasswordLength)
}

func defaultMessage(locale Locale, kind Kind, minLength int) string {
	catalog, ok := messageCatalog[locale]
	if !ok {
		catalog = messageCatalog[LocaleEnglish]
	}
	if msg, ok := catalog[kind]; ok {
		if kind == KindPasswordTooShort {
			return fmt.Sprintf(msg, minLength)
		}
		return msg
	}
	return catalog[KindUnknown]
}
