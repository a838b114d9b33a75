package convert

import (
	"strings"

	"github.com/imlich/cardsync/internal/config"
)

// ClassifyShowAs decides how a contact should be displayed. A record that
// already carries a classification keeps it, unless the organization was
// cleared, which forces it back to an individual. A fresh record with an
// organization but no personal name parts is treated as a company.
func ClassifyShowAs(rec *Record) string {
	org := rec.Single[KeyOrganization]
	prior := rec.Single[KeyShowAs]

	if prior != "" {
		if org == "" {
			return ShowAsIndividual
		}
		return prior
	}

	if org != "" && rec.Single[KeyFirstname] == "" && rec.Single[KeySurname] == "" {
		return ShowAsCompany
	}
	return ShowAsIndividual
}

// DisplayName composes a display name for a record that has none. Company
// contacts take the organization name, then the personal name parts, then
// the first email or phone value in key order, then a fixed placeholder.
func DisplayName(rec *Record) string {
	showAs := rec.Single[KeyShowAs]
	if showAs == "" {
		showAs = ClassifyShowAs(rec)
	}
	if org := rec.Single[KeyOrganization]; showAs == ShowAsCompany && org != "" {
		return org
	}

	parts := make([]string, 0, 2)
	if given := rec.Single[KeyFirstname]; given != "" {
		parts = append(parts, given)
	}
	if surname := rec.Single[KeySurname]; surname != "" {
		parts = append(parts, surname)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}

	for _, field := range []string{KeyEmail, KeyPhone} {
		for _, subtype := range rec.subtypesOf(field) {
			for _, value := range rec.Multi[MultiKey(field, subtype)] {
				if value != "" {
					return value
				}
			}
		}
	}

	return config.FallbackDisplayName
}
