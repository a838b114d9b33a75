package convert_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/imlich/cardsync/internal/convert"
)

func TestClassifyShowAs(t *testing.T) {
	tests := []struct {
		name     string
		single   map[string]string
		expected string
	}{
		{
			name:     "fresh org-only contact is a company",
			single:   map[string]string{convert.KeyOrganization: "Acme"},
			expected: convert.ShowAsCompany,
		},
		{
			name: "fresh contact with a personal name stays individual",
			single: map[string]string{
				convert.KeyOrganization: "Acme",
				convert.KeyFirstname:    "John",
			},
			expected: convert.ShowAsIndividual,
		},
		{
			name:     "fresh contact without org is individual",
			single:   map[string]string{convert.KeySurname: "Doe"},
			expected: convert.ShowAsIndividual,
		},
		{
			name: "existing classification is kept",
			single: map[string]string{
				convert.KeyOrganization: "Acme",
				convert.KeyFirstname:    "John",
				convert.KeyShowAs:       convert.ShowAsCompany,
			},
			expected: convert.ShowAsCompany,
		},
		{
			name: "clearing the org demotes a company",
			single: map[string]string{
				convert.KeyShowAs: convert.ShowAsCompany,
			},
			expected: convert.ShowAsIndividual,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := convert.NewRecord()
			for k, v := range tc.single {
				rec.Single[k] = v
			}
			assert.Equal(t, tc.expected, convert.ClassifyShowAs(rec))
		})
	}
}

func TestDisplayName(t *testing.T) {
	t.Run("company takes the organization", func(t *testing.T) {
		rec := convert.NewRecord()
		rec.Single[convert.KeyOrganization] = "Acme"
		assert.Equal(t, "Acme", convert.DisplayName(rec))
	})

	t.Run("explicit company beats name parts", func(t *testing.T) {
		rec := convert.NewRecord()
		rec.Single[convert.KeyShowAs] = convert.ShowAsCompany
		rec.Single[convert.KeyOrganization] = "Acme"
		rec.Single[convert.KeyFirstname] = "John"
		assert.Equal(t, "Acme", convert.DisplayName(rec))
	})

	t.Run("individual with org uses the personal name", func(t *testing.T) {
		rec := convert.NewRecord()
		rec.Single[convert.KeyOrganization] = "Acme"
		rec.Single[convert.KeyFirstname] = "John"
		assert.Equal(t, "John", convert.DisplayName(rec))
	})

	t.Run("given and surname joined", func(t *testing.T) {
		rec := convert.NewRecord()
		rec.Single[convert.KeyFirstname] = "John"
		rec.Single[convert.KeySurname] = "Doe"
		assert.Equal(t, "John Doe", convert.DisplayName(rec))
	})

	t.Run("surname alone", func(t *testing.T) {
		rec := convert.NewRecord()
		rec.Single[convert.KeySurname] = "Doe"
		assert.Equal(t, "Doe", convert.DisplayName(rec))
	})

	t.Run("email beats phone", func(t *testing.T) {
		rec := convert.NewRecord()
		rec.Multi["phone:home"] = []string{"+555"}
		rec.Multi["email:work"] = []string{"a@example.com"}
		assert.Equal(t, "a@example.com", convert.DisplayName(rec))
	})

	t.Run("empty leading value does not hide a later one", func(t *testing.T) {
		rec := convert.NewRecord()
		rec.Multi["email:home"] = []string{"", "b@example.com"}
		assert.Equal(t, "b@example.com", convert.DisplayName(rec))
	})

	t.Run("phone as last resort before placeholder", func(t *testing.T) {
		rec := convert.NewRecord()
		rec.Multi["phone:mobile"] = []string{"+555"}
		assert.Equal(t, "+555", convert.DisplayName(rec))
	})

	t.Run("placeholder when nothing usable", func(t *testing.T) {
		rec := convert.NewRecord()
		assert.Equal(t, "Unknown", convert.DisplayName(rec))
	})
}
