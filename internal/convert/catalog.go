package convert

import (
	"fmt"
	"strings"

	"github.com/emersion/go-vcard"

	"github.com/imlich/cardsync/internal/config"
)

// Record field keys. Derived keys (surname, organization, ...) have no direct
// catalog entry; they are produced by the N and ORG splitters.
const (
	KeyName         = "name"
	KeySurname      = "surname"
	KeyFirstname    = "firstname"
	KeyMiddlename   = "middlename"
	KeyPrefix       = "prefix"
	KeySuffix       = "suffix"
	KeyOrganization = "organization"
	KeyDepartment   = "department"
	KeyJobtitle     = "jobtitle"
	KeyNickname     = "nickname"
	KeyBirthday     = "birthday"
	KeyAnniversary  = "anniversary"
	KeyGender       = "gender"
	KeyManager      = "manager"
	KeyAssistant    = "assistant"
	KeySpouse       = "spouse"
	KeyShowAs       = "showas"
	KeyNotes        = "notes"
	KeyPhoto        = "photo"

	KeyEmail   = "email"
	KeyPhone   = "phone"
	KeyAddress = "address"
	KeyWebsite = "website"
	KeyIM      = "im"
)

// SubtypeOther is the fallback subtype when label resolution finds nothing.
const SubtypeOther = "other"

// FieldSpec describes one catalog field: its record key, the vCard property
// it maps to, whether it is multi-valued, and for multi-valued fields the
// ordered standard subtype vocabulary (order defines tie-break precedence)
// plus optional aliases mapping alternate spellings to canonical subtypes.
type FieldSpec struct {
	Key      string
	Property string
	Multi    bool
	Subtypes []string
	Aliases  map[string]string

	// FixedSubtype binds a multi-valued field to exactly one subtype; such
	// fields skip label assignment entirely on write.
	FixedSubtype string
}

// canonical matches label against the standard vocabulary and the alias
// table, case-insensitively, returning the canonical spelling.
func (s *FieldSpec) canonical(label string) (string, bool) {
	if alias, ok := s.Aliases[strings.ToLower(label)]; ok {
		label = alias
	}
	for _, st := range s.Subtypes {
		if strings.EqualFold(st, label) {
			return st, true
		}
	}
	return "", false
}

// indexOf returns the precedence index of a canonical subtype, or -1.
func (s *FieldSpec) indexOf(subtype string) int {
	for i, st := range s.Subtypes {
		if st == subtype {
			return i
		}
	}
	return -1
}

// Catalog is the static field registry. It is immutable after construction;
// per-address-book custom labels live in the converter's overlay, not here.
type Catalog struct {
	fields map[string]*FieldSpec
	order  []string
}

// NewCatalog builds a catalog from the given specs, preserving their order.
func NewCatalog(specs ...*FieldSpec) *Catalog {
	c := &Catalog{fields: make(map[string]*FieldSpec, len(specs))}
	for _, s := range specs {
		c.fields[s.Key] = s
		c.order = append(c.order, s.Key)
	}
	return c
}

// Field returns the spec for key. An unknown key is a programming error and
// panics immediately.
func (c *Catalog) Field(key string) *FieldSpec {
	s, ok := c.fields[key]
	if !ok {
		panic(fmt.Sprintf("convert: unknown catalog field %q", key))
	}
	return s
}

// singleSpecs returns the single-valued specs in declaration order.
func (c *Catalog) singleSpecs() []*FieldSpec {
	return c.specsWhere(false)
}

// multiSpecs returns the multi-valued specs in declaration order.
func (c *Catalog) multiSpecs() []*FieldSpec {
	return c.specsWhere(true)
}

func (c *Catalog) specsWhere(multi bool) []*FieldSpec {
	var out []*FieldSpec
	for _, key := range c.order {
		if s := c.fields[key]; s.Multi == multi {
			out = append(out, s)
		}
	}
	return out
}

// DefaultCatalog returns the standard contact schema.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		&FieldSpec{Key: KeyName, Property: vcard.FieldFormattedName},
		&FieldSpec{Key: KeyNickname, Property: vcard.FieldNickname},
		&FieldSpec{Key: KeyJobtitle, Property: vcard.FieldTitle},
		&FieldSpec{Key: KeyBirthday, Property: vcard.FieldBirthday},
		&FieldSpec{Key: KeyAnniversary, Property: "X-ANNIVERSARY"},
		&FieldSpec{Key: KeyGender, Property: "X-GENDER"},
		&FieldSpec{Key: KeyManager, Property: "X-MANAGER"},
		&FieldSpec{Key: KeyAssistant, Property: "X-ASSISTANT"},
		&FieldSpec{Key: KeySpouse, Property: "X-SPOUSE"},
		&FieldSpec{Key: KeyShowAs, Property: config.PropShowAs},
		&FieldSpec{Key: KeyNotes, Property: vcard.FieldNote},
		&FieldSpec{Key: KeyPhoto, Property: vcard.FieldPhoto},

		&FieldSpec{
			Key:      KeyEmail,
			Property: vcard.FieldEmail,
			Multi:    true,
			Subtypes: []string{"home", "work", SubtypeOther},
			Aliases:  map[string]string{"internet": "home"},
		},
		&FieldSpec{
			Key:      KeyPhone,
			Property: vcard.FieldTelephone,
			Multi:    true,
			Subtypes: []string{
				"home", "home2", "work", "work2", "mobile", "main",
				"homefax", "workfax", "car", "pager", "video",
				"assistant", SubtypeOther,
			},
			Aliases: map[string]string{"cell": "mobile", "fax": "homefax"},
		},
		&FieldSpec{
			Key:      KeyAddress,
			Property: vcard.FieldAddress,
			Multi:    true,
			Subtypes: []string{"home", "work", SubtypeOther},
		},
		&FieldSpec{
			Key:      KeyWebsite,
			Property: vcard.FieldURL,
			Multi:    true,
			Subtypes: []string{"homepage", "work", "blog", "profile", SubtypeOther},
			Aliases:  map[string]string{"home": "homepage"},
		},
		&FieldSpec{
			Key:      KeyIM,
			Property: vcard.FieldIMPP,
			Multi:    true,
			Subtypes: []string{
				"AIM", "GaduGadu", "ICQ", "IRC", "Jabber", "MSN",
				"Skype", "Yahoo", "Zoom", SubtypeOther,
			},
			Aliases: map[string]string{
				"xmpp":  "Jabber",
				"ymsgr": "Yahoo",
				"msnim": "MSN",
				"gg":    "GaduGadu",
			},
		},
	)
}

// imSchemes maps canonical instant-messaging subtypes to IMPP URI schemes.
var imSchemes = map[string]string{
	"AIM":      "aim",
	"GaduGadu": "gg",
	"ICQ":      "icq",
	"IRC":      "irc",
	"Jabber":   "xmpp",
	"MSN":      "msnim",
	"Skype":    "skype",
	"Yahoo":    "ymsgr",
	"Zoom":     "zoom",
}

// validSchemeToken reports whether s is a syntactically valid URI scheme
// (RFC 3986: ALPHA *( ALPHA / DIGIT / "+" / "-" / "." )).
func validSchemeToken(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}
