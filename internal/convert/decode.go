package convert

import (
	"context"
	"strings"

	"github.com/emersion/go-vcard"

	"github.com/imlich/cardsync/internal/config"
)

// extractors holds field-specific value extractors for multi-valued
// properties. Fields without an entry take the property value verbatim.
var extractors = map[string]func(rec *Record, key string, f *vcard.Field) bool{
	KeyAddress: extractAddress,
	KeyIM:      extractIM,
}

// ToRecord converts a card into the flat record model. Conversion is
// best-effort: absent or malformed properties are skipped, never fatal.
func (cv *Converter) ToRecord(ctx context.Context, card vcard.Card) *Record {
	rec := NewRecord()
	if isGroupCard(card) {
		rec.Kind = KindGroup
	}

	for _, spec := range cv.catalog.singleSpecs() {
		f := card.Get(spec.Property)
		if f == nil || f.Value == "" {
			continue
		}
		if spec.Key == KeyPhoto {
			// Photos resolve lazily; conversion only binds the reference.
			rec.Photo = deferredPhoto(cv.addressBookID, card, cv.photos)
			continue
		}
		rec.Single[spec.Key] = f.Value
	}

	decodeName(card, rec)
	decodeOrganization(card, rec)

	for _, spec := range cv.catalog.multiSpecs() {
		for _, f := range card[spec.Property] {
			if f == nil || f.Value == "" {
				continue
			}
			label := cv.resolveLabel(ctx, card, spec, f)
			key := MultiKey(spec.Key, label)
			if extract := extractors[spec.Key]; extract != nil {
				extract(rec, key, f)
				continue
			}
			rec.appendMulti(key, f.Value)
		}
	}

	if rec.Single[KeyName] == "" {
		rec.Single[KeyName] = DisplayName(rec)
	}

	return rec
}

// isGroupCard detects distribution-list cards via KIND (vCard 4) or the
// address book server extension (vCard 3).
func isGroupCard(card vcard.Card) bool {
	if strings.EqualFold(card.Value(vcard.FieldKind), config.KindGroup) {
		return true
	}
	return strings.EqualFold(card.Value(config.PropABKind), config.KindGroup)
}

// decodeName splits the structured name property into its five positional
// components. Only non-empty components are written.
func decodeName(card vcard.Card, rec *Record) {
	f := card.Get(vcard.FieldName)
	if f == nil || f.Value == "" {
		return
	}
	keys := []string{KeySurname, KeyFirstname, KeyMiddlename, KeyPrefix, KeySuffix}
	for i, comp := range strings.Split(f.Value, ";") {
		if i >= len(keys) {
			break
		}
		if comp != "" {
			rec.Single[keys[i]] = comp
		}
	}
}

// decodeOrganization splits the organization property: the first component
// is the organization name, the remaining components form the department
// chain joined with "; ". Empty results are omitted.
func decodeOrganization(card vcard.Card, rec *Record) {
	f := card.Get(vcard.FieldOrganization)
	if f == nil || f.Value == "" {
		return
	}
	components := strings.Split(f.Value, ";")
	if org := components[0]; org != "" {
		rec.Single[KeyOrganization] = org
	}
	var units []string
	for _, unit := range components[1:] {
		if unit = strings.TrimSpace(unit); unit != "" {
			units = append(units, unit)
		}
	}
	if len(units) > 0 {
		rec.Single[KeyDepartment] = strings.Join(units, "; ")
	}
}

// extractAddress pulls the seven positional address components into a
// structured value, dropping empties.
func extractAddress(rec *Record, key string, f *vcard.Field) bool {
	components := strings.Split(f.Value, ";")
	comp := func(i int) string {
		if i < len(components) {
			return components[i]
		}
		return ""
	}
	return rec.appendAddr(key, Address{
		PostOfficeBox: comp(0),
		Extended:      comp(1),
		Street:        comp(2),
		Locality:      comp(3),
		Region:        comp(4),
		PostalCode:    comp(5),
		Country:       comp(6),
	})
}

// extractIM strips a leading URI scheme from the messaging handle if present.
func extractIM(rec *Record, key string, f *vcard.Field) bool {
	handle := f.Value
	if i := strings.IndexByte(handle, ':'); i > 0 && validSchemeToken(handle[:i]) {
		handle = handle[i+1:]
	}
	return rec.appendMulti(key, handle)
}
