package convert

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/emersion/go-vcard"
	"github.com/google/uuid"

	"github.com/imlich/cardsync/internal/config"
)

// builders holds field-specific property builders for multi-valued fields.
// Fields without an entry emit one bare property per value.
var builders = map[string]func(rec *Record, key, subtype string) []*vcard.Field{
	KeyAddress: buildAddresses,
	KeyWebsite: buildWebsites,
	KeyIM:      buildIMs,
}

// ToCard rebuilds a card from a record. When card is nil a new one is
// created; otherwise the given card is updated in place and returned.
// Multi-valued fields are fully replaced, not merged: subtypes not present
// in the record are dropped.
func (cv *Converter) ToCard(ctx context.Context, rec *Record, card vcard.Card) (vcard.Card, error) {
	if card == nil {
		card = make(vcard.Card)
		card.SetValue(vcard.FieldVersion, config.VCardVersion)
		card.SetValue(vcard.FieldUID, uuid.NewString())
	}

	if rec.Kind == KindGroup {
		if rec.Single[KeyName] == "" {
			return nil, errors.New(config.ErrGroupNameRequired)
		}
		card.SetValue(vcard.FieldKind, config.KindGroup)
		card.SetValue(config.PropABKind, config.KindGroup)
	} else if rec.Single[KeyName] == "" {
		rec.Single[KeyShowAs] = ClassifyShowAs(rec)
		rec.Single[KeyName] = DisplayName(rec)
	}

	card.SetValue(vcard.FieldRevision, cv.now().UTC().Format(config.TimestampLayout))

	encodeName(rec, card)
	encodeOrganization(rec, card)

	for _, spec := range cv.catalog.singleSpecs() {
		if spec.Key == KeyPhoto {
			encodePhoto(rec, card, spec.Property)
			continue
		}
		value := rec.Single[spec.Key]
		if value == "" {
			delete(card, spec.Property)
			continue
		}
		setProp(card, spec.Property, &vcard.Field{Value: value})
	}

	// Full replace: drop every property of every multi-valued field, then
	// prune extension labels left without a group member, then rebuild.
	multiSpecs := cv.catalog.multiSpecs()
	for _, spec := range multiSpecs {
		delete(card, spec.Property)
	}
	pruneOrphanLabels(card)

	for _, spec := range multiSpecs {
		subtypes := rec.subtypesOf(spec.Key)
		fixed := spec.FixedSubtype != ""
		if fixed {
			subtypes = []string{spec.FixedSubtype}
		}
		for _, subtype := range subtypes {
			key := MultiKey(spec.Key, subtype)
			build := builders[spec.Key]
			if build == nil {
				build = buildPlain
			}
			for _, f := range build(rec, key, subtype) {
				card.Add(spec.Property, f)
				if fixed {
					continue
				}
				if err := cv.assignLabel(ctx, card, spec, f, subtype); err != nil {
					return nil, err
				}
			}
		}
	}

	return card, nil
}

// encodeName always rewrites the structured name property in full. Group
// records carry the full name in the first component only.
func encodeName(rec *Record, card vcard.Card) {
	var components []string
	if rec.Kind == KindGroup {
		components = []string{rec.Single[KeyName], "", "", "", ""}
	} else {
		components = []string{
			rec.Single[KeySurname],
			rec.Single[KeyFirstname],
			rec.Single[KeyMiddlename],
			rec.Single[KeyPrefix],
			rec.Single[KeySuffix],
		}
	}
	setProp(card, vcard.FieldName, &vcard.Field{Value: strings.Join(components, ";")})
}

// encodeOrganization rebuilds the organization property from the
// organization and department fields, re-splitting the department on ";".
// When the organization is empty but a department exists, an explicit empty
// leading component keeps the department from shifting into the
// organization slot on a later read. Both empty removes the property.
func encodeOrganization(rec *Record, card vcard.Card) {
	org := rec.Single[KeyOrganization]
	var units []string
	for _, unit := range strings.Split(rec.Single[KeyDepartment], ";") {
		if unit = strings.TrimSpace(unit); unit != "" {
			units = append(units, unit)
		}
	}

	if org == "" && len(units) == 0 {
		delete(card, vcard.FieldOrganization)
		return
	}

	components := append([]string{org}, units...)
	setProp(card, vcard.FieldOrganization, &vcard.Field{Value: strings.Join(components, ";")})
}

// encodePhoto distinguishes "no change" (record key absent) from "explicit
// delete" (key present without data). New photo data is stored base64
// encoded with binary encoding parameters.
func encodePhoto(rec *Record, card vcard.Card, property string) {
	switch {
	case rec.Photo == nil:
		// Key absent: leave whatever the card has untouched.
	case len(rec.Photo.Data) > 0:
		setProp(card, property, &vcard.Field{
			Value: base64.StdEncoding.EncodeToString(rec.Photo.Data),
			Params: vcard.Params{
				config.ParamEncoding: {config.EncodingBinary},
				vcard.ParamValue:     {config.ValueBinary},
			},
		})
	case rec.Photo.Deferred():
		// Unresolved passthrough from a previous read: no change.
	default:
		delete(card, property)
	}
}

// buildPlain emits one bare property per stored value.
func buildPlain(rec *Record, key, _ string) []*vcard.Field {
	fields := make([]*vcard.Field, 0, len(rec.Multi[key]))
	for _, value := range rec.Multi[key] {
		fields = append(fields, &vcard.Field{Value: value})
	}
	return fields
}

// buildWebsites tags each URL property with an explicit URI value type.
func buildWebsites(rec *Record, key, _ string) []*vcard.Field {
	fields := make([]*vcard.Field, 0, len(rec.Multi[key]))
	for _, value := range rec.Multi[key] {
		fields = append(fields, &vcard.Field{
			Value:  value,
			Params: vcard.Params{vcard.ParamValue: {config.ValueURI}},
		})
	}
	return fields
}

// buildAddresses emits the seven-component positional property, blank for
// missing components. Addresses without any core content are skipped.
func buildAddresses(rec *Record, key, _ string) []*vcard.Field {
	var fields []*vcard.Field
	for _, a := range rec.Addr[key] {
		if !a.hasCoreContent() {
			continue
		}
		components := []string{
			a.PostOfficeBox, a.Extended, a.Street,
			a.Locality, a.Region, a.PostalCode, a.Country,
		}
		fields = append(fields, &vcard.Field{Value: strings.Join(components, ";")})
	}
	return fields
}

// buildIMs emits scheme:handle values. The scheme comes from the fixed
// subtype lookup table, falling back to the lower-cased subtype when it is
// a valid scheme token, else a generic unknown scheme. Each property
// carries a standard type parameter and the vendor service-type parameter.
func buildIMs(rec *Record, key, subtype string) []*vcard.Field {
	scheme := imSchemes[subtype]
	if scheme == "" {
		if lower := strings.ToLower(subtype); validSchemeToken(lower) {
			scheme = lower
		} else {
			scheme = config.SchemeUnknownIM
		}
	}

	fields := make([]*vcard.Field, 0, len(rec.Multi[key]))
	for _, handle := range rec.Multi[key] {
		fields = append(fields, &vcard.Field{
			Value: scheme + ":" + handle,
			Params: vcard.Params{
				vcard.ParamType:         {config.TypeHome},
				config.ParamServiceType: {subtype},
			},
		})
	}
	return fields
}

// setProp replaces every occurrence of a property with a single field.
func setProp(card vcard.Card, property string, f *vcard.Field) {
	card[property] = []*vcard.Field{f}
}
