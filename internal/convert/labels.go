package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/emersion/go-vcard"

	"github.com/imlich/cardsync/internal/config"
)

// overrideResolvers holds field-specific label resolvers consulted before the
// generic precedence chain. Populated once; no name-based dispatch.
var overrideResolvers = map[string]func(cv *Converter, spec *FieldSpec, f *vcard.Field) string{
	KeyIM: resolveIMLabel,
}

// resolveLabel determines the subtype label of one property occurrence.
// Precedence, first match wins:
//
//  1. a field-specific override resolver,
//  2. the value of a sibling X-ABLABEL in the property's group (registering
//     it as a custom label if unknown),
//  3. the TYPE parameter value with the lowest index in the field's ordered
//     standard vocabulary,
//  4. "other".
//
// The result is always a member of vocabulary ∪ custom registry ∪ {"other"}.
func (cv *Converter) resolveLabel(ctx context.Context, card vcard.Card, spec *FieldSpec, f *vcard.Field) string {
	if override := overrideResolvers[spec.Key]; override != nil {
		if label := override(cv, spec, f); label != "" {
			return label
		}
	}

	if f.Group != "" {
		if raw, ok := groupLabel(card, f.Group); ok {
			label := stripLabelMarker(raw)
			if label != "" {
				if canon, ok := cv.knownLabel(spec, label); ok {
					return canon
				}
				// Reading is best-effort: keep the label in memory even if
				// the row store rejects it.
				if err := cv.registerLabel(ctx, spec.Key, label); err != nil {
					cv.log.Warn(config.MsgLabelNotSaved,
						config.LogKeyField, spec.Key,
						config.LogKeyLabel, label,
						config.LogKeyError, err,
					)
				}
				return label
			}
		}
	}

	if label := cv.typeParamLabel(spec, f); label != "" {
		return label
	}

	return SubtypeOther
}

// resolveIMLabel checks the vendor service-type parameter first, then the
// URI scheme mapped through the alias table, then the standard TYPE
// parameter, each against the known vocabulary.
func resolveIMLabel(cv *Converter, spec *FieldSpec, f *vcard.Field) string {
	if st := f.Params.Get(config.ParamServiceType); st != "" {
		if canon, ok := cv.knownLabel(spec, st); ok {
			return canon
		}
	}

	if i := strings.IndexByte(f.Value, ':'); i > 0 {
		if canon, ok := cv.knownLabel(spec, f.Value[:i]); ok {
			return canon
		}
	}

	for _, t := range f.Params[vcard.ParamType] {
		if canon, ok := cv.knownLabel(spec, t); ok {
			return canon
		}
	}

	return ""
}

// typeParamLabel picks, among all TYPE parameter values, the one with the
// lowest index in the field's ordered standard vocabulary. Values outside
// the vocabulary are ignored.
func (cv *Converter) typeParamLabel(spec *FieldSpec, f *vcard.Field) string {
	best := -1
	bestLabel := ""
	for _, raw := range f.Params[vcard.ParamType] {
		canon, ok := spec.canonical(raw)
		if !ok {
			continue
		}
		if idx := spec.indexOf(canon); best == -1 || idx < best {
			best = idx
			bestLabel = canon
		}
	}
	return bestLabel
}

// assignLabel labels a freshly built property. Standard subtypes become a
// TYPE parameter; custom labels get a synthetic ITEM<n> group with a sibling
// X-ABLABEL property carrying the literal label string. A custom label not
// yet in the registry is registered here; persistence failures propagate.
func (cv *Converter) assignLabel(ctx context.Context, card vcard.Card, spec *FieldSpec, f *vcard.Field, label string) error {
	if canon, ok := spec.canonical(label); ok {
		if !hasTypeValue(f, canon) {
			if f.Params == nil {
				f.Params = make(vcard.Params)
			}
			f.Params.Add(vcard.ParamType, canon)
		}
		return nil
	}

	if err := cv.registerLabel(ctx, spec.Key, label); err != nil {
		return err
	}

	group := nextItemGroup(card)
	f.Group = group
	card.Add(config.PropLabel, &vcard.Field{Group: group, Value: label})
	return nil
}

// groupLabel returns the value of the extension-label property in the given
// group, if any. Group comparison is case-insensitive.
func groupLabel(card vcard.Card, group string) (string, bool) {
	for _, f := range card[config.PropLabel] {
		if f != nil && strings.EqualFold(f.Group, group) {
			return f.Value, true
		}
	}
	return "", false
}

// stripLabelMarker removes the Apple label wrapper, e.g. "_$!<Spouse>!$_".
func stripLabelMarker(label string) string {
	if strings.HasPrefix(label, config.LabelMarkerPrefix) && strings.HasSuffix(label, config.LabelMarkerSuffix) {
		return label[len(config.LabelMarkerPrefix) : len(label)-len(config.LabelMarkerSuffix)]
	}
	return label
}

// hasTypeValue reports whether the field already carries the TYPE value,
// case-insensitively.
func hasTypeValue(f *vcard.Field, value string) bool {
	for _, t := range f.Params[vcard.ParamType] {
		if strings.EqualFold(t, value) {
			return true
		}
	}
	return false
}

// nextItemGroup allocates the smallest ITEM<n> group name not already used
// anywhere in the card, comparing case-insensitively.
func nextItemGroup(card vcard.Card) string {
	used := make(map[string]bool)
	for _, fields := range card {
		for _, f := range fields {
			if f != nil && f.Group != "" {
				used[strings.ToLower(f.Group)] = true
			}
		}
	}
	for n := 1; ; n++ {
		group := fmt.Sprintf("ITEM%d", n)
		if !used[strings.ToLower(group)] {
			return group
		}
	}
}

// pruneOrphanLabels removes extension-label properties whose group no longer
// has any other member.
func pruneOrphanLabels(card vcard.Card) {
	members := make(map[string]int)
	for name, fields := range card {
		if name == config.PropLabel {
			continue
		}
		for _, f := range fields {
			if f != nil && f.Group != "" {
				members[strings.ToLower(f.Group)]++
			}
		}
	}

	labels := card[config.PropLabel]
	kept := labels[:0]
	for _, f := range labels {
		if f == nil {
			continue
		}
		if f.Group == "" || members[strings.ToLower(f.Group)] > 0 {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		delete(card, config.PropLabel)
	} else {
		card[config.PropLabel] = kept
	}
}
