package convert

import (
	"sort"
	"strings"
)

// Record kind values.
const (
	KindIndividual = "individual"
	KindGroup      = "group"
)

// Showas classification values.
const (
	ShowAsIndividual = "INDIVIDUAL"
	ShowAsCompany    = "COMPANY"
)

// Address is the structured value of one postal address occurrence. Empty
// components stay empty; consumers render only what is present.
type Address struct {
	PostOfficeBox string `json:"pobox,omitempty"`
	Extended      string `json:"extended,omitempty"`
	Street        string `json:"street,omitempty"`
	Locality      string `json:"locality,omitempty"`
	Region        string `json:"region,omitempty"`
	PostalCode    string `json:"zipcode,omitempty"`
	Country       string `json:"country,omitempty"`
}

// hasCoreContent reports whether the address is worth emitting at all.
// The post office box and extended slots alone do not qualify.
func (a Address) hasCoreContent() bool {
	return a.Street != "" || a.Locality != "" || a.Region != "" ||
		a.PostalCode != "" || a.Country != ""
}

// Record is the flat save-data representation of a contact used by the
// consuming application. Scalar fields live in Single under their catalog
// key; multi-valued fields live in Multi (or Addr for postal addresses)
// under "field:subtype" keys, each entry holding every occurrence of that
// subtype in stored order.
type Record struct {
	// Kind is KindIndividual or KindGroup (distribution list).
	Kind string `json:"kind"`

	Single map[string]string    `json:"single,omitempty"`
	Multi  map[string][]string  `json:"multi,omitempty"`
	Addr   map[string][]Address `json:"addr,omitempty"`

	// Photo is nil when the photo key is absent (meaning "no change" on
	// write-back). A non-nil empty Photo is an explicit delete.
	Photo *Photo `json:"-"`
}

// NewRecord returns a record initialized with the fixed defaults.
func NewRecord() *Record {
	return &Record{
		Kind:   KindIndividual,
		Single: make(map[string]string),
		Multi:  make(map[string][]string),
		Addr:   make(map[string][]Address),
	}
}

// MultiKey builds the record key for one subtype of a multi-valued field.
func MultiKey(field, subtype string) string {
	return field + ":" + subtype
}

// splitMultiKey is the inverse of MultiKey.
func splitMultiKey(key string) (field, subtype string) {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i], key[i+1:]
	}
	return key, ""
}

// appendMulti appends value under key unless the exact string is already
// present there. Comparison is case-sensitive and unnormalized.
func (r *Record) appendMulti(key, value string) bool {
	for _, v := range r.Multi[key] {
		if v == value {
			return false
		}
	}
	r.Multi[key] = append(r.Multi[key], value)
	return true
}

// appendAddr appends an address under key unless an identical one is already
// present there.
func (r *Record) appendAddr(key string, a Address) bool {
	for _, existing := range r.Addr[key] {
		if existing == a {
			return false
		}
	}
	r.Addr[key] = append(r.Addr[key], a)
	return true
}

// subtypesOf collects every subtype present in the record for the given
// multi-valued field, in ascending lexical order.
func (r *Record) subtypesOf(field string) []string {
	seen := make(map[string]bool)
	var subtypes []string
	collect := func(key string) {
		f, st := splitMultiKey(key)
		if f != field || st == "" || seen[st] {
			return
		}
		seen[st] = true
		subtypes = append(subtypes, st)
	}
	for key := range r.Multi {
		collect(key)
	}
	for key := range r.Addr {
		collect(key)
	}
	sort.Strings(subtypes)
	return subtypes
}
