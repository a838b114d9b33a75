// Package convert implements the bidirectional translation between vCards
// and the flat typed record model used by the contact cache, including the
// label resolution engine for multi-valued properties and the display-name
// and entity-classification heuristics.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/imlich/cardsync/internal/config"
)

// LabelStore persists the per-address-book custom label registry. The
// converter reads all labels once at construction and inserts one row per
// newly discovered label.
type LabelStore interface {
	LoadLabels(ctx context.Context, addressBookID string) (map[string][]string, error)
	InsertLabel(ctx context.Context, addressBookID, field, label string) error
}

// Config wires a converter to its collaborators.
type Config struct {
	// AddressBookID scopes the custom label registry. Required.
	AddressBookID string

	// Labels is the custom label row store. Required.
	Labels LabelStore

	// Catalog defaults to DefaultCatalog when nil.
	Catalog *Catalog

	// Photos resolves deferred photo references. Optional; records produced
	// without one carry references that fail on Resolve.
	Photos PhotoResolver

	// Now abstracts the clock for REV stamping. Defaults to time.Now.
	Now func() time.Time
}

// Converter translates cards to records and back. An instance is bound to
// exactly one address book for its lifetime and sees a consistent,
// monotonically growing view of that address book's custom labels.
type Converter struct {
	addressBookID string
	catalog       *Catalog
	labels        LabelStore
	photos        PhotoResolver
	now           func() time.Time
	log           *slog.Logger

	// mu guards custom. Conversions for the same address book may run on
	// multiple goroutines; registry mutations must serialize.
	mu     sync.Mutex
	custom map[string][]string
}

// New creates a converter and loads the address book's custom label registry.
func New(ctx context.Context, cfg Config) (*Converter, error) {
	custom, err := cfg.Labels.LoadLabels(ctx, cfg.AddressBookID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrLabelLoad, err)
	}
	if custom == nil {
		custom = make(map[string][]string)
	}

	catalog := cfg.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Converter{
		addressBookID: cfg.AddressBookID,
		catalog:       catalog,
		labels:        cfg.Labels,
		photos:        cfg.Photos,
		now:           now,
		log: slog.With(
			config.LogKeyComponent, config.CompConvert,
			config.LogKeyAddressBook, cfg.AddressBookID,
		),
		custom: custom,
	}, nil
}

// AddressBookID returns the address book this converter is bound to.
func (cv *Converter) AddressBookID() string {
	return cv.addressBookID
}

// knownLabel matches label against the field's standard vocabulary, its
// aliases, and the address book's custom labels, case-insensitively. It
// returns the canonical spelling.
func (cv *Converter) knownLabel(spec *FieldSpec, label string) (string, bool) {
	if canon, ok := spec.canonical(label); ok {
		return canon, true
	}
	cv.mu.Lock()
	defer cv.mu.Unlock()
	for _, custom := range cv.custom[spec.Key] {
		if strings.EqualFold(custom, label) {
			return custom, true
		}
	}
	return "", false
}

// registerLabel adds a newly seen custom label to the in-memory overlay and
// persists it immediately. Registering an already-known label is a no-op.
func (cv *Converter) registerLabel(ctx context.Context, field, label string) error {
	cv.mu.Lock()
	for _, custom := range cv.custom[field] {
		if strings.EqualFold(custom, label) {
			cv.mu.Unlock()
			return nil
		}
	}
	cv.custom[field] = append(cv.custom[field], label)
	cv.mu.Unlock()

	if err := cv.labels.InsertLabel(ctx, cv.addressBookID, field, label); err != nil {
		return fmt.Errorf("%s: %w", config.ErrLabelPersist, err)
	}
	cv.log.Debug(config.MsgLabelDiscovered,
		config.LogKeyField, field,
		config.LogKeyLabel, label,
	)
	return nil
}
