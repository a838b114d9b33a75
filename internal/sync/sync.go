// Package sync pulls remote address books into the local contact cache and
// pushes record edits back to the server.
package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-vcard"

	"github.com/imlich/cardsync/internal/config"
	"github.com/imlich/cardsync/internal/convert"
	"github.com/imlich/cardsync/internal/source"
	"github.com/imlich/cardsync/internal/store"
)

// Stats summarizes one synchronization pass.
type Stats struct {
	Books    int
	Upserted int
	Removed  int64
	Skipped  int
}

// Syncer mirrors one account's address books into the cache.
type Syncer struct {
	account string
	source  source.Source
	store   *store.Store
	photos  convert.PhotoResolver
	now     func() time.Time
	log     *slog.Logger

	converters map[string]*convert.Converter
}

// New creates a syncer for one account.
func New(account string, src source.Source, st *store.Store, photos convert.PhotoResolver) *Syncer {
	return &Syncer{
		account:    account,
		source:     src,
		store:      st,
		photos:     photos,
		now:        time.Now,
		converters: make(map[string]*convert.Converter),
		log: slog.With(
			config.LogKeyComponent, config.CompSync,
			config.LogKeyAccount, account,
		),
	}
}

// bookID derives the cache ID of a collection by prefixing the account name,
// so identical collection paths on different servers stay distinct rows.
func (s *Syncer) bookID(path string) string {
	return s.account + config.CacheIDSeparator + path
}

// converter returns the converter bound to the address book, creating it on
// first use so the custom label registry is loaded exactly once per book.
func (s *Syncer) converter(ctx context.Context, addressBookID string) (*convert.Converter, error) {
	if cv, ok := s.converters[addressBookID]; ok {
		return cv, nil
	}
	cv, err := convert.New(ctx, convert.Config{
		AddressBookID: addressBookID,
		Labels:        s.store,
		Photos:        s.photos,
		Now:           s.now,
	})
	if err != nil {
		return nil, err
	}
	s.converters[addressBookID] = cv
	return cv, nil
}

// Run performs one full pull pass: discover the account's address books,
// download every object, convert it, and replace the cached state. Contacts
// that vanished from the server are pruned from the cache.
func (s *Syncer) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	started := s.now()

	books, err := s.source.AddressBooks(ctx)
	if err != nil {
		return stats, err
	}
	stats.Books = len(books)

	for _, book := range books {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := s.syncBook(ctx, book, &stats); err != nil {
			return stats, fmt.Errorf("syncing %s: %w", book.Path, err)
		}
	}

	s.log.Info(config.MsgSyncFinished,
		config.LogKeyTotal, stats.Upserted,
		config.LogKeyRemoved, stats.Removed,
		config.LogKeySkipped, stats.Skipped,
		config.LogKeyDuration, s.now().Sub(started).Milliseconds(),
	)
	return stats, nil
}

func (s *Syncer) syncBook(ctx context.Context, book source.AddressBook, stats *Stats) error {
	id := s.bookID(book.Path)
	err := s.store.UpsertAddressBook(ctx, store.AddressBook{
		ID:          id,
		Account:     s.account,
		URL:         book.Path,
		Name:        book.Name,
		Description: book.Description,
	})
	if err != nil {
		return err
	}

	cv, err := s.converter(ctx, id)
	if err != nil {
		return err
	}

	objs, err := s.source.Objects(ctx, book.Path)
	if err != nil {
		return err
	}

	fetched := s.now()
	contacts := make([]store.Contact, 0, len(objs))
	keep := make([]string, 0, len(objs))

	for _, obj := range objs {
		keep = append(keep, obj.Path)

		contact, err := s.cacheEntry(ctx, cv, id, obj, fetched)
		if err != nil {
			stats.Skipped++
			s.log.Warn(config.MsgSkippedContact,
				config.LogKeyPath, obj.Path,
				config.LogKeyError, err,
			)
			continue
		}
		contacts = append(contacts, *contact)
	}

	if err := s.store.UpsertContacts(ctx, contacts); err != nil {
		return err
	}
	stats.Upserted += len(contacts)

	removed, err := s.store.PruneContacts(ctx, id, keep)
	if err != nil {
		return err
	}
	stats.Removed += removed

	return nil
}

// cacheEntry converts one downloaded object into its cache row.
func (s *Syncer) cacheEntry(ctx context.Context, cv *convert.Converter, bookID string, obj source.Object, fetched time.Time) (*store.Contact, error) {
	rec := cv.ToRecord(ctx, obj.Card)

	contact := &store.Contact{
		AddressBookID: bookID,
		URI:           obj.Path,
		ETag:          obj.ETag,
		UID:           obj.Card.Value(vcard.FieldUID),
		FetchedAt:     fetched,
	}
	if err := contact.EncodeRecord(rec); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(obj.Card); err != nil {
		return nil, fmt.Errorf("encoding vcard %s: %w", obj.Path, err)
	}
	contact.Raw = buf.String()

	return contact, nil
}

// PushContact rebuilds the card of one cached contact from an edited record,
// uploads it, and refreshes the cache row with the server's response. A
// contact not yet in the cache is created from scratch on the server.
// bookPath is the collection path on the server, uri the object path.
func (s *Syncer) PushContact(ctx context.Context, bookPath, uri string, rec *convert.Record) error {
	id := s.bookID(bookPath)
	cv, err := s.converter(ctx, id)
	if err != nil {
		return err
	}

	var card vcard.Card
	cached, err := s.store.GetContact(ctx, id, uri)
	switch {
	case err == nil && cached.Raw != "":
		card, err = vcard.NewDecoder(bytes.NewReader([]byte(cached.Raw))).Decode()
		if err != nil {
			return fmt.Errorf("decoding cached vcard %s: %w", uri, err)
		}
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}

	card, err = cv.ToCard(ctx, rec, card)
	if err != nil {
		return err
	}

	obj, err := s.source.Put(ctx, uri, card)
	if err != nil {
		return err
	}
	if obj.Card == nil {
		// Servers usually do not echo the stored body back.
		obj.Card = card
	}

	contact, err := s.cacheEntry(ctx, cv, id, *obj, s.now())
	if err != nil {
		return err
	}
	return s.store.UpsertContacts(ctx, []store.Contact{*contact})
}

// DeleteContact removes one contact from the server and the cache.
func (s *Syncer) DeleteContact(ctx context.Context, bookPath, uri string) error {
	if err := s.source.Delete(ctx, uri); err != nil {
		return err
	}
	return s.store.DeleteContact(ctx, s.bookID(bookPath), uri)
}
