package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/imlich/cardsync/internal/convert"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// AddressBook is one discovered collection on a server.
type AddressBook struct {
	ID          string `db:"id"`
	Account     string `db:"account"`
	URL         string `db:"url"`
	Name        string `db:"name"`
	Description string `db:"description"`
	SyncToken   string `db:"sync_token"`
}

// Contact is one cached contact, keyed by its address book and server URI.
// Data holds the JSON-encoded record.
type Contact struct {
	AddressBookID string    `db:"abook_id"`
	URI           string    `db:"uri"`
	ETag          string    `db:"etag"`
	UID           string    `db:"uid"`
	DisplayName   string    `db:"display_name"`
	Kind          string    `db:"kind"`
	Data          []byte    `db:"record"`
	Raw           string    `db:"vcard"`
	FetchedAt     time.Time `db:"fetched_at"`
}

// Record decodes the cached record payload.
func (c *Contact) Record() (*convert.Record, error) {
	rec := convert.NewRecord()
	if err := json.Unmarshal(c.Data, rec); err != nil {
		return nil, fmt.Errorf("decoding record for %s: %w", c.URI, err)
	}
	return rec, nil
}

// EncodeRecord fills the denormalized columns from a record.
func (c *Contact) EncodeRecord(rec *convert.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record for %s: %w", c.URI, err)
	}
	c.Data = data
	c.Kind = rec.Kind
	c.DisplayName = rec.Single[convert.KeyName]
	return nil
}

// UpsertAddressBook inserts or replaces an address book row.
func (s *Store) UpsertAddressBook(ctx context.Context, ab AddressBook) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO addressbooks (
			id, account, url, name, description, sync_token, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ab.ID, ab.Account, ab.URL, ab.Name, ab.Description, ab.SyncToken,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting address book %s: %w", ab.ID, err)
	}
	return nil
}

// AddressBooks returns every known address book ordered by account and name.
func (s *Store) AddressBooks(ctx context.Context) ([]AddressBook, error) {
	var books []AddressBook
	err := s.db.SelectContext(ctx, &books, `
		SELECT id, account, url, name, description, sync_token
		FROM addressbooks ORDER BY account, name`)
	if err != nil {
		return nil, fmt.Errorf("querying address books: %w", err)
	}
	return books, nil
}

// UpsertContacts inserts or replaces a batch of contacts in one transaction.
func (s *Store) UpsertContacts(ctx context.Context, contacts []Contact) error {
	if len(contacts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO contacts (
			abook_id, uri, etag, uid, display_name, kind, record, vcard, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range contacts {
		_, err = stmt.ExecContext(ctx,
			c.AddressBookID, c.URI, c.ETag, c.UID,
			c.DisplayName, c.Kind, string(c.Data), c.Raw,
			c.FetchedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting contact %s: %w", c.URI, err)
		}
	}

	return tx.Commit()
}

// GetContact retrieves a single cached contact.
func (s *Store) GetContact(ctx context.Context, addressBookID, uri string) (*Contact, error) {
	var c Contact
	err := s.db.GetContext(ctx, &c, `
		SELECT abook_id, uri, etag, uid, display_name, kind, record, vcard, fetched_at
		FROM contacts WHERE abook_id = ? AND uri = ?`,
		addressBookID, uri,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting contact %s: %w", uri, err)
	}
	return &c, nil
}

// ContactsByAddressBook returns the cached contacts of one address book
// ordered by display name.
func (s *Store) ContactsByAddressBook(ctx context.Context, addressBookID string) ([]Contact, error) {
	var contacts []Contact
	err := s.db.SelectContext(ctx, &contacts, `
		SELECT abook_id, uri, etag, uid, display_name, kind, record, vcard, fetched_at
		FROM contacts WHERE abook_id = ?
		ORDER BY display_name, uri`,
		addressBookID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying contacts for %s: %w", addressBookID, err)
	}
	return contacts, nil
}

// AllContacts returns every cached contact across all address books.
func (s *Store) AllContacts(ctx context.Context) ([]Contact, error) {
	var contacts []Contact
	err := s.db.SelectContext(ctx, &contacts, `
		SELECT abook_id, uri, etag, uid, display_name, kind, record, vcard, fetched_at
		FROM contacts ORDER BY display_name, uri`)
	if err != nil {
		return nil, fmt.Errorf("querying contacts: %w", err)
	}
	return contacts, nil
}

// DeleteContact removes one cached contact.
func (s *Store) DeleteContact(ctx context.Context, addressBookID, uri string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM contacts WHERE abook_id = ? AND uri = ?",
		addressBookID, uri,
	)
	if err != nil {
		return fmt.Errorf("deleting contact %s: %w", uri, err)
	}
	return nil
}

// PruneContacts deletes cached contacts of the address book whose URI is not
// in keep, and returns how many rows were removed. An empty keep list clears
// the whole address book.
func (s *Store) PruneContacts(ctx context.Context, addressBookID string, keep []string) (int64, error) {
	query := "DELETE FROM contacts WHERE abook_id = ?"
	args := []interface{}{addressBookID}

	if len(keep) > 0 {
		query += " AND uri NOT IN (?" + strings.Repeat(", ?", len(keep)-1) + ")"
		for _, uri := range keep {
			args = append(args, uri)
		}
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("pruning contacts for %s: %w", addressBookID, err)
	}
	removed, _ := result.RowsAffected()
	return removed, nil
}
