// Package source talks to CardDAV servers: collection discovery, bulk
// download of address objects, and write-back of individual cards.
package source

import (
	"context"

	"github.com/emersion/go-vcard"
)

// AddressBook is one collection discovered on a server.
type AddressBook struct {
	// Path is the collection path on the server, unique per account.
	Path        string
	Name        string
	Description string
}

// Object is one address object as served by the server.
type Object struct {
	Path string
	ETag string
	Card vcard.Card
}

// Source defines the contract for a remote contact collection.
// This interface allows for mocking in tests and decoupling from the network layer.
type Source interface {
	// AddressBooks discovers the account's collections.
	AddressBooks(ctx context.Context) ([]AddressBook, error)

	// Objects downloads every address object of one collection.
	Objects(ctx context.Context, bookPath string) ([]Object, error)

	// Put creates or replaces one address object and returns its new state.
	Put(ctx context.Context, path string, card vcard.Card) (*Object, error)

	// Delete removes one address object.
	Delete(ctx context.Context, path string) error
}
