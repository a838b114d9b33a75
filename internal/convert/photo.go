package convert

import (
	"context"
	"errors"
	"sync"

	"github.com/emersion/go-vcard"

	"github.com/imlich/cardsync/internal/config"
)

// PhotoResolver retrieves the binary photo data referenced by a card. The
// converter never calls it; it only binds the reference for the caller to
// resolve on demand.
type PhotoResolver interface {
	FetchPhoto(ctx context.Context, addressBookID string, card vcard.Card) ([]byte, error)
}

// Photo is the tri-state photo slot of a record. A nil *Photo on the record
// means the key is absent ("no change" on write-back). A Photo carrying
// neither data nor a deferred reference is an explicit delete. Data set by
// the caller is written back verbatim (base64-encoded on the card).
type Photo struct {
	Data []byte

	ref *photoRef
}

// photoRef carries enough context to resolve the photo later, exactly once,
// independent of the conversion that created it.
type photoRef struct {
	addressBookID string
	card          vcard.Card
	resolver      PhotoResolver

	once sync.Once
	data []byte
	err  error
}

// deferredPhoto installs a lazy reference instead of eagerly decoding or
// downloading binary data during conversion.
func deferredPhoto(addressBookID string, card vcard.Card, resolver PhotoResolver) *Photo {
	return &Photo{ref: &photoRef{
		addressBookID: addressBookID,
		card:          card,
		resolver:      resolver,
	}}
}

// Deferred reports whether the photo still points at unresolved card data.
func (p *Photo) Deferred() bool {
	return p != nil && p.ref != nil
}

// Resolve fetches the photo bytes at most once. Subsequent calls return the
// cached result, including a cached error.
func (p *Photo) Resolve(ctx context.Context) ([]byte, error) {
	if p.ref == nil {
		return p.Data, nil
	}
	p.ref.once.Do(func() {
		if p.ref.resolver == nil {
			p.ref.err = errors.New(config.ErrPhotoResolver)
			return
		}
		p.ref.data, p.ref.err = p.ref.resolver.FetchPhoto(ctx, p.ref.addressBookID, p.ref.card)
	})
	return p.ref.data, p.ref.err
}
