package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/emersion/go-vcard"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/carddav"

	"github.com/imlich/cardsync/internal/config"
)

// CardDAVSource implements Source against a CardDAV endpoint with HTTP basic
// authentication.
type CardDAVSource struct {
	dav *carddav.Client
	log *slog.Logger
}

// userAgentTransport stamps the application User-Agent on every request.
type userAgentTransport struct {
	next http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	return t.next.RoundTrip(req)
}

// NewCardDAVSource creates a source for one account endpoint.
func NewCardDAVSource(endpoint, username, password string) (*CardDAVSource, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	httpClient := &http.Client{
		Timeout:   config.HTTPTimeout,
		Transport: &userAgentTransport{next: http.DefaultTransport},
	}

	var client webdav.HTTPClient = httpClient
	if username != "" || password != "" {
		client = webdav.HTTPClientWithBasicAuth(httpClient, username, password)
	}

	dav, err := carddav.NewClient(client, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDiscover, err)
	}

	return &CardDAVSource{
		dav: dav,
		log: slog.With(
			config.LogKeyComponent, config.CompSource,
			config.LogKeyURL, u.Scheme+"://"+u.Host+u.Path,
		),
	}, nil
}

// AddressBooks walks the standard discovery chain: current user principal,
// address book home set, then the collections below it.
func (s *CardDAVSource) AddressBooks(ctx context.Context) ([]AddressBook, error) {
	principal, err := s.dav.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDiscover, err)
	}

	homeSet, err := s.dav.FindAddressBookHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDiscover, err)
	}

	books, err := s.dav.FindAddressBooks(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrListAddressBooks, err)
	}

	out := make([]AddressBook, 0, len(books))
	for _, b := range books {
		out = append(out, AddressBook{
			Path:        b.Path,
			Name:        b.Name,
			Description: b.Description,
		})
	}

	s.log.Debug("Address books discovered", config.LogKeyCount, len(out))
	return out, nil
}

// Objects downloads the full address data of every object in the collection.
func (s *CardDAVSource) Objects(ctx context.Context, bookPath string) ([]Object, error) {
	query := &carddav.AddressBookQuery{
		DataRequest: carddav.AddressDataRequest{AllProp: true},
	}

	objs, err := s.dav.QueryAddressBook(ctx, bookPath, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrListObjects, err)
	}

	out := make([]Object, 0, len(objs))
	for _, o := range objs {
		if o.Card == nil {
			continue
		}
		out = append(out, Object{Path: o.Path, ETag: o.ETag, Card: o.Card})
	}

	s.log.Debug("Address objects downloaded",
		config.LogKeyAddressBook, bookPath,
		config.LogKeyCount, len(out),
	)
	return out, nil
}

// Put creates or replaces one address object.
func (s *CardDAVSource) Put(ctx context.Context, path string, card vcard.Card) (*Object, error) {
	obj, err := s.dav.PutAddressObject(ctx, path, card)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrPutObject, err)
	}

	out := &Object{Path: obj.Path, ETag: obj.ETag, Card: card}
	if obj.Card != nil {
		out.Card = obj.Card
	}

	s.log.Info(config.MsgCardPushed,
		config.LogKeyPath, out.Path,
		config.LogKeyETag, out.ETag,
	)
	return out, nil
}

// Delete removes one address object.
func (s *CardDAVSource) Delete(ctx context.Context, path string) error {
	if err := s.dav.RemoveAll(ctx, path); err != nil {
		return fmt.Errorf("%s: %w", config.ErrDeleteObject, err)
	}
	return nil
}
