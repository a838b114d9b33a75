package source

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/emersion/go-vcard"

	"github.com/imlich/cardsync/internal/config"
)

// PhotoFetcher resolves photo references found on cards. Inline base64 data
// is decoded locally; URI references are downloaded over HTTP.
type PhotoFetcher struct {
	Client *http.Client
}

// NewPhotoFetcher creates a fetcher with the standard client timeout.
func NewPhotoFetcher() *PhotoFetcher {
	return &PhotoFetcher{
		Client: &http.Client{Timeout: config.HTTPTimeout},
	}
}

// FetchPhoto returns the binary photo data of the card, or an error if the
// card has no usable photo property.
func (p *PhotoFetcher) FetchPhoto(ctx context.Context, addressBookID string, card vcard.Card) ([]byte, error) {
	f := card.Get(vcard.FieldPhoto)
	if f == nil || f.Value == "" {
		return nil, errors.New(config.ErrPhotoFetch)
	}

	if isPhotoURI(f) {
		return p.download(ctx, f.Value)
	}

	// Inline payload. Strip the line folding whitespace some servers leave in.
	raw := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, f.Value)

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrPhotoFetch, err)
	}
	return data, nil
}

// isPhotoURI reports whether the property references external data rather
// than carrying it inline.
func isPhotoURI(f *vcard.Field) bool {
	if strings.EqualFold(f.Params.Get(vcard.ParamValue), config.ValueURI) {
		return true
	}
	lower := strings.ToLower(f.Value)
	return strings.HasPrefix(lower, config.SchemeHTTP+"://") ||
		strings.HasPrefix(lower, config.SchemeHTTPS+"://")
}

func (p *PhotoFetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrPhotoFetch, err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrPhotoFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d", config.ErrPhotoFetch, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxPhotoBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrPhotoFetch, err)
	}
	return data, nil
}
