package convert_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imlich/cardsync/internal/convert"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockLabelStore simulates the custom label registry using `testify/mock`.
type MockLabelStore struct {
	mock.Mock
}

func (m *MockLabelStore) LoadLabels(ctx context.Context, addressBookID string) (map[string][]string, error) {
	args := m.Called(ctx, addressBookID)
	if r := args.Get(0); r != nil {
		return r.(map[string][]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLabelStore) InsertLabel(ctx context.Context, addressBookID, field, label string) error {
	return m.Called(ctx, addressBookID, field, label).Error(0)
}

// MockPhotoResolver simulates the photo download layer.
type MockPhotoResolver struct {
	mock.Mock
}

func (m *MockPhotoResolver) FetchPhoto(ctx context.Context, addressBookID string, card vcard.Card) ([]byte, error) {
	args := m.Called(ctx, addressBookID, card)
	if r := args.Get(0); r != nil {
		return r.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

const testBook = "book-1"

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// emptyLabelStore returns a mock with an empty registry that accepts any
// insert.
func emptyLabelStore() *MockLabelStore {
	store := new(MockLabelStore)
	store.On("LoadLabels", mock.Anything, testBook).Return(map[string][]string{}, nil)
	store.On("InsertLabel", mock.Anything, testBook, mock.Anything, mock.Anything).Return(nil)
	return store
}

func newConverter(t *testing.T, cfg convert.Config) *convert.Converter {
	t.Helper()
	if cfg.AddressBookID == "" {
		cfg.AddressBookID = testBook
	}
	if cfg.Labels == nil {
		cfg.Labels = emptyLabelStore()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return testNow }
	}
	cv, err := convert.New(context.Background(), cfg)
	require.NoError(t, err)
	return cv
}

// field is a shorthand constructor for card property occurrences.
func field(value string, opts ...func(*vcard.Field)) *vcard.Field {
	f := &vcard.Field{Value: value, Params: make(vcard.Params)}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func withType(types ...string) func(*vcard.Field) {
	return func(f *vcard.Field) {
		for _, t := range types {
			f.Params.Add(vcard.ParamType, t)
		}
	}
}

func withParam(name, value string) func(*vcard.Field) {
	return func(f *vcard.Field) { f.Params.Add(name, value) }
}

func withGroup(group string) func(*vcard.Field) {
	return func(f *vcard.Field) { f.Group = group }
}

// -----------------------------------------------------------------------------
// Test Cases
// -----------------------------------------------------------------------------

func TestNew_LoadsRegistryOnce(t *testing.T) {
	store := new(MockLabelStore)
	store.On("LoadLabels", mock.Anything, testBook).
		Return(map[string][]string{"phone": {"Lawyer"}}, nil).Once()

	cv := newConverter(t, convert.Config{Labels: store})
	assert.Equal(t, testBook, cv.AddressBookID())

	// A label already in the registry resolves without a new insert.
	card := vcard.Card{
		vcard.FieldTelephone: []*vcard.Field{field("+123", withGroup("ITEM1"))},
		"X-ABLABEL":          []*vcard.Field{field("lawyer", withGroup("ITEM1"))},
	}
	rec := cv.ToRecord(context.Background(), card)
	assert.Equal(t, []string{"+123"}, rec.Multi["phone:Lawyer"])
	store.AssertExpectations(t)
}

func TestNew_LoadFailure(t *testing.T) {
	store := new(MockLabelStore)
	store.On("LoadLabels", mock.Anything, testBook).
		Return(nil, errors.New("db locked"))

	_, err := convert.New(context.Background(), convert.Config{
		AddressBookID: testBook,
		Labels:        store,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db locked")
}
