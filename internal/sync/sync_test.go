package sync_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/emersion/go-vcard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imlich/cardsync/internal/convert"
	"github.com/imlich/cardsync/internal/source"
	"github.com/imlich/cardsync/internal/store"
	syncer "github.com/imlich/cardsync/internal/sync"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockSource simulates the CardDAV layer using `testify/mock`.
type MockSource struct {
	mock.Mock
}

func (m *MockSource) AddressBooks(ctx context.Context) ([]source.AddressBook, error) {
	args := m.Called(ctx)
	if r := args.Get(0); r != nil {
		return r.([]source.AddressBook), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSource) Objects(ctx context.Context, bookPath string) ([]source.Object, error) {
	args := m.Called(ctx, bookPath)
	if r := args.Get(0); r != nil {
		return r.([]source.Object), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSource) Put(ctx context.Context, path string, card vcard.Card) (*source.Object, error) {
	args := m.Called(ctx, path, card)
	if r := args.Get(0); r != nil {
		return r.(*source.Object), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSource) Delete(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

const (
	bookPath = "/books/1/"

	// Cache rows are keyed by account-prefixed IDs, not bare paths.
	bookID = "main:" + bookPath
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testCard(uid, name, email string) vcard.Card {
	return vcard.Card{
		vcard.FieldVersion:       []*vcard.Field{{Value: "3.0"}},
		vcard.FieldUID:           []*vcard.Field{{Value: uid}},
		vcard.FieldFormattedName: []*vcard.Field{{Value: name}},
		vcard.FieldEmail: []*vcard.Field{{
			Value:  email,
			Params: vcard.Params{vcard.ParamType: {"home"}},
		}},
	}
}

func oneBook() []source.AddressBook {
	return []source.AddressBook{{Path: bookPath, Name: "Personal"}}
}

// -----------------------------------------------------------------------------
// Test Cases
// -----------------------------------------------------------------------------

func TestRun_PullsAndCaches(t *testing.T) {
	st := newStore(t)
	src := new(MockSource)
	src.On("AddressBooks", mock.Anything).Return(oneBook(), nil)
	src.On("Objects", mock.Anything, bookPath).Return([]source.Object{
		{Path: bookPath + "a.vcf", ETag: `"1"`, Card: testCard("uid-a", "Alice", "alice@example.com")},
		{Path: bookPath + "b.vcf", ETag: `"2"`, Card: testCard("uid-b", "Bob", "bob@example.com")},
	}, nil)

	s := syncer.New("main", src, st, nil)

	stats, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Books)
	assert.Equal(t, 2, stats.Upserted)
	assert.Zero(t, stats.Removed)

	contacts, err := st.ContactsByAddressBook(context.Background(), bookID)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "Alice", contacts[0].DisplayName)

	rec, err := contacts[0].Record()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com"}, rec.Multi["email:home"])

	src.AssertExpectations(t)
}

func TestRun_PrunesVanishedContacts(t *testing.T) {
	st := newStore(t)
	src := new(MockSource)
	src.On("AddressBooks", mock.Anything).Return(oneBook(), nil)
	src.On("Objects", mock.Anything, bookPath).Return([]source.Object{
		{Path: bookPath + "a.vcf", Card: testCard("uid-a", "Alice", "alice@example.com")},
		{Path: bookPath + "b.vcf", Card: testCard("uid-b", "Bob", "bob@example.com")},
	}, nil).Once()

	s := syncer.New("main", src, st, nil)
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	// Second pass: Bob is gone from the server.
	src.On("Objects", mock.Anything, bookPath).Return([]source.Object{
		{Path: bookPath + "a.vcf", Card: testCard("uid-a", "Alice", "alice@example.com")},
	}, nil).Once()

	stats, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Removed)

	contacts, err := st.ContactsByAddressBook(context.Background(), bookID)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "uid-a", contacts[0].UID)
}

func TestRun_AccountsWithSamePathStayDistinct(t *testing.T) {
	st := newStore(t)

	newAccountSource := func(uid, name, email string) *MockSource {
		src := new(MockSource)
		src.On("AddressBooks", mock.Anything).Return(oneBook(), nil)
		src.On("Objects", mock.Anything, bookPath).Return([]source.Object{
			{Path: bookPath + uid + ".vcf", Card: testCard(uid, name, email)},
		}, nil)
		return src
	}

	// Two providers with identical collection layouts share bookPath.
	home := syncer.New("home", newAccountSource("uid-a", "Alice", "alice@example.com"), st, nil)
	work := syncer.New("work", newAccountSource("uid-b", "Bob", "bob@example.com"), st, nil)

	_, err := home.Run(context.Background())
	require.NoError(t, err)
	_, err = work.Run(context.Background())
	require.NoError(t, err)

	books, err := st.AddressBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 2)

	homeContacts, err := st.ContactsByAddressBook(context.Background(), "home:"+bookPath)
	require.NoError(t, err)
	require.Len(t, homeContacts, 1)
	assert.Equal(t, "uid-a", homeContacts[0].UID)

	workContacts, err := st.ContactsByAddressBook(context.Background(), "work:"+bookPath)
	require.NoError(t, err)
	require.Len(t, workContacts, 1)
	assert.Equal(t, "uid-b", workContacts[0].UID)

	// A repeat pass of one account must not prune the other account's rows.
	stats, err := home.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Removed)

	workContacts, err = st.ContactsByAddressBook(context.Background(), "work:"+bookPath)
	require.NoError(t, err)
	assert.Len(t, workContacts, 1)
}

func TestRun_DiscoveryFailure(t *testing.T) {
	st := newStore(t)
	src := new(MockSource)
	src.On("AddressBooks", mock.Anything).Return(nil, assert.AnError)

	s := syncer.New("main", src, st, nil)
	_, err := s.Run(context.Background())
	assert.Error(t, err)
}

func TestPushContact_NewContact(t *testing.T) {
	st := newStore(t)
	src := new(MockSource)
	src.On("AddressBooks", mock.Anything).Return(oneBook(), nil)
	src.On("Objects", mock.Anything, bookPath).Return([]source.Object{}, nil)

	uri := bookPath + "new.vcf"
	var pushed vcard.Card
	src.On("Put", mock.Anything, uri, mock.Anything).
		Run(func(args mock.Arguments) { pushed = args.Get(2).(vcard.Card) }).
		Return(&source.Object{Path: uri, ETag: `"1"`}, nil)

	s := syncer.New("main", src, st, nil)
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	rec := convert.NewRecord()
	rec.Single[convert.KeyName] = "Carol"
	rec.Multi["phone:mobile"] = []string{"+333"}

	require.NoError(t, s.PushContact(context.Background(), bookPath, uri, rec))

	require.NotNil(t, pushed)
	assert.Equal(t, "Carol", pushed.Value(vcard.FieldFormattedName))
	assert.NotEmpty(t, pushed.Value(vcard.FieldUID))
	assert.Equal(t, "+333", pushed.Value(vcard.FieldTelephone))

	// The cache now holds the pushed contact.
	cached, err := st.GetContact(context.Background(), bookID, uri)
	require.NoError(t, err)
	assert.Equal(t, "Carol", cached.DisplayName)
	assert.Equal(t, `"1"`, cached.ETag)
}

func TestDeleteContact(t *testing.T) {
	st := newStore(t)
	src := new(MockSource)
	src.On("AddressBooks", mock.Anything).Return(oneBook(), nil)
	src.On("Objects", mock.Anything, bookPath).Return([]source.Object{
		{Path: bookPath + "a.vcf", Card: testCard("uid-a", "Alice", "alice@example.com")},
	}, nil)
	src.On("Delete", mock.Anything, bookPath+"a.vcf").Return(nil)

	s := syncer.New("main", src, st, nil)
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.DeleteContact(context.Background(), bookPath, bookPath+"a.vcf"))

	_, err = st.GetContact(context.Background(), bookID, bookPath+"a.vcf")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
