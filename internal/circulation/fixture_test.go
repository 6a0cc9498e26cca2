package circulation_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/require"

	"bookledger/internal/catalog"
	"bookledger/internal/circulation"
	"bookledger/internal/storage"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testingT is satisfied by *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

type fixture struct {
	db      *storage.DB
	clock   *clock
	catalog catalog.Service
	ledger  circulation.Service
	seq     int
}

func newFixture(db *storage.DB) *fixture {
	clk := &clock{now: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)}
	return &fixture{
		db:      db,
		clock:   clk,
		catalog: catalog.NewService(db, catalog.NewStore(db), catalog.WithClock(clk.Now), catalog.WithLogger(quietLogger)),
		ledger: circulation.NewService(db, catalog.NewStore(db),
			circulation.WithClock(clk.Now),
			circulation.WithLogger(quietLogger),
		),
	}
}

func (f *fixture) book(t testingT, title string) *catalog.Book {
	t.Helper()
	f.seq++
	book, err := f.catalog.CreateBook(context.Background(), catalog.BookInput{
		Title:         title,
		Author:        "Author " + title,
		PublishedDate: "2001-01-01",
		ISBN:          fmt.Sprintf("isbn-%04d", f.seq),
	})
	require.NoError(t, err)
	return book
}

func (f *fixture) member(t testingT, name string) *catalog.Member {
	t.Helper()
	f.seq++
	member, err := f.catalog.CreateMember(context.Background(), catalog.MemberInput{
		Name:  name,
		Email: fmt.Sprintf("member%d@example.org", f.seq),
	})
	require.NoError(t, err)
	return member
}

func bookIDs(books []catalog.Book) []string {
	ids := make([]string, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	return ids
}
