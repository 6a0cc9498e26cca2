package clients

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookledger/internal/catalog"
	"bookledger/internal/circulation"
	"bookledger/internal/errs"
	"bookledger/internal/storage/storagetest"
	"bookledger/internal/transport"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := storagetest.SQLite(t)
	router := transport.NewRouter(transport.RouterConfig{Logger: quiet},
		catalog.NewHandler(catalog.NewService(db, catalog.NewStore(db), catalog.WithLogger(quiet)), quiet),
		circulation.NewHandler(circulation.NewService(db, catalog.NewStore(db), circulation.WithLogger(quiet)), quiet),
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientAgainstServer(t *testing.T) {
	ctx := context.Background()
	client := New(newServer(t).URL+"/", WithRetry(1, time.Millisecond))

	book, err := client.CreateBook(ctx, catalog.BookInput{
		Title:         "The Left Hand of Darkness",
		Author:        "Ursula K. Le Guin",
		PublishedDate: "1969-03-01",
		ISBN:          "978-0441478125",
	})
	require.NoError(t, err)
	member, err := client.CreateMember(ctx, catalog.MemberInput{Name: "Ada", Email: "ada@example.org"})
	require.NoError(t, err)

	record, err := client.BorrowBook(ctx, book.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, circulation.StatusBorrowed, record.Status)

	_, err = client.BorrowBook(ctx, book.ID, member.ID)
	require.Error(t, err)
	assert.Equal(t, errs.FailedPrecondition, errs.KindOf(err))
	assert.Equal(t, "book unavailable", err.Error())

	got, err := client.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, got.IsAvailable)

	available, err := client.ListAvailableBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, available)

	borrowings, err := client.ListBorrowings(ctx)
	require.NoError(t, err)
	require.Len(t, borrowings, 1)
	assert.Equal(t, member.ID, borrowings[0].Member.ID)

	returned, err := client.ReturnBook(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, circulation.StatusReturned, returned.Status)

	history, err := client.History(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, circulation.EventBookBorrowed, history[0].EventType)

	_, err = client.GetMember(ctx, "missing")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestClientRetriesInternalFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			transport.WriteJSON(w, http.StatusInternalServerError, transport.ErrorResponse{Error: "internal error", Code: "INTERNAL"})
			return
		}
		transport.WriteJSON(w, http.StatusOK, []catalog.Book{{ID: "b1", Title: "Dune"}})
	}))
	defer srv.Close()

	books, err := New(srv.URL, WithRetry(3, time.Millisecond)).ListAvailableBooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithRetry(2, time.Millisecond)).ListBorrowings(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.Internal, errs.KindOf(err))
	assert.Contains(t, err.Error(), "unexpected status code: 502")
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientDoesNotRetryTaggedFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		transport.WriteJSON(w, http.StatusNotFound, transport.ErrorResponse{
			Error: "borrow_record with id r1 not found",
			Code:  "NOT_FOUND",
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithRetry(3, time.Millisecond)).ReturnBook(context.Background(), "r1")
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
	assert.Equal(t, "borrow_record with id r1 not found", err.Error())
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientSendsPostsOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		transport.WriteJSON(w, http.StatusInternalServerError, transport.ErrorResponse{Error: "internal error", Code: "INTERNAL"})
	}))
	defer srv.Close()

	client := New(srv.URL, WithRetry(3, time.Millisecond))

	_, err := client.BorrowBook(context.Background(), "b1", "m1")
	require.Error(t, err)
	assert.Equal(t, errs.Internal, errs.KindOf(err))
	assert.Equal(t, int32(1), calls.Load())

	_, err = client.ReturnBook(context.Background(), "r1")
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, WithRetry(2, time.Millisecond)).ListAvailableBooks(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.Internal, errs.KindOf(err))
}
