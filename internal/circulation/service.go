package circulation

import (
	"context"

	"bookledger/internal/catalog"
	"bookledger/internal/journal"
	"bookledger/internal/storage"
)

// Service defines the interface for the circulation service. Failures are
// *errs.Error values; any other error is Internal.
type Service interface {
	// BorrowBook lends an available book to a member.
	BorrowBook(ctx context.Context, bookID, memberID string) (*BorrowRecord, error)
	// ReturnBook closes an open borrow record.
	ReturnBook(ctx context.Context, recordID string) (*BorrowRecord, error)
	// ListBorrowings returns every record with its book and member, ordered
	// by borrow date, then id.
	ListBorrowings(ctx context.Context) ([]BorrowingDetails, error)
	// ListAvailableBooks returns the books without an open record, ordered
	// by title, then id.
	ListAvailableBooks(ctx context.Context) ([]catalog.Book, error)
	// History returns the journal entries of a record in version order.
	History(ctx context.Context, recordID string) ([]journal.Entry, error)
}

// CatalogStore is the slice of the catalog's data access the ledger needs.
// Every call runs on the ledger's transaction.
type CatalogStore interface {
	LockBookByID(ctx context.Context, q storage.Querier, id string) (*catalog.Book, error)
	SetBookAvailability(ctx context.Context, q storage.Querier, id string, available bool) error
	GetMemberByID(ctx context.Context, q storage.Querier, id string) (*catalog.Member, error)
}
