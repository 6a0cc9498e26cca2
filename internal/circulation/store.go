package circulation

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"bookledger/internal/catalog"
	"bookledger/internal/storage"
)

const recordsTable = "borrow_records"

var recordColumns = []interface{}{"id", "book_id", "member_id", "borrow_date", "return_date", "status"}

// records is the data access for borrow_records.
type records struct {
	dialect goqu.DialectWrapper
}

func (r records) insert(ctx context.Context, q storage.Querier, rec *BorrowRecord) error {
	_, err := storage.Exec(ctx, q, r.dialect.Insert(recordsTable).Rows(goqu.Record{
		"id":          rec.ID,
		"book_id":     rec.BookID,
		"member_id":   rec.MemberID,
		"borrow_date": rec.BorrowDate,
		"status":      string(rec.Status),
	}))
	if err != nil {
		return fmt.Errorf("failed to insert borrow record: %w", err)
	}
	return nil
}

// lock reads the record and holds a row lock on it until q's transaction ends.
func (r records) lock(ctx context.Context, q storage.Querier, id string) (*BorrowRecord, error) {
	rec := &BorrowRecord{}
	stmt := r.dialect.From(recordsTable).
		Select(recordColumns...).
		Where(goqu.C("id").Eq(id)).
		ForUpdate(exp.Wait)
	if err := storage.Get(ctx, q, rec, stmt); err != nil {
		return nil, fmt.Errorf("failed to lock borrow record %s: %w", id, err)
	}
	return rec, nil
}

func (r records) exists(ctx context.Context, q storage.Querier, id string) (bool, error) {
	var n int
	stmt := r.dialect.From(recordsTable).
		Select(goqu.COUNT("*")).
		Where(goqu.C("id").Eq(id))
	if err := storage.Get(ctx, q, &n, stmt); err != nil {
		return false, fmt.Errorf("failed to look up borrow record %s: %w", id, err)
	}
	return n > 0, nil
}

// hasOpenRecord reports whether bookID is currently borrowed.
func (r records) hasOpenRecord(ctx context.Context, q storage.Querier, bookID string) (bool, error) {
	var n int
	stmt := r.dialect.From(recordsTable).
		Select(goqu.COUNT("*")).
		Where(
			goqu.C("book_id").Eq(bookID),
			goqu.C("status").Eq(string(StatusBorrowed)),
		)
	if err := storage.Get(ctx, q, &n, stmt); err != nil {
		return false, fmt.Errorf("failed to check open records of book %s: %w", bookID, err)
	}
	return n > 0, nil
}

// close marks an open record RETURNED. It reports false when the record was
// not open.
func (r records) close(ctx context.Context, q storage.Querier, id string, returned catalog.Date) (bool, error) {
	n, err := storage.Exec(ctx, q, r.dialect.Update(recordsTable).
		Set(goqu.Record{
			"status":      string(StatusReturned),
			"return_date": returned,
		}).
		Where(
			goqu.C("id").Eq(id),
			goqu.C("status").Eq(string(StatusBorrowed)),
		))
	if err != nil {
		return false, fmt.Errorf("failed to close borrow record %s: %w", id, err)
	}
	return n == 1, nil
}

// borrowingRow is one row of the borrowings join.
type borrowingRow struct {
	RecordID      string        `db:"record_id"`
	BorrowDate    catalog.Date  `db:"borrow_date"`
	ReturnDate    *catalog.Date `db:"return_date"`
	Status        Status        `db:"status"`
	BookID        string        `db:"book_id"`
	BookTitle     string        `db:"book_title"`
	BookAuthor    string        `db:"book_author"`
	BookPublished catalog.Date  `db:"book_published_date"`
	BookISBN      string        `db:"book_isbn"`
	BookAvailable bool          `db:"book_is_available"`
	MemberID      string        `db:"member_id"`
	MemberName    string        `db:"member_name"`
	MemberEmail   string        `db:"member_email"`
	MemberJoined  catalog.Date  `db:"member_join_date"`
}

func (row borrowingRow) details() BorrowingDetails {
	return BorrowingDetails{
		Record: BorrowRecord{
			ID:         row.RecordID,
			BookID:     row.BookID,
			MemberID:   row.MemberID,
			BorrowDate: row.BorrowDate,
			ReturnDate: row.ReturnDate,
			Status:     row.Status,
		},
		Book: catalog.Book{
			ID:            row.BookID,
			Title:         row.BookTitle,
			Author:        row.BookAuthor,
			PublishedDate: row.BookPublished,
			ISBN:          row.BookISBN,
			IsAvailable:   row.BookAvailable,
		},
		Member: catalog.Member{
			ID:       row.MemberID,
			Name:     row.MemberName,
			Email:    row.MemberEmail,
			JoinDate: row.MemberJoined,
		},
	}
}

// listDetailed joins every record with its book and member in one query.
func (r records) listDetailed(ctx context.Context, q storage.Querier) ([]BorrowingDetails, error) {
	stmt := r.dialect.From(goqu.T(recordsTable).As("r")).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("r.book_id")))).
		Join(goqu.T("members").As("m"), goqu.On(goqu.I("m.id").Eq(goqu.I("r.member_id")))).
		Select(
			goqu.I("r.id").As("record_id"),
			goqu.I("r.borrow_date").As("borrow_date"),
			goqu.I("r.return_date").As("return_date"),
			goqu.I("r.status").As("status"),
			goqu.I("b.id").As("book_id"),
			goqu.I("b.title").As("book_title"),
			goqu.I("b.author").As("book_author"),
			goqu.I("b.published_date").As("book_published_date"),
			goqu.I("b.isbn").As("book_isbn"),
			goqu.I("b.is_available").As("book_is_available"),
			goqu.I("m.id").As("member_id"),
			goqu.I("m.name").As("member_name"),
			goqu.I("m.email").As("member_email"),
			goqu.I("m.join_date").As("member_join_date"),
		).
		Order(goqu.I("r.borrow_date").Asc(), goqu.I("r.id").Asc())

	var rows []borrowingRow
	if err := storage.Select(ctx, q, &rows, stmt); err != nil {
		return nil, fmt.Errorf("failed to list borrowings: %w", err)
	}

	details := make([]BorrowingDetails, 0, len(rows))
	for _, row := range rows {
		details = append(details, row.details())
	}
	return details, nil
}

// listAvailableBooks derives availability from the records table rather
// than the cached flag.
func (r records) listAvailableBooks(ctx context.Context, q storage.Querier) ([]catalog.Book, error) {
	open := r.dialect.From(recordsTable).
		Select("book_id").
		Where(goqu.C("status").Eq(string(StatusBorrowed)))

	stmt := r.dialect.From("books").
		Select(catalog.BookColumns...).
		Where(goqu.C("id").NotIn(open)).
		Order(goqu.C("title").Asc(), goqu.C("id").Asc())

	books := []catalog.Book{}
	if err := storage.Select(ctx, q, &books, stmt); err != nil {
		return nil, fmt.Errorf("failed to list available books: %w", err)
	}
	return books, nil
}
