package catalog

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"bookledger/internal/storage"
)

const (
	booksTable   = "books"
	membersTable = "members"
)

// BookColumns lists the books columns in Book field order.
var BookColumns = []interface{}{"id", "title", "author", "published_date", "isbn", "is_available"}

var memberColumns = []interface{}{"id", "name", "email", "join_date"}

// Store is the data access layer for books and members. Every method takes
// the Querier to run on, so calls compose into a caller's transaction.
// Lookups of absent rows return an error wrapping storage.ErrNotFound.
type Store struct {
	dialect goqu.DialectWrapper
}

// NewStore returns a Store that renders SQL for db's dialect.
func NewStore(db *storage.DB) *Store {
	return &Store{dialect: db.Dialect()}
}

func (s *Store) GetBookByID(ctx context.Context, q storage.Querier, id string) (*Book, error) {
	book := &Book{}
	stmt := s.dialect.From(booksTable).Select(BookColumns...).Where(goqu.C("id").Eq(id))
	if err := storage.Get(ctx, q, book, stmt); err != nil {
		return nil, fmt.Errorf("failed to get book %s: %w", id, err)
	}
	return book, nil
}

// LockBookByID reads the book and holds a row lock on it until q's
// transaction ends. On SQLite the lock clause renders empty; the
// immediate transaction already holds the database write lock.
func (s *Store) LockBookByID(ctx context.Context, q storage.Querier, id string) (*Book, error) {
	book := &Book{}
	stmt := s.dialect.From(booksTable).
		Select(BookColumns...).
		Where(goqu.C("id").Eq(id)).
		ForUpdate(exp.Wait)
	if err := storage.Get(ctx, q, book, stmt); err != nil {
		return nil, fmt.Errorf("failed to lock book %s: %w", id, err)
	}
	return book, nil
}

// SetBookAvailability updates the cached availability flag.
func (s *Store) SetBookAvailability(ctx context.Context, q storage.Querier, id string, available bool) error {
	n, err := storage.Exec(ctx, q, s.dialect.Update(booksTable).
		Set(goqu.Record{"is_available": available}).
		Where(goqu.C("id").Eq(id)))
	if err != nil {
		return fmt.Errorf("failed to set availability of book %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to set availability of book %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) InsertBook(ctx context.Context, q storage.Querier, book *Book) error {
	_, err := storage.Exec(ctx, q, s.dialect.Insert(booksTable).Rows(goqu.Record{
		"id":             book.ID,
		"title":          book.Title,
		"author":         book.Author,
		"published_date": book.PublishedDate,
		"isbn":           book.ISBN,
		"is_available":   book.IsAvailable,
	}))
	if err != nil {
		return fmt.Errorf("failed to insert book: %w", err)
	}
	return nil
}

// UpdateBook writes the descriptive fields. The availability flag is left alone.
func (s *Store) UpdateBook(ctx context.Context, q storage.Querier, book *Book) error {
	n, err := storage.Exec(ctx, q, s.dialect.Update(booksTable).
		Set(goqu.Record{
			"title":          book.Title,
			"author":         book.Author,
			"published_date": book.PublishedDate,
			"isbn":           book.ISBN,
		}).
		Where(goqu.C("id").Eq(book.ID)))
	if err != nil {
		return fmt.Errorf("failed to update book %s: %w", book.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to update book %s: %w", book.ID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteBook(ctx context.Context, q storage.Querier, id string) error {
	n, err := storage.Exec(ctx, q, s.dialect.Delete(booksTable).Where(goqu.C("id").Eq(id)))
	if err != nil {
		return fmt.Errorf("failed to delete book %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to delete book %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ListBooks returns every book ordered by title, then id.
func (s *Store) ListBooks(ctx context.Context, q storage.Querier) ([]Book, error) {
	books := []Book{}
	stmt := s.dialect.From(booksTable).
		Select(BookColumns...).
		Order(goqu.C("title").Asc(), goqu.C("id").Asc())
	if err := storage.Select(ctx, q, &books, stmt); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

func (s *Store) GetMemberByID(ctx context.Context, q storage.Querier, id string) (*Member, error) {
	return s.getMember(ctx, q, goqu.C("id").Eq(id), id)
}

// GetMemberByEmail looks a member up by its unique email address.
func (s *Store) GetMemberByEmail(ctx context.Context, q storage.Querier, email string) (*Member, error) {
	return s.getMember(ctx, q, goqu.C("email").Eq(email), email)
}

func (s *Store) getMember(ctx context.Context, q storage.Querier, where exp.Expression, key string) (*Member, error) {
	member := &Member{}
	stmt := s.dialect.From(membersTable).Select(memberColumns...).Where(where)
	if err := storage.Get(ctx, q, member, stmt); err != nil {
		return nil, fmt.Errorf("failed to get member %s: %w", key, err)
	}
	return member, nil
}

func (s *Store) InsertMember(ctx context.Context, q storage.Querier, member *Member) error {
	_, err := storage.Exec(ctx, q, s.dialect.Insert(membersTable).Rows(goqu.Record{
		"id":        member.ID,
		"name":      member.Name,
		"email":     member.Email,
		"join_date": member.JoinDate,
	}))
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// UpdateMember writes name and email. The join date is immutable.
func (s *Store) UpdateMember(ctx context.Context, q storage.Querier, member *Member) error {
	n, err := storage.Exec(ctx, q, s.dialect.Update(membersTable).
		Set(goqu.Record{"name": member.Name, "email": member.Email}).
		Where(goqu.C("id").Eq(member.ID)))
	if err != nil {
		return fmt.Errorf("failed to update member %s: %w", member.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to update member %s: %w", member.ID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteMember(ctx context.Context, q storage.Querier, id string) error {
	n, err := storage.Exec(ctx, q, s.dialect.Delete(membersTable).Where(goqu.C("id").Eq(id)))
	if err != nil {
		return fmt.Errorf("failed to delete member %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to delete member %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ListMembers returns every member ordered by name, then id.
func (s *Store) ListMembers(ctx context.Context, q storage.Querier) ([]Member, error) {
	members := []Member{}
	stmt := s.dialect.From(membersTable).
		Select(memberColumns...).
		Order(goqu.C("name").Asc(), goqu.C("id").Asc())
	if err := storage.Select(ctx, q, &members, stmt); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}
