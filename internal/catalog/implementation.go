package catalog

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookledger/internal/errs"
	"bookledger/internal/storage"
)

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// service implements the Service interface.
type service struct {
	db     *storage.DB
	store  *Store
	clock  func() time.Time
	logger *slog.Logger
}

// Option configures the catalog service.
type Option func(*service)

// WithClock sets the source of join dates.
func WithClock(clock func() time.Time) Option {
	return func(s *service) { s.clock = clock }
}

// WithLogger sets the logger for catalog changes.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

// NewService creates a new catalog service instance.
func NewService(db *storage.DB, store *Store, opts ...Option) Service {
	s := &service{
		db:     db,
		store:  store,
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateBook(ctx context.Context, in BookInput) (*Book, error) {
	book, err := validateBook(in)
	if err != nil {
		return nil, err
	}
	book.ID = uuid.NewString()
	book.IsAvailable = true

	if err := s.store.InsertBook(ctx, s.db, book); err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, errs.AlreadyExistsf("book with isbn %s already exists", book.ISBN)
		}
		return nil, errs.Internalf(err, "failed to create book")
	}

	s.logger.InfoContext(ctx, "book created", "book_id", book.ID, "isbn", book.ISBN)
	return book, nil
}

func (s *service) GetBook(ctx context.Context, id string) (*Book, error) {
	id, err := requireID("book", id)
	if err != nil {
		return nil, err
	}

	book, err := s.store.GetBookByID(ctx, s.db, id)
	if err != nil {
		return nil, lookupError(err, "book", id)
	}
	return book, nil
}

func (s *service) UpdateBook(ctx context.Context, id string, in BookInput) (*Book, error) {
	id, err := requireID("book", id)
	if err != nil {
		return nil, err
	}
	book, err := validateBook(in)
	if err != nil {
		return nil, err
	}
	book.ID = id

	var updated *Book
	err = s.db.InTx(ctx, func(tx storage.Tx) error {
		if err := s.store.UpdateBook(ctx, tx, book); err != nil {
			if storage.IsUniqueViolation(err) {
				return errs.AlreadyExistsf("book with isbn %s already exists", book.ISBN)
			}
			return lookupError(err, "book", id)
		}
		fresh, err := s.store.GetBookByID(ctx, tx, id)
		if err != nil {
			return lookupError(err, "book", id)
		}
		updated = fresh
		return nil
	})
	if err != nil {
		return nil, errs.OrInternal(err, "failed to update book %s", id)
	}

	s.logger.InfoContext(ctx, "book updated", "book_id", id)
	return updated, nil
}

func (s *service) DeleteBook(ctx context.Context, id string) error {
	id, err := requireID("book", id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteBook(ctx, s.db, id); err != nil {
		if storage.IsForeignKeyViolation(err) {
			return errs.FailedPreconditionf("book %s is referenced by borrow records", id)
		}
		return lookupError(err, "book", id)
	}

	s.logger.InfoContext(ctx, "book deleted", "book_id", id)
	return nil
}

func (s *service) ListBooks(ctx context.Context) ([]Book, error) {
	books, err := s.store.ListBooks(ctx, s.db)
	if err != nil {
		return nil, errs.Internalf(err, "failed to list books")
	}
	return books, nil
}

func (s *service) CreateMember(ctx context.Context, in MemberInput) (*Member, error) {
	member, err := validateMember(in)
	if err != nil {
		return nil, err
	}
	member.ID = uuid.NewString()
	member.JoinDate = NewDate(s.clock())

	if err := s.store.InsertMember(ctx, s.db, member); err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, errs.AlreadyExistsf("member with email %s already exists", member.Email)
		}
		return nil, errs.Internalf(err, "failed to create member")
	}

	s.logger.InfoContext(ctx, "member created", "member_id", member.ID)
	return member, nil
}

func (s *service) GetMember(ctx context.Context, id string) (*Member, error) {
	id, err := requireID("member", id)
	if err != nil {
		return nil, err
	}

	member, err := s.store.GetMemberByID(ctx, s.db, id)
	if err != nil {
		return nil, lookupError(err, "member", id)
	}
	return member, nil
}

func (s *service) UpdateMember(ctx context.Context, id string, in MemberInput) (*Member, error) {
	id, err := requireID("member", id)
	if err != nil {
		return nil, err
	}
	member, err := validateMember(in)
	if err != nil {
		return nil, err
	}
	member.ID = id

	var updated *Member
	err = s.db.InTx(ctx, func(tx storage.Tx) error {
		owner, err := s.store.GetMemberByEmail(ctx, tx, member.Email)
		switch {
		case err == nil && owner.ID != id:
			return errs.AlreadyExistsf("member with email %s already exists", member.Email)
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return err
		}

		if err := s.store.UpdateMember(ctx, tx, member); err != nil {
			if storage.IsUniqueViolation(err) {
				return errs.AlreadyExistsf("member with email %s already exists", member.Email)
			}
			return lookupError(err, "member", id)
		}
		fresh, err := s.store.GetMemberByID(ctx, tx, id)
		if err != nil {
			return lookupError(err, "member", id)
		}
		updated = fresh
		return nil
	})
	if err != nil {
		return nil, errs.OrInternal(err, "failed to update member %s", id)
	}

	s.logger.InfoContext(ctx, "member updated", "member_id", id)
	return updated, nil
}

func (s *service) DeleteMember(ctx context.Context, id string) error {
	id, err := requireID("member", id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteMember(ctx, s.db, id); err != nil {
		if storage.IsForeignKeyViolation(err) {
			return errs.FailedPreconditionf("member %s is referenced by borrow records", id)
		}
		return lookupError(err, "member", id)
	}

	s.logger.InfoContext(ctx, "member deleted", "member_id", id)
	return nil
}

func (s *service) ListMembers(ctx context.Context) ([]Member, error) {
	members, err := s.store.ListMembers(ctx, s.db)
	if err != nil {
		return nil, errs.Internalf(err, "failed to list members")
	}
	return members, nil
}

func validateBook(in BookInput) (*Book, error) {
	book := &Book{
		Title:  strings.TrimSpace(in.Title),
		Author: strings.TrimSpace(in.Author),
		ISBN:   strings.TrimSpace(in.ISBN),
	}
	published := strings.TrimSpace(in.PublishedDate)

	if book.Title == "" || book.Author == "" || book.ISBN == "" || published == "" {
		return nil, errs.InvalidArgumentf("title, author, published_date and isbn are required")
	}

	date, err := ParseDate(published)
	if err != nil {
		return nil, errs.InvalidArgumentf("published_date must be formatted as YYYY-MM-DD, got %q", published)
	}
	book.PublishedDate = date
	return book, nil
}

func validateMember(in MemberInput) (*Member, error) {
	member := &Member{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.TrimSpace(in.Email),
	}
	if member.Name == "" || member.Email == "" {
		return nil, errs.InvalidArgumentf("name and email are required")
	}
	if !emailPattern.MatchString(member.Email) {
		return nil, errs.InvalidArgumentf("invalid email format: %q", member.Email)
	}
	return member, nil
}

func requireID(resource, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errs.InvalidArgumentf("%s id is required", resource)
	}
	return id, nil
}

// lookupError maps a store error for resource id onto the error taxonomy.
func lookupError(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return errs.NotFoundf(resource, id)
	}
	return errs.Internalf(err, "failed to access %s %s", resource, id)
}
