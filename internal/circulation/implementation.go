package circulation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"bookledger/internal/catalog"
	"bookledger/internal/errs"
	"bookledger/internal/journal"
	"bookledger/internal/storage"
)

const instrumentationName = "bookledger/circulation"

// service implements the Service interface.
type service struct {
	db      *storage.DB
	store   CatalogStore
	records records
	journal *journal.Journal
	clock   func() time.Time
	logger  *slog.Logger
	tracer  trace.Tracer
	meter   metric.Meter

	borrows  metric.Int64Counter
	returns  metric.Int64Counter
	rejected metric.Int64Counter
}

// Option configures the circulation service.
type Option func(*service)

// WithClock sets the source of borrow and return dates.
func WithClock(clock func() time.Time) Option {
	return func(s *service) { s.clock = clock }
}

// WithLogger sets the logger for ledger transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

// WithJournal replaces the journal the service appends to.
func WithJournal(j *journal.Journal) Option {
	return func(s *service) { s.journal = j }
}

// WithTracer sets the tracer that spans each operation.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *service) { s.tracer = tracer }
}

// WithMeter sets the meter the transition counters are created from.
func WithMeter(meter metric.Meter) Option {
	return func(s *service) { s.meter = meter }
}

// NewService creates a new circulation service instance.
func NewService(db *storage.DB, store CatalogStore, opts ...Option) Service {
	s := &service{
		db:      db,
		store:   store,
		records: records{dialect: db.Dialect()},
		clock:   time.Now,
		logger:  slog.Default(),
		tracer:  otel.Tracer(instrumentationName),
		meter:   otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.journal == nil {
		s.journal = journal.New(db)
	}
	s.initMetrics()
	return s
}

func (s *service) initMetrics() {
	var err error
	if s.borrows, err = s.meter.Int64Counter("bookledger.borrows",
		metric.WithDescription("Books borrowed")); err != nil {
		s.fallbackMetrics(err)
		return
	}
	if s.returns, err = s.meter.Int64Counter("bookledger.returns",
		metric.WithDescription("Books returned")); err != nil {
		s.fallbackMetrics(err)
		return
	}
	if s.rejected, err = s.meter.Int64Counter("bookledger.rejected_transitions",
		metric.WithDescription("Borrow and return calls rejected by a precondition")); err != nil {
		s.fallbackMetrics(err)
	}
}

func (s *service) fallbackMetrics(err error) {
	s.logger.Warn("failed to create circulation metrics, metrics disabled", "error", err)
	m := noop.NewMeterProvider().Meter(instrumentationName)
	s.borrows, _ = m.Int64Counter("bookledger.borrows")
	s.returns, _ = m.Int64Counter("bookledger.returns")
	s.rejected, _ = m.Int64Counter("bookledger.rejected_transitions")
}

// BorrowBook checks, in order: both ids present, book exists, book has no
// open record, member exists. The book row stays locked from the first
// check until commit.
func (s *service) BorrowBook(ctx context.Context, bookID, memberID string) (*BorrowRecord, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.borrow",
		trace.WithAttributes(
			attribute.String("book.id", bookID),
			attribute.String("member.id", memberID),
		),
	)
	defer span.End()

	bookID = strings.TrimSpace(bookID)
	memberID = strings.TrimSpace(memberID)
	if bookID == "" || memberID == "" {
		return nil, s.reject(ctx, span, "borrow", errs.InvalidArgumentf("book_id and member_id are required"))
	}

	record := &BorrowRecord{
		ID:         uuid.NewString(),
		BookID:     bookID,
		MemberID:   memberID,
		BorrowDate: catalog.NewDate(s.clock()),
		Status:     StatusBorrowed,
	}

	err := s.db.InTx(ctx, func(tx storage.Tx) error {
		if _, err := s.store.LockBookByID(ctx, tx, bookID); err != nil {
			return notFoundOr(err, "book", bookID)
		}

		open, err := s.records.hasOpenRecord(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if open {
			return errs.FailedPreconditionf("book unavailable")
		}

		if _, err := s.store.GetMemberByID(ctx, tx, memberID); err != nil {
			return notFoundOr(err, "member", memberID)
		}

		if err := s.records.insert(ctx, tx, record); err != nil {
			if storage.IsUniqueViolation(err) {
				return errs.FailedPreconditionf("book unavailable")
			}
			return err
		}
		if err := s.store.SetBookAvailability(ctx, tx, bookID, false); err != nil {
			return err
		}

		_, err = s.journal.Append(ctx, tx, record.ID, EventBookBorrowed, BookBorrowedEvent{
			RecordID:   record.ID,
			BookID:     bookID,
			MemberID:   memberID,
			BorrowDate: record.BorrowDate,
		})
		return err
	})
	if err != nil {
		return nil, s.reject(ctx, span, "borrow", errs.OrInternal(err, "failed to borrow book %s", bookID))
	}

	span.SetAttributes(attribute.String("record.id", record.ID))
	s.borrows.Add(ctx, 1)
	s.logger.InfoContext(ctx, "book borrowed",
		"record_id", record.ID,
		"book_id", bookID,
		"member_id", memberID,
	)
	return record, nil
}

// ReturnBook closes an open record and makes its book available again.
// Returning a record twice fails with FailedPrecondition.
func (s *service) ReturnBook(ctx context.Context, recordID string) (*BorrowRecord, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.return",
		trace.WithAttributes(attribute.String("record.id", recordID)),
	)
	defer span.End()

	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return nil, s.reject(ctx, span, "return", errs.InvalidArgumentf("borrow record id is required"))
	}

	var record *BorrowRecord
	err := s.db.InTx(ctx, func(tx storage.Tx) error {
		rec, err := s.records.lock(ctx, tx, recordID)
		if err != nil {
			return notFoundOr(err, "borrow_record", recordID)
		}
		if rec.Status != StatusBorrowed {
			return errs.FailedPreconditionf("already returned")
		}

		returned := catalog.NewDate(s.clock())
		closed, err := s.records.close(ctx, tx, recordID, returned)
		if err != nil {
			return err
		}
		if !closed {
			return errs.FailedPreconditionf("already returned")
		}
		if err := s.store.SetBookAvailability(ctx, tx, rec.BookID, true); err != nil {
			return err
		}

		if _, err := s.journal.Append(ctx, tx, recordID, EventBookReturned, BookReturnedEvent{
			RecordID:   recordID,
			BookID:     rec.BookID,
			MemberID:   rec.MemberID,
			ReturnDate: returned,
		}); err != nil {
			return err
		}

		rec.Status = StatusReturned
		rec.ReturnDate = &returned
		record = rec
		return nil
	})
	if err != nil {
		return nil, s.reject(ctx, span, "return", errs.OrInternal(err, "failed to return borrow record %s", recordID))
	}

	s.returns.Add(ctx, 1)
	s.logger.InfoContext(ctx, "book returned",
		"record_id", recordID,
		"book_id", record.BookID,
		"member_id", record.MemberID,
	)
	return record, nil
}

func (s *service) ListBorrowings(ctx context.Context) ([]BorrowingDetails, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.list_borrowings")
	defer span.End()

	details, err := s.records.listDetailed(ctx, s.db)
	if err != nil {
		span.RecordError(err)
		return nil, errs.Internalf(err, "failed to list borrowings")
	}
	return details, nil
}

func (s *service) ListAvailableBooks(ctx context.Context) ([]catalog.Book, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.list_available_books")
	defer span.End()

	books, err := s.records.listAvailableBooks(ctx, s.db)
	if err != nil {
		span.RecordError(err)
		return nil, errs.Internalf(err, "failed to list available books")
	}
	return books, nil
}

func (s *service) History(ctx context.Context, recordID string) ([]journal.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.history",
		trace.WithAttributes(attribute.String("record.id", recordID)),
	)
	defer span.End()

	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return nil, errs.InvalidArgumentf("borrow record id is required")
	}

	found, err := s.records.exists(ctx, s.db, recordID)
	if err != nil {
		return nil, errs.Internalf(err, "failed to load history of %s", recordID)
	}
	if !found {
		return nil, errs.NotFoundf("borrow_record", recordID)
	}

	entries, err := s.journal.Load(ctx, s.db, recordID)
	if err != nil {
		return nil, errs.Internalf(err, "failed to load history of %s", recordID)
	}
	return entries, nil
}

// reject records a failed transition and returns err.
func (s *service) reject(ctx context.Context, span trace.Span, op string, err error) error {
	kind := errs.KindOf(err)
	span.SetAttributes(attribute.String("error.kind", kind.String()))

	if kind == errs.Internal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, op+" failed", "error", err)
		return err
	}

	s.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("kind", kind.String()),
	))
	s.logger.DebugContext(ctx, op+" rejected", "kind", kind.String(), "reason", err.Error())
	return err
}

// notFoundOr tags a store lookup error as NotFound for resource, passing
// any other failure through.
func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return errs.NotFoundf(resource, id)
	}
	return err
}
