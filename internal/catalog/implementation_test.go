package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookledger/internal/catalog"
	"bookledger/internal/errs"
	"bookledger/internal/storage"
	"bookledger/internal/storage/storagetest"
)

var fixedNow = time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)

func newService(t *testing.T, db *storage.DB) catalog.Service {
	t.Helper()
	return catalog.NewService(db, catalog.NewStore(db),
		catalog.WithClock(func() time.Time { return fixedNow }))
}

func duneInput() catalog.BookInput {
	return catalog.BookInput{
		Title:         "Dune",
		Author:        "Frank Herbert",
		PublishedDate: "1965-08-01",
		ISBN:          "978-0441013593",
	}
}

func TestBookLifecycle(t *testing.T) {
	for _, backend := range storagetest.Backends() {
		t.Run(backend.Name, func(t *testing.T) {
			ctx := context.Background()
			svc := newService(t, backend.Open(t))

			created, err := svc.CreateBook(ctx, duneInput())
			require.NoError(t, err)
			assert.NotEmpty(t, created.ID)
			assert.True(t, created.IsAvailable)
			assert.Equal(t, "1965-08-01", created.PublishedDate.String())

			got, err := svc.GetBook(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, created, got)

			in := duneInput()
			in.Title = "Dune Messiah"
			in.PublishedDate = "1969-10-15"
			in.ISBN = "978-0593098233"
			updated, err := svc.UpdateBook(ctx, created.ID, in)
			require.NoError(t, err)
			assert.Equal(t, "Dune Messiah", updated.Title)
			assert.Equal(t, "1969-10-15", updated.PublishedDate.String())
			assert.True(t, updated.IsAvailable)

			books, err := svc.ListBooks(ctx)
			require.NoError(t, err)
			require.Len(t, books, 1)
			assert.Equal(t, *updated, books[0])

			require.NoError(t, svc.DeleteBook(ctx, created.ID))

			_, err = svc.GetBook(ctx, created.ID)
			assert.Equal(t, errs.NotFound, errs.KindOf(err))
			assert.Equal(t, "book", errs.ResourceOf(err))
		})
	}
}

func TestCreateBookValidation(t *testing.T) {
	svc := newService(t, storagetest.SQLite(t))

	tests := []struct {
		name   string
		mutate func(*catalog.BookInput)
	}{
		{name: "missing title", mutate: func(in *catalog.BookInput) { in.Title = "" }},
		{name: "blank author", mutate: func(in *catalog.BookInput) { in.Author = "   " }},
		{name: "missing isbn", mutate: func(in *catalog.BookInput) { in.ISBN = "" }},
		{name: "missing date", mutate: func(in *catalog.BookInput) { in.PublishedDate = "" }},
		{name: "malformed date", mutate: func(in *catalog.BookInput) { in.PublishedDate = "08/01/1965" }},
		{name: "impossible date", mutate: func(in *catalog.BookInput) { in.PublishedDate = "1965-02-30" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := duneInput()
			tt.mutate(&in)

			_, err := svc.CreateBook(context.Background(), in)
			assert.Equal(t, errs.InvalidArgument, errs.KindOf(err))
		})
	}

	books, err := svc.ListBooks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestDuplicateISBN(t *testing.T) {
	for _, backend := range storagetest.Backends() {
		t.Run(backend.Name, func(t *testing.T) {
			ctx := context.Background()
			svc := newService(t, backend.Open(t))

			first, err := svc.CreateBook(ctx, duneInput())
			require.NoError(t, err)

			_, err = svc.CreateBook(ctx, duneInput())
			assert.Equal(t, errs.AlreadyExists, errs.KindOf(err))

			other := duneInput()
			other.ISBN = "978-0000000000"
			second, err := svc.CreateBook(ctx, other)
			require.NoError(t, err)

			_, err = svc.UpdateBook(ctx, second.ID, duneInput())
			assert.Equal(t, errs.AlreadyExists, errs.KindOf(err))

			unchanged, err := svc.GetBook(ctx, second.ID)
			require.NoError(t, err)
			assert.Equal(t, "978-0000000000", unchanged.ISBN)

			_, err = svc.UpdateBook(ctx, first.ID, duneInput())
			require.NoError(t, err, "rewriting a book's own isbn is allowed")
		})
	}
}

func TestUnknownIDs(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, storagetest.SQLite(t))

	_, err := svc.GetBook(ctx, "abc")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))

	_, err = svc.UpdateBook(ctx, "abc", duneInput())
	assert.Equal(t, errs.NotFound, errs.KindOf(err))

	assert.Equal(t, errs.NotFound, errs.KindOf(svc.DeleteBook(ctx, "abc")))
	assert.Equal(t, errs.NotFound, errs.KindOf(svc.DeleteMember(ctx, "abc")))

	_, err = svc.GetMember(ctx, "abc")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
	assert.Equal(t, "member", errs.ResourceOf(err))

	_, err = svc.GetBook(ctx, " ")
	assert.Equal(t, errs.InvalidArgument, errs.KindOf(err))
}

func TestMemberLifecycle(t *testing.T) {
	for _, backend := range storagetest.Backends() {
		t.Run(backend.Name, func(t *testing.T) {
			ctx := context.Background()
			svc := newService(t, backend.Open(t))

			member, err := svc.CreateMember(ctx, catalog.MemberInput{Name: "Ada Lovelace", Email: "ada@example.org"})
			require.NoError(t, err)
			assert.Equal(t, "2024-03-15", member.JoinDate.String())

			_, err = svc.CreateMember(ctx, catalog.MemberInput{Name: "Impostor", Email: "ada@example.org"})
			assert.Equal(t, errs.AlreadyExists, errs.KindOf(err))

			other, err := svc.CreateMember(ctx, catalog.MemberInput{Name: "Grace Hopper", Email: "grace@example.org"})
			require.NoError(t, err)

			_, err = svc.UpdateMember(ctx, other.ID, catalog.MemberInput{Name: "Grace Hopper", Email: "ada@example.org"})
			assert.Equal(t, errs.AlreadyExists, errs.KindOf(err))

			updated, err := svc.UpdateMember(ctx, other.ID, catalog.MemberInput{Name: "Rear Admiral Hopper", Email: "grace@navy.mil"})
			require.NoError(t, err)
			assert.Equal(t, "grace@navy.mil", updated.Email)
			assert.Equal(t, member.JoinDate, updated.JoinDate)

			members, err := svc.ListMembers(ctx)
			require.NoError(t, err)
			require.Len(t, members, 2)
			assert.Equal(t, "Ada Lovelace", members[0].Name)
			assert.Equal(t, "Rear Admiral Hopper", members[1].Name)

			require.NoError(t, svc.DeleteMember(ctx, member.ID))
			_, err = svc.GetMember(ctx, member.ID)
			assert.Equal(t, errs.NotFound, errs.KindOf(err))
		})
	}
}

func TestUpdateMemberEmailOwnership(t *testing.T) {
	for _, backend := range storagetest.Backends() {
		t.Run(backend.Name, func(t *testing.T) {
			ctx := context.Background()
			svc := newService(t, backend.Open(t))

			ada, err := svc.CreateMember(ctx, catalog.MemberInput{Name: "Ada", Email: "ada@example.org"})
			require.NoError(t, err)
			grace, err := svc.CreateMember(ctx, catalog.MemberInput{Name: "Grace", Email: "grace@example.org"})
			require.NoError(t, err)

			renamed, err := svc.UpdateMember(ctx, ada.ID, catalog.MemberInput{Name: "Ada King", Email: "ada@example.org"})
			require.NoError(t, err)
			assert.Equal(t, "Ada King", renamed.Name)

			_, err = svc.UpdateMember(ctx, grace.ID, catalog.MemberInput{Name: "Grace", Email: " ada@example.org "})
			require.Error(t, err)
			assert.Equal(t, errs.AlreadyExists, errs.KindOf(err))
			assert.Equal(t, "member with email ada@example.org already exists", err.Error())

			got, err := svc.GetMember(ctx, grace.ID)
			require.NoError(t, err)
			assert.Equal(t, "grace@example.org", got.Email)

			_, err = svc.UpdateMember(ctx, "missing", catalog.MemberInput{Name: "Nobody", Email: "nobody@example.org"})
			assert.Equal(t, errs.NotFound, errs.KindOf(err))
		})
	}
}

func TestCreateMemberValidation(t *testing.T) {
	svc := newService(t, storagetest.SQLite(t))

	for _, in := range []catalog.MemberInput{
		{Name: "", Email: "a@b.co"},
		{Name: "Ada", Email: ""},
		{Name: "Ada", Email: "not-an-email"},
		{Name: "Ada", Email: "ada@localhost"},
		{Name: "Ada", Email: "ada@@example.org"},
	} {
		_, err := svc.CreateMember(context.Background(), in)
		assert.Equal(t, errs.InvalidArgument, errs.KindOf(err), "%+v", in)
	}
}

func TestDeleteReferencedEntities(t *testing.T) {
	for _, backend := range storagetest.Backends() {
		t.Run(backend.Name, func(t *testing.T) {
			ctx := context.Background()
			db := backend.Open(t)
			svc := newService(t, db)

			book, err := svc.CreateBook(ctx, duneInput())
			require.NoError(t, err)
			member, err := svc.CreateMember(ctx, catalog.MemberInput{Name: "Ada", Email: "ada@example.org"})
			require.NoError(t, err)

			_, err = storage.Exec(ctx, db, db.Dialect().Insert("borrow_records").Rows(goqu.Record{
				"id":          "r1",
				"book_id":     book.ID,
				"member_id":   member.ID,
				"borrow_date": catalog.NewDate(fixedNow),
				"return_date": catalog.NewDate(fixedNow),
				"status":      "RETURNED",
			}))
			require.NoError(t, err)

			assert.Equal(t, errs.FailedPrecondition, errs.KindOf(svc.DeleteBook(ctx, book.ID)))
			assert.Equal(t, errs.FailedPrecondition, errs.KindOf(svc.DeleteMember(ctx, member.ID)))

			_, err = svc.GetBook(ctx, book.ID)
			assert.NoError(t, err)
		})
	}
}
