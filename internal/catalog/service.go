package catalog

import (
	"context"
)

// Service defines the interface for the catalog service.
type Service interface {
	CreateBook(ctx context.Context, in BookInput) (*Book, error)
	GetBook(ctx context.Context, id string) (*Book, error)
	UpdateBook(ctx context.Context, id string, in BookInput) (*Book, error)
	DeleteBook(ctx context.Context, id string) error
	ListBooks(ctx context.Context) ([]Book, error)

	CreateMember(ctx context.Context, in MemberInput) (*Member, error)
	GetMember(ctx context.Context, id string) (*Member, error)
	UpdateMember(ctx context.Context, id string, in MemberInput) (*Member, error)
	DeleteMember(ctx context.Context, id string) error
	ListMembers(ctx context.Context) ([]Member, error)
}
