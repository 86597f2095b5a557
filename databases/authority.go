package databases

// go generate: mockery --name AuthorityDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Rhejna/missing-person-app/models"
)

const authorityName = "authorities"

// AuthorityDatabase contains the methods to use with the authority database
type AuthorityDatabase interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Authority, error)
}

type authorityDatabase struct {
	db DatabaseHelper
}

// NewAuthorityDatabase initializes a new instance of authority database with the provided db connection
func NewAuthorityDatabase(db DatabaseHelper) AuthorityDatabase {
	return &authorityDatabase{
		db: db,
	}
}

func (a *authorityDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Authority, error) {
	var authorities []models.Authority
	curr, err := a.db.Collection(authorityName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	if err = curr.All(ctx, &authorities); err != nil {
		return nil, err
	}
	return authorities, nil
}
