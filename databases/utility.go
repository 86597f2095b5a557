package databases

import "go.mongodb.org/mongo-driver/mongo/options"

type mongoPaginate struct {
	limit int64
	page  int64
}

func newMongoPaginate(limit, page int) *mongoPaginate {
	if page < 1 {
		page = 1
	}
	return &mongoPaginate{
		limit: int64(limit),
		page:  int64(page),
	}
}

func (mp *mongoPaginate) getPaginatedOpts() *options.FindOptions {
	l := mp.limit
	skip := mp.page*mp.limit - mp.limit
	fOpt := options.FindOptions{Limit: &l, Skip: &skip}

	return &fOpt
}

// PaginatedFindOptions returns find options for a 1-based page of limit
// documents. A limit of zero means no limit.
func PaginatedFindOptions(limit, page int) *options.FindOptions {
	if limit <= 0 {
		return options.Find()
	}
	return newMongoPaginate(limit, page).getPaginatedOpts()
}
