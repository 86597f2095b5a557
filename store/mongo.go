package store

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Rhejna/missing-person-app/apperr"
	"github.com/Rhejna/missing-person-app/databases"
	"github.com/Rhejna/missing-person-app/models"
)

// updateAttempts bounds optimistic retries when another writer bumped the
// version between our read and our replace
const updateAttempts = 3

// MongoCaseStore persists cases in the cases collection
type MongoCaseStore struct {
	db   databases.CaseDatabase
	seq  Sequencer
	opts Options
}

// NewMongoCaseStore returns a MongoCaseStore numbering cases with seq
func NewMongoCaseStore(db databases.CaseDatabase, seq Sequencer, opts Options) *MongoCaseStore {
	return &MongoCaseStore{db: db, seq: seq, opts: opts.withDefaults()}
}

// Create implements CaseStore
func (s *MongoCaseStore) Create(ctx context.Context, draft models.CaseDraft) (models.Case, error) {
	at := s.opts.Now()
	year := s.opts.year(at)
	seq, err := s.seq.Next(ctx, sequenceKey(s.opts.Prefix, year))
	if err != nil {
		return models.Case{}, apperr.FromMongo("next case number", err)
	}
	c := newCase(s.opts, draft, CaseNumber(s.opts.Prefix, year, seq), at)
	if _, err := s.db.InsertOne(ctx, c); err != nil {
		return models.Case{}, apperr.FromMongo("insert case", err)
	}
	return c, nil
}

// Get implements CaseStore
func (s *MongoCaseStore) Get(ctx context.Context, id string) (models.Case, error) {
	c, err := s.db.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return models.Case{}, apperr.FromMongo("get case "+id, err)
	}
	return *c, nil
}

// Update implements CaseStore. The replace is conditional on the version
// read, so a concurrent writer causes a re-read and another attempt.
func (s *MongoCaseStore) Update(ctx context.Context, id string, fn func(*models.Case) error) (models.Case, error) {
	for attempt := 0; attempt < updateAttempts; attempt++ {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return models.Case{}, err
		}
		next := cur.Clone()
		if err := fn(&next); err != nil {
			if errors.Is(err, ErrNoChange) {
				return cur, nil
			}
			return models.Case{}, err
		}
		finalize(&next, cur.Status, s.opts.Now())

		matched, err := s.db.ReplaceOne(ctx, bson.M{"_id": id, "version": cur.Version}, next)
		if err != nil {
			return models.Case{}, apperr.FromMongo("update case "+id, err)
		}
		if matched == 1 {
			return next, nil
		}
		zap.S().Debugw("case version moved, retrying", "caseId", id, "attempt", attempt+1)
	}
	return models.Case{}, apperr.Wrap("update case "+id, apperr.ErrConflict)
}

// List implements CaseStore
func (s *MongoCaseStore) List(ctx context.Context, f models.CaseFilter) ([]models.Case, error) {
	opts := databases.PaginatedFindOptions(f.Limit, f.Page).
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "caseNumber", Value: -1}})

	cases, err := s.db.Find(ctx, CaseFilterBSON(f), opts)
	if err != nil {
		return nil, apperr.FromMongo("list cases", err)
	}
	if cases == nil {
		cases = []models.Case{}
	}
	return cases, nil
}

// CaseFilterBSON translates f into a mongo query equivalent to Matches
func CaseFilterBSON(f models.CaseFilter) bson.M {
	var clauses []bson.M

	if !f.IncludeFlagged {
		clauses = append(clauses, bson.M{"status": bson.M{"$ne": models.StatusFlagged}})
	}
	if len(f.Statuses) > 0 {
		var or []bson.M
		for _, st := range f.Statuses {
			if st == models.StatusSighting {
				or = append(or, bson.M{"subStatus": models.StatusSighting})
				continue
			}
			or = append(or, bson.M{"status": st})
		}
		clauses = append(clauses, bson.M{"$or": or})
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		clauses = append(clauses, bson.M{"$or": []bson.M{
			{"fullName": rx},
			{"lastSeenLocation": rx},
		}})
	}
	if f.From != nil || f.To != nil {
		rng := bson.M{}
		if f.From != nil {
			rng["$gte"] = *f.From
		}
		if f.To != nil {
			rng["$lte"] = *f.To
		}
		clauses = append(clauses, bson.M{"createdAt": rng})
	}
	if f.ReporterPhone != "" {
		clauses = append(clauses, bson.M{"reporter.phone": f.ReporterPhone})
	}

	switch len(clauses) {
	case 0:
		return bson.M{}
	case 1:
		return clauses[0]
	default:
		return bson.M{"$and": clauses}
	}
}

// MongoCommentStore persists comments in the comments collection
type MongoCommentStore struct {
	db    databases.CommentDatabase
	cases CaseGetter
	opts  Options
}

// NewMongoCommentStore returns a MongoCommentStore
func NewMongoCommentStore(db databases.CommentDatabase, cases CaseGetter, opts Options) *MongoCommentStore {
	return &MongoCommentStore{db: db, cases: cases, opts: opts.withDefaults()}
}

// Add implements CommentStore
func (s *MongoCommentStore) Add(ctx context.Context, caseID, author, content string, isOfficer bool) (models.Comment, error) {
	if _, err := s.cases.Get(ctx, caseID); err != nil {
		return models.Comment{}, err
	}
	body, err := commentContent(content)
	if err != nil {
		return models.Comment{}, err
	}
	cm := models.Comment{
		ID:        s.opts.IDs(),
		CaseID:    caseID,
		Author:    commentAuthor(author),
		Content:   body,
		CreatedAt: s.opts.Now(),
		IsOfficer: isOfficer,
		Version:   1,
	}
	if _, err := s.db.InsertOne(ctx, cm); err != nil {
		return models.Comment{}, apperr.FromMongo("insert comment", err)
	}
	return cm, nil
}

// Get implements CommentStore
func (s *MongoCommentStore) Get(ctx context.Context, id string) (models.Comment, error) {
	cm, err := s.db.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return models.Comment{}, apperr.FromMongo("get comment "+id, err)
	}
	return *cm, nil
}

// Update implements CommentStore
func (s *MongoCommentStore) Update(ctx context.Context, id string, fn func(*models.Comment) error) (models.Comment, error) {
	for attempt := 0; attempt < updateAttempts; attempt++ {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return models.Comment{}, err
		}
		next := cur.Clone()
		if err := fn(&next); err != nil {
			if errors.Is(err, ErrNoChange) {
				return cur, nil
			}
			return models.Comment{}, err
		}
		next.Version++
		matched, err := s.db.ReplaceOne(ctx, bson.M{"_id": id, "version": cur.Version}, next)
		if err != nil {
			return models.Comment{}, apperr.FromMongo("update comment "+id, err)
		}
		if matched == 1 {
			return next, nil
		}
	}
	return models.Comment{}, apperr.Wrap("update comment "+id, apperr.ErrConflict)
}

// List implements CommentStore
func (s *MongoCommentStore) List(ctx context.Context, caseID string, includeModerated bool) ([]models.Comment, error) {
	if _, err := s.cases.Get(ctx, caseID); err != nil {
		return nil, err
	}
	filter := bson.M{"caseId": caseID}
	if !includeModerated {
		filter["isModerated"] = false
	}
	opts := databases.PaginatedFindOptions(0, 0).SetSort(bson.D{{Key: "createdAt", Value: -1}})
	comments, err := s.db.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.FromMongo("list comments", err)
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return comments, nil
}

// Count implements CommentStore
func (s *MongoCommentStore) Count(ctx context.Context, caseID string) (int, error) {
	n, err := s.db.CountDocuments(ctx, bson.M{"caseId": caseID, "isModerated": false})
	if err != nil {
		return 0, apperr.FromMongo("count comments", err)
	}
	return int(n), nil
}
