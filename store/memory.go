package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Rhejna/missing-person-app/apperr"
	"github.com/Rhejna/missing-person-app/models"
)

// MemorySequencer is an in-process Sequencer
type MemorySequencer struct {
	mu   sync.Mutex
	next map[string]int64
}

// NewMemorySequencer returns an empty MemorySequencer
func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{next: make(map[string]int64)}
}

// Next implements Sequencer
func (s *MemorySequencer) Next(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[key]++
	return s.next[key], nil
}

type caseSnapshot map[string]models.Case

// MemoryCaseStore keeps cases in a copy-on-write map. Readers load the
// current snapshot without locking; writers serialize on mu and publish a
// fresh map.
type MemoryCaseStore struct {
	mu   sync.Mutex
	snap atomic.Pointer[caseSnapshot]
	seq  Sequencer
	opts Options
}

// NewMemoryCaseStore returns an empty MemoryCaseStore
func NewMemoryCaseStore(opts Options) *MemoryCaseStore {
	s := &MemoryCaseStore{seq: NewMemorySequencer(), opts: opts.withDefaults()}
	empty := caseSnapshot{}
	s.snap.Store(&empty)
	return s
}

func (s *MemoryCaseStore) publish(id string, c models.Case) {
	cur := *s.snap.Load()
	next := make(caseSnapshot, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[id] = c
	s.snap.Store(&next)
}

// Create implements CaseStore
func (s *MemoryCaseStore) Create(ctx context.Context, draft models.CaseDraft) (models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.opts.Now()
	year := s.opts.year(at)
	seq, err := s.seq.Next(ctx, sequenceKey(s.opts.Prefix, year))
	if err != nil {
		return models.Case{}, apperr.Storage("next case number", err)
	}
	c := newCase(s.opts, draft, CaseNumber(s.opts.Prefix, year, seq), at)
	s.publish(c.ID, c.Clone())
	return c, nil
}

// Get implements CaseStore
func (s *MemoryCaseStore) Get(_ context.Context, id string) (models.Case, error) {
	c, ok := (*s.snap.Load())[id]
	if !ok {
		return models.Case{}, apperr.Wrap("get case "+id, apperr.ErrNotFound)
	}
	return c.Clone(), nil
}

// Update implements CaseStore
func (s *MemoryCaseStore) Update(_ context.Context, id string, fn func(*models.Case) error) (models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := (*s.snap.Load())[id]
	if !ok {
		return models.Case{}, apperr.Wrap("update case "+id, apperr.ErrNotFound)
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		if errors.Is(err, ErrNoChange) {
			return cur.Clone(), nil
		}
		return models.Case{}, err
	}
	finalize(&next, cur.Status, s.opts.Now())
	s.publish(id, next.Clone())
	return next, nil
}

// List implements CaseStore
func (s *MemoryCaseStore) List(_ context.Context, f models.CaseFilter) ([]models.Case, error) {
	out := []models.Case{}
	for _, c := range *s.snap.Load() {
		if Matches(c, f) {
			out = append(out, c.Clone())
		}
	}
	sortNewestFirst(out)
	return Paginate(out, f.Limit, f.Page), nil
}

// MemoryCommentStore keeps comments in memory
type MemoryCommentStore struct {
	mu       sync.RWMutex
	comments map[string]models.Comment
	byCase   map[string][]string
	cases    CaseGetter
	opts     Options
}

// NewMemoryCommentStore returns an empty MemoryCommentStore that checks case
// existence against cases
func NewMemoryCommentStore(cases CaseGetter, opts Options) *MemoryCommentStore {
	return &MemoryCommentStore{
		comments: make(map[string]models.Comment),
		byCase:   make(map[string][]string),
		cases:    cases,
		opts:     opts.withDefaults(),
	}
}

// Add implements CommentStore
func (s *MemoryCommentStore) Add(ctx context.Context, caseID, author, content string, isOfficer bool) (models.Comment, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[cm.ID] = cm
	s.byCase[caseID] = append(s.byCase[caseID], cm.ID)
	return cm.Clone(), nil
}

// Get implements CommentStore
func (s *MemoryCommentStore) Get(_ context.Context, id string) (models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cm, ok := s.comments[id]
	if !ok {
		return models.Comment{}, apperr.Wrap("get comment "+id, apperr.ErrNotFound)
	}
	return cm.Clone(), nil
}

// Update implements CommentStore
func (s *MemoryCommentStore) Update(_ context.Context, id string, fn func(*models.Comment) error) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.comments[id]
	if !ok {
		return models.Comment{}, apperr.Wrap("update comment "+id, apperr.ErrNotFound)
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		if errors.Is(err, ErrNoChange) {
			return cur.Clone(), nil
		}
		return models.Comment{}, err
	}
	next.Version++
	s.comments[id] = next
	return next.Clone(), nil
}

// List implements CommentStore. Comments come back newest first.
func (s *MemoryCommentStore) List(ctx context.Context, caseID string, includeModerated bool) ([]models.Comment, error) {
	if _, err := s.cases.Get(ctx, caseID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byCase[caseID]
	out := make([]models.Comment, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		cm := s.comments[ids[i]]
		if cm.IsModerated && !includeModerated {
			continue
		}
		out = append(out, cm.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Count implements CommentStore, counting visible comments only
func (s *MemoryCommentStore) Count(_ context.Context, caseID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, id := range s.byCase[caseID] {
		if !s.comments[id].IsModerated {
			n++
		}
	}
	return n, nil
}
