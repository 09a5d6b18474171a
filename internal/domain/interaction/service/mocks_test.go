package service

import (
	"context"

	accountmodel "tiered_social/internal/domain/account/model"
	activitymodel "tiered_social/internal/domain/activity/model"
	"tiered_social/internal/domain/interaction/model"
	postmodel "tiered_social/internal/domain/post/model"
	basemodel "tiered_social/pkg/model"
	"tiered_social/pkg/tier"

	"github.com/stretchr/testify/mock"
)

// MockReactionRepository is a mock of ReactionRepository
type MockReactionRepository struct {
	mock.Mock
}

func (m *MockReactionRepository) Insert(ctx context.Context, subject model.Subject, userID, subjectID string, t model.ReactionType) (bool, error) {
	args := m.Called(ctx, subject, userID, subjectID, t)
	return args.Bool(0), args.Error(1)
}

func (m *MockReactionRepository) LockExisting(ctx context.Context, subject model.Subject, userID, subjectID string) (*model.ExistingReaction, error) {
	args := m.Called(ctx, subject, userID, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExistingReaction), args.Error(1)
}

func (m *MockReactionRepository) Delete(ctx context.Context, subject model.Subject, id string) error {
	return m.Called(ctx, subject, id).Error(0)
}

func (m *MockReactionRepository) UpdateType(ctx context.Context, subject model.Subject, id string, t model.ReactionType) error {
	return m.Called(ctx, subject, id, t).Error(0)
}

func (m *MockReactionRepository) ListByPost(ctx context.Context, postID string, offset, limit int) ([]model.Reaction, int64, error) {
	args := m.Called(ctx, postID, offset, limit)
	return args.Get(0).([]model.Reaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockReactionRepository) SummaryByPost(ctx context.Context, postID string) ([]model.ReactionCount, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).([]model.ReactionCount), args.Error(1)
}

// MockCommentRepository is a mock of CommentRepository
type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *model.Comment) error {
	args := m.Called(ctx, comment)
	if comment.ID == "" {
		comment.ID = "c-new"
	}
	return args.Error(0)
}

func (m *MockCommentRepository) GetActive(ctx context.Context, id string) (*model.Comment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Comment), args.Error(1)
}

func (m *MockCommentRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return m.Called(ctx, id, fields).Error(0)
}

func (m *MockCommentRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCommentRepository) AdjustCounter(ctx context.Context, id, column string, delta int) error {
	return m.Called(ctx, id, column, delta).Error(0)
}

func (m *MockCommentRepository) AddReply(ctx context.Context, parentID string) error {
	return m.Called(ctx, parentID).Error(0)
}

func (m *MockCommentRepository) ListTopLevel(ctx context.Context, postID string, offset, limit int) ([]model.Comment, int64, error) {
	args := m.Called(ctx, postID, offset, limit)
	return args.Get(0).([]model.Comment), args.Get(1).(int64), args.Error(2)
}

// MockPostStore is a mock of PostStore
type MockPostStore struct {
	mock.Mock
}

func (m *MockPostStore) GetActive(ctx context.Context, id string) (*postmodel.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*postmodel.Post), args.Error(1)
}

func (m *MockPostStore) AdjustCounter(ctx context.Context, id, column string, delta int) error {
	return m.Called(ctx, id, column, delta).Error(0)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, userID string, activityType activitymodel.Type, targetID string, metadata map[string]interface{}) {
	m.Called(ctx, userID, activityType, targetID, metadata)
}

type fakeTx struct{}

func (fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func member(id string, t tier.Tier) *accountmodel.User {
	return &accountmodel.User{BaseModel: basemodel.BaseModel{ID: id}, Username: id, Tier: t}
}

func activePost(id string) *postmodel.Post {
	return &postmodel.Post{BaseModel: basemodel.BaseModel{ID: id}, AuthorID: "author", IsActive: true}
}

type fixture struct {
	svc       *interactionService
	reactions *MockReactionRepository
	comments  *MockCommentRepository
	posts     *MockPostStore
	rec       *MockRecorder
}

func newFixture() *fixture {
	f := &fixture{
		reactions: new(MockReactionRepository),
		comments:  new(MockCommentRepository),
		posts:     new(MockPostStore),
		rec:       new(MockRecorder),
	}
	f.svc = NewInteractionService(fakeTx{}, f.reactions, f.comments, f.posts, f.rec, nil).(*interactionService)
	return f
}

func (f *fixture) assertExpectations(t mock.TestingT) {
	f.reactions.AssertExpectations(t)
	f.comments.AssertExpectations(t)
	f.posts.AssertExpectations(t)
	f.rec.AssertExpectations(t)
}
