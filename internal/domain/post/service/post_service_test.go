package service

import (
	"context"
	"strings"
	"testing"
	"time"

	accountmodel "tiered_social/internal/domain/account/model"
	accountrepo "tiered_social/internal/domain/account/repository"
	activitymodel "tiered_social/internal/domain/activity/model"
	"tiered_social/internal/domain/post/model"
	"tiered_social/pkg/apperr"
	basemodel "tiered_social/pkg/model"
	"tiered_social/pkg/tier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPostRepository is a mock of PostRepository
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, post *model.Post) error {
	args := m.Called(ctx, post)
	if post.ID == "" {
		post.ID = "p-new"
	}
	return args.Error(0)
}

func (m *MockPostRepository) GetActive(ctx context.Context, id string) (*model.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPostRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return m.Called(ctx, id, fields).Error(0)
}

func (m *MockPostRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostRepository) AdjustCounter(ctx context.Context, id, column string, delta int) error {
	return m.Called(ctx, id, column, delta).Error(0)
}

func (m *MockPostRepository) Timeline(ctx context.Context, q model.TimelineQuery) ([]model.Post, int64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]model.Post), args.Get(1).(int64), args.Error(2)
}

func (m *MockPostRepository) ListByAuthor(ctx context.Context, authorID, viewerID string, offset, limit int) ([]model.Post, int64, error) {
	args := m.Called(ctx, authorID, viewerID, offset, limit)
	return args.Get(0).([]model.Post), args.Get(1).(int64), args.Error(2)
}

func (m *MockPostRepository) Save(ctx context.Context, userID, postID string) (bool, error) {
	args := m.Called(ctx, userID, postID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostRepository) Unsave(ctx context.Context, userID, postID string) (bool, error) {
	args := m.Called(ctx, userID, postID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostRepository) ListSaved(ctx context.Context, userID string, offset, limit int) ([]model.SavedPost, int64, error) {
	args := m.Called(ctx, userID, offset, limit)
	return args.Get(0).([]model.SavedPost), args.Get(1).(int64), args.Error(2)
}

func (m *MockPostRepository) CreateReport(ctx context.Context, report *model.Report) error {
	return m.Called(ctx, report).Error(0)
}

type MockAuthorCounter struct {
	mock.Mock
}

func (m *MockAuthorCounter) AdjustCounter(ctx context.Context, id, column string, delta int) error {
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

func newPostService() (*postService, *MockPostRepository, *MockAuthorCounter, *MockRecorder) {
	repo := new(MockPostRepository)
	authors := new(MockAuthorCounter)
	rec := new(MockRecorder)
	svc := NewPostService(fakeTx{}, repo, authors, rec).(*postService)
	return svc, repo, authors, rec
}

func TestCreatePost(t *testing.T) {
	ctx := context.Background()

	t.Run("increments posts_count and records activity", func(t *testing.T) {
		svc, repo, authors, rec := newPostService()
		repo.On("Create", ctx, mock.AnythingOfType("*model.Post")).Return(nil)
		authors.On("AdjustCounter", ctx, "u1", accountrepo.ColPosts, 1).Return(nil)
		rec.On("Record", ctx, "u1", activitymodel.TypePost, "p-new", map[string]interface{}(nil)).Return()

		post, err := svc.Create(ctx, member("u1", tier.User), CreatePostInput{
			Content: "  hello world ",
			Tags:    []string{"Go", "go", " news "},
		})

		require.NoError(t, err)
		assert.Equal(t, "hello world", post.Content)
		assert.Equal(t, []string{"go", "news"}, []string(post.Tags))
		assert.Equal(t, 0, post.ReactionsCount)
		authors.AssertExpectations(t)
		rec.AssertExpectations(t)
	})

	t.Run("anonymous forbidden before any write", func(t *testing.T) {
		svc, repo, authors, _ := newPostService()

		_, err := svc.Create(ctx, member("u1", tier.Anonymous), CreatePostInput{Content: "hi"})

		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		authors.AssertNotCalled(t, "AdjustCounter", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("content too long", func(t *testing.T) {
		svc, _, _, _ := newPostService()

		_, err := svc.Create(ctx, member("u1", tier.Pro), CreatePostInput{Content: strings.Repeat("x", 2001)})

		assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
	})
}

func TestUpdatePost(t *testing.T) {
	ctx := context.Background()
	existing := &model.Post{BaseModel: basemodel.BaseModel{ID: "p1"}, AuthorID: "author", Content: "old"}

	t.Run("author edits and is_edited is set", func(t *testing.T) {
		svc, repo, _, _ := newPostService()
		content := "new"
		repo.On("GetActive", ctx, "p1").Return(existing, nil)
		repo.On("Update", ctx, "p1", mock.MatchedBy(func(f map[string]interface{}) bool {
			return f["is_edited"] == true && f["content"] == "new"
		})).Return(nil)

		_, err := svc.Update(ctx, member("author", tier.User), "p1", UpdatePostInput{Content: &content})

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("non-author forbidden", func(t *testing.T) {
		svc, repo, _, _ := newPostService()
		content := "hijack"
		repo.On("GetActive", ctx, "p1").Return(existing, nil)

		_, err := svc.Update(ctx, member("other", tier.Pro), "p1", UpdatePostInput{Content: &content})

		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDeletePost(t *testing.T) {
	ctx := context.Background()
	existing := &model.Post{BaseModel: basemodel.BaseModel{ID: "p1"}, AuthorID: "author"}

	t.Run("deactivates and decrements", func(t *testing.T) {
		svc, repo, authors, _ := newPostService()
		repo.On("GetActive", ctx, "p1").Return(existing, nil)
		repo.On("Deactivate", ctx, "p1").Return(true, nil)
		authors.On("AdjustCounter", ctx, "author", accountrepo.ColPosts, -1).Return(nil)

		assert.NoError(t, svc.Delete(ctx, member("author", tier.User), "p1"))
		authors.AssertExpectations(t)
	})

	t.Run("concurrent delete only decrements once", func(t *testing.T) {
		svc, repo, authors, _ := newPostService()
		repo.On("GetActive", ctx, "p1").Return(existing, nil)
		repo.On("Deactivate", ctx, "p1").Return(false, nil)

		err := svc.Delete(ctx, member("author", tier.User), "p1")

		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
		authors.AssertNotCalled(t, "AdjustCounter", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTimeline(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newPostService()
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC) }

	viewer := member("u1", tier.User)
	viewer.Region = "sp"
	viewer.PreferredTags = []string{"Music"}

	repo.On("Timeline", ctx, mock.MatchedBy(func(q model.TimelineQuery) bool {
		return q.Since.Equal(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)) &&
			q.Until.Equal(time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC)) &&
			q.ViewerRegion == "sp" &&
			len(q.PreferredTags) == 1 && q.PreferredTags[0] == "music" &&
			q.ViewerID == "u1" && q.Limit == 10
	})).Return([]model.Post{{Content: "today"}}, int64(1), nil)

	posts, total, err := svc.Timeline(ctx, viewer, TimelineFilter{}, 0, 10)

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, posts, 1)

	_, _, err = svc.Timeline(ctx, member("anon", tier.Anonymous), TimelineFilter{}, 0, 10)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestSaveAndUnsave(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newPostService()
	repo.On("GetActive", ctx, "p1").Return(&model.Post{}, nil)
	repo.On("Save", ctx, "u1", "p1").Return(true, nil).Once()
	repo.On("Save", ctx, "u1", "p1").Return(false, nil).Once()
	repo.On("Unsave", ctx, "u1", "p1").Return(false, nil)

	outcome, err := svc.Save(ctx, member("u1", tier.User), "p1")
	require.NoError(t, err)
	assert.Equal(t, SaveCreated, outcome)

	outcome, err = svc.Save(ctx, member("u1", tier.User), "p1")
	require.NoError(t, err)
	assert.Equal(t, SaveAlready, outcome)

	err = svc.Unsave(ctx, member("u1", tier.User), "p1")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestReport(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newPostService()

	_, err := svc.Report(ctx, member("u1", tier.User), "p1", model.ReportReason("boring"), "")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))

	repo.On("GetActive", ctx, "p1").Return(&model.Post{}, nil)
	repo.On("CreateReport", ctx, mock.MatchedBy(func(r *model.Report) bool {
		return r.ReporterID == "u1" && r.Reason == model.ReasonSpam && !r.IsResolved
	})).Return(nil)

	report, err := svc.Report(ctx, member("u1", tier.User), "p1", model.ReasonSpam, "ads")
	require.NoError(t, err)
	assert.Equal(t, "p1", report.PostID)
}
