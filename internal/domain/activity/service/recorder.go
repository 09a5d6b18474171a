package service

import (
	"context"
	"time"

	"tiered_social/internal/domain/activity/model"
	"tiered_social/internal/domain/activity/repository"
	"tiered_social/internal/pkg/worker"

	"go.uber.org/zap"
)

// Recorder 记录用户行为
// 调用方必须在主事务提交之后调用；写入失败只记日志，不影响主流程
type Recorder interface {
	Record(ctx context.Context, userID string, activityType model.Type, targetID string, metadata map[string]interface{})
}

// TaskQueue 后台任务队列
type TaskQueue interface {
	AddTask(task worker.Task) bool
}

type recorder struct {
	repo  repository.ActivityRepository
	queue TaskQueue
	log   *zap.Logger
	now   func() time.Time
}

// NewRecorder queue 为空时同步写入
func NewRecorder(repo repository.ActivityRepository, queue TaskQueue, log *zap.Logger) Recorder {
	return &recorder{repo: repo, queue: queue, log: log.Named("activity"), now: time.Now}
}

func (r *recorder) Record(ctx context.Context, userID string, activityType model.Type, targetID string, metadata map[string]interface{}) {
	entry := &model.UserActivity{
		UserID:       userID,
		ActivityType: activityType,
		Metadata:     metadata,
		CreatedAt:    r.now(),
	}
	if targetID != "" {
		entry.TargetID = &targetID
	}

	if r.queue == nil {
		if err := r.repo.Create(ctx, entry); err != nil {
			r.log.Error("append activity failed",
				zap.String("user_id", userID),
				zap.String("type", string(activityType)),
				zap.Error(err),
			)
		}
		return
	}

	r.queue.AddTask(worker.Task{
		Name: "activity:" + string(activityType),
		Run: func(ctx context.Context) error {
			return r.repo.Create(ctx, entry)
		},
	})
}
