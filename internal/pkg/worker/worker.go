package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task 后台任务
type Task struct {
	Name  string
	Run   func(ctx context.Context) error
	Retry int // 重试次数
}

// WorkerPool 固定数量 worker 消费任务队列，失败任务按次数延迟重试
type WorkerPool struct {
	TaskQueue  chan Task
	RetryQueue chan Task // 重试队列
	WorkerNum  int
	MaxRetry   int // 最大重试次数
	// RetryDelay 第 n 次重试前等待 n*RetryDelay
	RetryDelay time.Duration
	// OnResult 每个任务结束时回调 (ok/retry/dropped)，可为空
	OnResult func(result string)

	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewWorkerPool(log *zap.Logger, workerNum, bufferSize, maxRetry int) *WorkerPool {
	if workerNum <= 0 {
		workerNum = 1
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}
	retryBuf := bufferSize / 2
	if retryBuf == 0 {
		retryBuf = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		TaskQueue:  make(chan Task, bufferSize),
		RetryQueue: make(chan Task, retryBuf),
		WorkerNum:  workerNum,
		MaxRetry:   maxRetry,
		RetryDelay: time.Second,
		log:        log.Named("worker"),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (p *WorkerPool) Start() {
	for i := 0; i < p.WorkerNum; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	// 启动重试处理协程
	p.wg.Add(1)
	go p.retryWorker()
	p.log.Info("worker pool started", zap.Int("workers", p.WorkerNum))
}

// Stop 停止接收任务并等待 worker 退出，队列中剩余任务进入死信日志
func (p *WorkerPool) Stop() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
		for {
			select {
			case task := <-p.TaskQueue:
				p.logFailedTask(task, context.Canceled)
			case task := <-p.RetryQueue:
				p.logFailedTask(task, context.Canceled)
			default:
				return
			}
		}
	})
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.TaskQueue:
			p.handle(id, task)
		}
	}
}

func (p *WorkerPool) handle(id int, task Task) {
	err := task.Run(p.ctx)
	if err == nil {
		p.report("ok")
		return
	}

	p.log.Warn("task failed",
		zap.Int("worker", id),
		zap.String("task", task.Name),
		zap.Int("attempt", task.Retry),
		zap.Error(err),
	)

	// 如果未达到最大重试次数，加入重试队列
	if task.Retry < p.MaxRetry {
		task.Retry++
		select {
		case p.RetryQueue <- task:
			p.report("retry")
		default:
			p.logFailedTask(task, err)
		}
		return
	}
	p.logFailedTask(task, err)
}

func (p *WorkerPool) retryWorker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.RetryQueue:
			// 延迟重试，避免立即重试
			timer := time.NewTimer(time.Duration(task.Retry) * p.RetryDelay)
			select {
			case <-p.ctx.Done():
				timer.Stop()
				p.logFailedTask(task, context.Canceled)
				return
			case <-timer.C:
			}

			select {
			case p.TaskQueue <- task:
			default:
				p.logFailedTask(task, nil)
			}
		}
	}
}

// logFailedTask 死信：只记录日志
func (p *WorkerPool) logFailedTask(task Task, err error) {
	p.report("dropped")
	p.log.Error("task dropped",
		zap.String("task", task.Name),
		zap.Int("attempt", task.Retry),
		zap.Error(err),
	)
}

func (p *WorkerPool) report(result string) {
	if p.OnResult != nil {
		p.OnResult(result)
	}
}

// AddTask 非阻塞入队，队列满时直接进入死信
func (p *WorkerPool) AddTask(task Task) bool {
	if p.ctx.Err() != nil {
		p.logFailedTask(task, context.Canceled)
		return false
	}
	select {
	case p.TaskQueue <- task:
		return true
	default:
		p.logFailedTask(task, nil)
		return false
	}
}
