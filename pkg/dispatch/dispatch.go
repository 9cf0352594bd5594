// Package dispatch 提供按用户有序的消息分发
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// 默认参数
const (
	defaultQueueSize   = 64
	defaultIdleTimeout = 10 * time.Minute
)

// 分发器错误
var (
	// ErrDispatcherStopped 分发器已停止
	ErrDispatcherStopped = errors.New("dispatcher stopped")
	// ErrQueueFull 用户队列已满
	ErrQueueFull = errors.New("user queue full")
)

// Job 一次分发任务
// 同一用户的任务严格按提交顺序执行，不同用户相互独立
type Job func(ctx context.Context)

// job 内部任务包装，携带提交方的上下文
type job struct {
	ctx context.Context
	fn  Job
}

// userQueue 单用户队列
type userQueue struct {
	ch       chan job
	lastUsed time.Time
}

// Dispatcher 按用户有序分发器
// 每个用户持有独立的 FIFO 队列和单个 worker，
// 保证同一用户的消息串行处理，不同用户并发处理
type Dispatcher struct {
	logger    *slog.Logger
	queueSize int
	idle      time.Duration

	mu     sync.Mutex
	queues map[string]*userQueue
	wg     sync.WaitGroup

	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

// Options 分发器配置
type Options struct {
	QueueSize   int           // 单用户队列容量
	IdleTimeout time.Duration // 空闲队列回收阈值
}

// NewDispatcher 创建分发器
func NewDispatcher(logger *slog.Logger, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		logger:    logger,
		queueSize: opts.QueueSize,
		idle:      opts.IdleTimeout,
		queues:    make(map[string]*userQueue),
		cron:      cron.New(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start 启动分发器和空闲队列回收
func (d *Dispatcher) Start() error {
	// 每分钟回收一次空闲用户队列
	if _, err := d.cron.AddFunc("@every 1m", d.purgeIdle); err != nil {
		return err
	}
	d.cron.Start()

	d.logger.Info("dispatcher started", "queue_size", d.queueSize, "idle_timeout", d.idle)
	return nil
}

// Submit 将任务提交到对应用户的队列
// 队列满时立即返回错误而不是阻塞，调用方自行决定降级策略
func (d *Dispatcher) Submit(ctx context.Context, userID string, fn Job) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrDispatcherStopped
	}
	queue, ok := d.queues[userID]
	if !ok {
		queue = &userQueue{ch: make(chan job, d.queueSize)}
		d.queues[userID] = queue
		d.wg.Add(1)
		go d.worker(userID, queue)
	}
	queue.lastUsed = time.Now()

	// 非阻塞入队，在锁内完成以避免与关闭队列竞争
	var err error
	select {
	case queue.ch <- job{ctx: ctx, fn: fn}:
	default:
		err = ErrQueueFull
	}
	d.mu.Unlock()
	return err
}

// worker 单用户工作协程，顺序消费队列
func (d *Dispatcher) worker(userID string, queue *userQueue) {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			// 停机前清空已入队的任务
			for {
				select {
				case j, ok := <-queue.ch:
					if !ok {
						return
					}
					d.run(userID, j)
				default:
					return
				}
			}
		case j, ok := <-queue.ch:
			if !ok {
				return
			}
			d.run(userID, j)
		}
	}
}

// run 执行单个任务，吸收 panic 避免拖垮 worker
func (d *Dispatcher) run(userID string, j job) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatch job panicked", "user_id", userID, "panic", r)
		}
	}()

	if j.ctx.Err() != nil {
		d.logger.Warn("dispatch job skipped, submitter context done", "user_id", userID)
		return
	}
	j.fn(j.ctx)
}

// purgeIdle 回收长时间无消息的用户队列
// 只回收空队列，worker 随通道关闭退出
func (d *Dispatcher) purgeIdle() {
	cutoff := time.Now().Add(-d.idle)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	for userID, queue := range d.queues {
		if queue.lastUsed.Before(cutoff) && len(queue.ch) == 0 {
			close(queue.ch)
			delete(d.queues, userID)
			d.logger.Debug("idle user queue purged", "user_id", userID)
		}
	}
}

// Stop 停止分发器，等待所有在途任务完成
func (d *Dispatcher) Stop() {
	d.logger.Info("stopping dispatcher")

	cronCtx := d.cron.Stop()
	<-cronCtx.Done()

	d.mu.Lock()
	d.stopped = true
	for _, queue := range d.queues {
		close(queue.ch)
	}
	d.queues = make(map[string]*userQueue)
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()

	d.logger.Info("dispatcher stopped")
}
