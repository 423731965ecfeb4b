package dispatch

import (
	"errors"
	"sync"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/service/channel"
	"github.com/ecodeclub/ekit"
	"github.com/ecodeclub/ekit/queue"
)

var ErrQueueClosed = errors.New("队列已关闭")

// Task 队列里的工作单元。
// 重试再入队时带上首次解析的候选序列和游标，醒来后从同一渠道继续：
// 可达性结论在退避期间可能变化，重新解析会让重试漂移到别的渠道
type Task struct {
	Req domain.NotificationRequest
	// candidates 首次处理时解析出的候选渠道，为空表示出队后重新解析
	candidates []channel.Adapter
	// ChannelCursor 当前候选渠道下标
	ChannelCursor int
}

type queueItem struct {
	task Task
	// 入队序号，同优先级内先进先出
	seq uint64
}

func compareItems(src, dst queueItem) int {
	sw, dw := src.task.Req.Priority.Weight(), dst.task.Req.Priority.Weight()
	if sw != dw {
		return ekit.ComparatorRealNumber[int](sw, dw)
	}
	return ekit.ComparatorRealNumber[uint64](src.seq, dst.seq)
}

// TaskQueue 阻塞式优先级队列。
// 高优先级先出队，同优先级按入队顺序。重试再入队会拿到新序号，排在同级末尾
type TaskQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	pq     *queue.PriorityQueue[queueItem]
	seq    uint64
	closed bool
}

func NewTaskQueue() *TaskQueue {
	q := &TaskQueue{
		// 容量0表示无界
		pq: queue.NewPriorityQueue[queueItem](0, compareItems),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *TaskQueue) Enqueue(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.seq++
	if err := q.pq.Enqueue(queueItem{task: task, seq: q.seq}); err != nil {
		return err
	}
	q.cond.Signal()
	return nil
}

// Dequeue 阻塞直到有元素或队列关闭
func (q *TaskQueue) Dequeue() (Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		item, err := q.pq.Dequeue()
		if err == nil {
			return item.task, nil
		}
		if q.closed {
			return Task{}, ErrQueueClosed
		}
		q.cond.Wait()
	}
}

func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pq.Len()
}

// Close 关闭队列，唤醒所有阻塞中的消费者
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
