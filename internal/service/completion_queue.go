package service

import (
	"context"
	"coursehub_backend/internal/util"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// CourseCompletionEvent 步骤写入成功且判定完成后发出，由 CompletionWorker 消费
type CourseCompletionEvent struct {
	CourseID   string    `json:"courseId"`
	ProfileID  string    `json:"profileId"`
	StepID     string    `json:"stepId"`
	OccurredAt time.Time `json:"occurredAt"`
}

type CompletionDispatcher interface {
	Dispatch(ctx context.Context, event CourseCompletionEvent) error
}

// CompletionConsumer Receive 在超时且无事件时返回 (nil, nil)
type CompletionConsumer interface {
	Receive(ctx context.Context, timeout time.Duration) (*CourseCompletionEvent, error)
}

type CompletionQueue interface {
	CompletionDispatcher
	CompletionConsumer
}

// MemoryCompletionQueue 单进程部署使用的有界队列
type MemoryCompletionQueue struct {
	events chan CourseCompletionEvent
	once   sync.Once
	closed chan struct{}
}

func NewMemoryCompletionQueue(buffer int) *MemoryCompletionQueue {
	if buffer <= 0 {
		buffer = 1
	}
	return &MemoryCompletionQueue{
		events: make(chan CourseCompletionEvent, buffer),
		closed: make(chan struct{}),
	}
}

// Dispatch 不阻塞，队列满时返回 ErrQueueFull
func (q *MemoryCompletionQueue) Dispatch(ctx context.Context, event CourseCompletionEvent) error {
	select {
	case <-q.closed:
		return util.ErrQueueClosed
	default:
	}

	select {
	case q.events <- event:
		return nil
	default:
		return util.ErrQueueFull
	}
}

func (q *MemoryCompletionQueue) Receive(ctx context.Context, timeout time.Duration) (*CourseCompletionEvent, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case event := <-q.events:
		return &event, nil
	case <-q.closed:
		return nil, util.ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	}
}

func (q *MemoryCompletionQueue) Len() int {
	return len(q.events)
}

func (q *MemoryCompletionQueue) Close() {
	q.once.Do(func() { close(q.closed) })
}

// RedisCompletionQueue LPUSH 入队，BRPOP 出队，多实例共享
type RedisCompletionQueue struct {
	Client *redis.Client
	Key    string
}

func NewRedisCompletionQueue(client *redis.Client, key string) *RedisCompletionQueue {
	return &RedisCompletionQueue{Client: client, Key: key}
}

func (q *RedisCompletionQueue) Dispatch(ctx context.Context, event CourseCompletionEvent) error {
	payload, err := encodeCompletionEvent(event)
	if err != nil {
		return err
	}
	return q.Client.LPush(ctx, q.Key, payload).Err()
}

func (q *RedisCompletionQueue) Receive(ctx context.Context, timeout time.Duration) (*CourseCompletionEvent, error) {
	result, err := q.Client.BRPop(ctx, timeout, q.Key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BRPOP 返回 [key, value]
	if len(result) != 2 {
		return nil, errors.New("unexpected BRPOP reply")
	}
	return decodeCompletionEvent(result[1])
}

func encodeCompletionEvent(event CourseCompletionEvent) (string, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeCompletionEvent(payload string) (*CourseCompletionEvent, error) {
	var event CourseCompletionEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, err
	}
	if event.CourseID == "" {
		return nil, errors.New("completion event without course id")
	}
	return &event, nil
}
