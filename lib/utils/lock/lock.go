package lock

import (
	"context"
	"sync"
	"time"
)

var jobMap sync.Map

// WithJob сериализует работу с контекстом одной работы: обработчики событий
// канала и команды экранов по одному jobID не выполняются одновременно.
func WithJob(jobID string, safeCode func() error) error {
	mu := jobMutex(jobID)
	mu.Lock()
	defer mu.Unlock()
	return safeCode()
}

// WithDelay захват контекста работы с ожиданием не дольше wait, для фоновых
// задач, которым нельзя зависать на занятом контексте. Берёт тот же замок,
// что и WithJob.
func WithDelay(ctx context.Context, jobID string, wait time.Duration, safeCode func() error) (success bool, err error) {
	mu := jobMutex(jobID)
	isTimeout := time.After(wait)
	for {
		if mu.TryLock() {
			defer mu.Unlock()
			return true, safeCode()
		}
		select {
		case <-isTimeout:
			return false, nil
		case <-ctx.Done():
			return false, nil
		default:
			time.Sleep(50 * time.Millisecond)
		}
	}
}

func jobMutex(jobID string) *sync.Mutex {
	value, _ := jobMap.LoadOrStore(jobID, &sync.Mutex{})
	return value.(*sync.Mutex)
}
