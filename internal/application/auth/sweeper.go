package auth

import (
	"context"
	"log"
	"sync"
	"time"
)

// SessionPurger 刪除過期或已撤銷的 refresh session。
type SessionPurger interface {
	PurgeSessions(ctx context.Context, before time.Time) (int64, error)
}

// SessionSweeper 定期清理 auth session。
type SessionSweeper struct {
	store    SessionPurger
	interval time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewSessionSweeper 建立背景清理工作者，interval 未設定時為一小時。
func NewSessionSweeper(store SessionPurger, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SessionSweeper{
		store:    store,
		interval: interval,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start 啟動迴圈。
func (w *SessionSweeper) Start() {
	log.Printf("[Sweeper] Starting session sweeper with interval: %v", w.interval)
	ticker := time.NewTicker(w.interval)
	go func() {
		defer close(w.done)
		defer ticker.Stop()
		w.RunOnce(context.Background())
		for {
			select {
			case <-ticker.C:
				w.RunOnce(context.Background())
			case <-w.stopChan:
				return
			}
		}
	}()
}

// Stop 停止迴圈並等待目前這一輪結束；可重複呼叫。
func (w *SessionSweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.done
}

// RunOnce 執行一次清理，回傳刪除筆數。
func (w *SessionSweeper) RunOnce(ctx context.Context) int64 {
	n, err := w.store.PurgeSessions(ctx, w.now())
	if err != nil {
		log.Printf("[Sweeper] purge sessions failed: %v", err)
		return 0
	}
	if n > 0 {
		log.Printf("[Sweeper] purged %d sessions", n)
	}
	return n
}
