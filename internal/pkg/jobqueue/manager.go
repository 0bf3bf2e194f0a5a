package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/washplan/washplan/internal/pkg/env"
)

// BackgroundTask is a periodic maintenance function run by the manager.
type BackgroundTask struct {
	Name     string
	Interval time.Duration
	Run      func() error
}

// Manager manages the global job queue and background tasks
type Manager struct {
	queue         *Queue
	promoteTicker *time.Ticker
	tasks         []BackgroundTask
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := env.GetEnvInt("JOB_QUEUE_WORKERS", 5)
		if workerCount <= 0 {
			workerCount = 5
		}

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// RegisterTask adds a periodic maintenance task. Must be called before Start.
func (m *Manager) RegisterTask(task BackgroundTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	// Start the job queue
	m.queue.Start()

	// Promote delayed jobs whose run time has arrived
	promoteInterval := env.GetEnvDuration("JOB_QUEUE_PROMOTE_INTERVAL_SECONDS", time.Second, 5*time.Second)
	m.promoteTicker = time.NewTicker(promoteInterval)
	m.wg.Add(1)
	go m.promoteWorker(m.stopCh)

	for _, task := range m.tasks {
		m.wg.Add(1)
		go m.taskWorker(task, m.stopCh)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.promoteTicker != nil {
		m.promoteTicker.Stop()
	}

	// Signal workers to stop
	close(m.stopCh)
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// promoteWorker periodically moves due delayed jobs onto the pending queue.
// The stop channel is passed in so a later restart cannot swap the channel
// out from under a worker spawned in an earlier cycle.
func (m *Manager) promoteWorker(stopCh <-chan struct{}) {
	defer m.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Promote worker stopping")
			return
		case <-m.promoteTicker.C:
			promoted, err := m.queue.PromoteDueJobs(ctx)
			if err != nil {
				log.Errorf("[JobQueue Manager] Error promoting delayed jobs: %v", err)
				continue
			}
			if promoted > 0 {
				log.Debugf("[JobQueue Manager] Promoted %d delayed jobs", promoted)
			}
		}
	}
}

// taskWorker runs one registered maintenance task on its interval
func (m *Manager) taskWorker(task BackgroundTask, stopCh <-chan struct{}) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started task %s (interval: %s)", task.Name, task.Interval)
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			log.Infof("[JobQueue Manager] Task %s stopping", task.Name)
			return
		case <-ticker.C:
			if err := task.Run(); err != nil {
				log.Errorf("[JobQueue Manager] Task %s error: %v", task.Name, err)
			}
		}
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
