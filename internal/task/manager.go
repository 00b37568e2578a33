package task

import (
	"fmt"

	"marketplace-payments/internal/logger"

	"github.com/go-co-op/gocron/v2"
)

// Job is a periodic maintenance task.
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Manager owns the scheduler that runs the maintenance jobs.
type Manager struct {
	scheduler gocron.Scheduler
}

func NewManager() (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Manager{scheduler: s}, nil
}

// Register schedules job. A run still in progress when the next one is due
// is skipped rather than overlapped.
func (m *Manager) Register(job Job) error {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", job.GetName(), err)
	}
	return nil
}

func (m *Manager) Start() {
	m.scheduler.Start()
	logger.Info("Task manager started with %d jobs", len(m.scheduler.Jobs()))
}

func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
