package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Manager keeps the registered jobs by name
type Manager struct {
	jobs   map[string]Job
	logger *zap.Logger
}

// NewManager creates a new job manager
func NewManager(logger *zap.Logger, jobs ...Job) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		jobs:   make(map[string]Job),
		logger: logger,
	}
	for _, job := range jobs {
		m.RegisterJob(job)
	}
	return m
}

// RegisterJob adds a job to the manager, replacing one with the same name
func (m *Manager) RegisterJob(job Job) {
	m.jobs[job.Name()] = job
}

// GetJob retrieves a job by name
func (m *Manager) GetJob(name string) (Job, error) {
	job, ok := m.jobs[name]
	if !ok {
		return nil, fmt.Errorf("no job found with name: %s (registered: %s)", name, strings.Join(m.Names(), ", "))
	}
	return job, nil
}

// Names lists the registered jobs in sorted order
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.jobs))
	for name := range m.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named job
func (m *Manager) Run(ctx context.Context, name string) error {
	job, err := m.GetJob(name)
	if err != nil {
		return err
	}

	m.logger.Debug("starting job", zap.String("job", name))
	if err := job.Run(ctx); err != nil {
		m.logger.Debug("job failed", zap.String("job", name), zap.Error(err))
		return err
	}
	m.logger.Debug("job finished", zap.String("job", name))
	return nil
}
