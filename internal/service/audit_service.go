package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ociswap/registry/internal/model"
	"github.com/ociswap/registry/internal/pkg/logger"
)

type AuditService struct {
	logChan chan *model.AuditLog
	logFile *os.File
	buffer  *auditBuffer
	repo    AuditRepo
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

type AuditRepo interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, caller string, limit int, from, to *time.Time) ([]*model.AuditLog, error)
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// NewAuditService appends audit records to a daily jsonl file under logDir and, when repo is set, to the database.
func NewAuditService(logDir string, bufferSize int, repo AuditRepo) (*AuditService, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	filename := filepath.Join(logDir, "audit-"+time.Now().Format("2006-01-02")+".jsonl")
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	svc := &AuditService{
		logChan: make(chan *model.AuditLog, bufferSize),
		logFile: f,
		buffer:  newAuditBuffer(bufferSize),
		repo:    repo,
		done:    make(chan struct{}),
	}
	go svc.processLogs()
	return svc, nil
}

func (s *AuditService) Log(entry *model.AuditLog) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		// late requests (hijacked websockets) finish after shutdown
		logger.Debug("Audit service closed, dropping log entry", "id", entry.ID)
		return
	}
	if s.buffer != nil {
		s.buffer.Add(entry)
	}
	select {
	case s.logChan <- entry:
	default:
		// never block a registry call on the audit trail
		logger.Warn("Audit log buffer full, dropping log entry", "id", entry.ID)
	}
}

func (s *AuditService) List(ctx context.Context, caller string, limit int, from, to *time.Time) ([]*model.AuditLog, error) {
	if s.repo != nil {
		records, err := s.repo.List(ctx, caller, limit, from, to)
		if err == nil {
			return records, nil
		}
		logger.LogError(ctx, err, "Audit repository list failed, serving from memory")
	}
	if s.buffer == nil {
		return nil, nil
	}
	return s.buffer.List(caller, limit, from, to), nil
}

// StartCleanup prunes database records older than retention every interval until ctx is done.
func (s *AuditService) StartCleanup(ctx context.Context, interval, retention time.Duration) {
	if s.repo == nil || interval <= 0 || retention <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.repo.Cleanup(ctx, retention); err != nil {
					logger.LogError(ctx, err, "Audit cleanup failed")
				}
			}
		}
	}()
}

func (s *AuditService) processLogs() {
	defer close(s.done)
	encoder := json.NewEncoder(s.logFile)
	for entry := range s.logChan {
		if s.repo != nil {
			if err := s.repo.Insert(context.Background(), entry); err != nil {
				logger.Error("Failed to write audit log to DB", "error", err)
			}
		}
		if err := encoder.Encode(entry); err != nil {
			logger.Error("Failed to write audit log", "error", err)
		}
	}
}

// Close drains pending records and closes the file.
// Close is safe to call more than once; Log after Close drops the record.
func (s *AuditService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.logChan)
	<-s.done
	s.logFile.Close()
}

type auditBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.AuditLog
	nextIndex int
}

func newAuditBuffer(maxSize int) *auditBuffer {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &auditBuffer{
		maxSize: maxSize,
		records: make([]*model.AuditLog, 0, maxSize),
	}
}

func (b *auditBuffer) Add(entry *model.AuditLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, entry)
		return
	}
	b.records[b.nextIndex] = entry
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

// List returns the newest records first.
func (b *auditBuffer) List(caller string, limit int, from, to *time.Time) []*model.AuditLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	results := make([]*model.AuditLog, 0, limit)
	total := len(b.records)
	for i := 0; i < total; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		entry := b.records[idx]
		if entry == nil {
			continue
		}
		if caller != "" && entry.Caller != caller {
			continue
		}
		if from != nil && entry.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && entry.CreatedAt.After(*to) {
			continue
		}
		results = append(results, entry)
		if len(results) >= limit {
			break
		}
	}
	return results
}
