package domain

import (
	"time"

	"github.com/google/uuid"
)

// DownloadStatus represents the recorded outcome of a processed clip
type DownloadStatus string

const (
	StatusProcessing DownloadStatus = "processing"
	StatusCompleted  DownloadStatus = "completed"
	StatusIncomplete DownloadStatus = "incomplete"
	StatusFailed     DownloadStatus = "failed"
)

// Operation names what was done with a resolved clip
type Operation string

const (
	OperationDownload    Operation = "download"
	OperationPipe        Operation = "pipe"
	OperationPrintURL    Operation = "print_url"
	OperationPrintTitle  Operation = "print_title"
	OperationPrintPage   Operation = "print_episode_page"
	OperationResolveOnly Operation = "resolve"
)

// Download is a history record of one clip handled by one operation
type Download struct {
	ID           string         `json:"id" gorm:"primaryKey"`
	URL          string         `json:"url" gorm:"not null;index"`
	Title        string         `json:"title"`
	Source       string         `json:"source" gorm:"index"`
	Protocol     string         `json:"protocol"`
	Operation    Operation      `json:"operation" gorm:"not null"`
	Status       DownloadStatus `json:"status" gorm:"not null;index"`
	ErrorMessage string         `json:"error_message,omitempty"`
	FilePath     string         `json:"file_path,omitempty"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// NewDownload creates a new history record
func NewDownload(url, source, protocol string, op Operation) *Download {
	return &Download{
		ID:        uuid.New().String(),
		URL:       url,
		Source:    source,
		Protocol:  protocol,
		Operation: op,
		Status:    StatusProcessing,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// MarkCompleted marks the record as completed
func (d *Download) MarkCompleted(filePath string) {
	d.Status = StatusCompleted
	d.FilePath = filePath
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// MarkIncomplete marks the record as interrupted. The partial file is kept.
func (d *Download) MarkIncomplete(filePath string) {
	d.Status = StatusIncomplete
	d.FilePath = filePath
	d.UpdatedAt = time.Now()
}

// MarkFailed marks the record as failed
func (d *Download) MarkFailed(message string) {
	d.Status = StatusFailed
	d.ErrorMessage = message
	d.UpdatedAt = time.Now()
}

// Finish records the operation result
func (d *Download) Finish(result Result, filePath, message string) {
	switch result {
	case ResultSuccess:
		d.MarkCompleted(filePath)
	case ResultIncomplete:
		d.MarkIncomplete(filePath)
	default:
		d.MarkFailed(message)
	}
}

// IsTerminal checks if the record reached a final state
func (d *Download) IsTerminal() bool {
	return d.Status != StatusProcessing
}
