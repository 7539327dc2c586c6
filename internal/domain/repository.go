package domain

// DownloadRepository defines the interface for download history persistence
type DownloadRepository interface {
	// Create creates a new record
	Create(download *Download) error

	// Update updates an existing record
	Update(download *Download) error

	// FindByID finds a record by ID
	FindByID(id string) (*Download, error)

	// FindRecent returns the newest records first, at most limit of them
	FindRecent(limit int) ([]*Download, error)

	// FindByURL returns all records of a page URL, newest first
	FindByURL(url string) ([]*Download, error)

	// GetStats returns history statistics
	GetStats() (*DownloadStats, error)
}

// DownloadStats represents download history statistics
type DownloadStats struct {
	Total      int64 `json:"total"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Incomplete int64 `json:"incomplete"`
	Failed     int64 `json:"failed"`
}
