package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDownload(t *testing.T) {
	url := "http://areena.yle.fi/1-1234567"

	download := NewDownload(url, "areena", "hds", OperationDownload)

	assert.NotEmpty(t, download.ID)
	assert.Equal(t, url, download.URL)
	assert.Equal(t, "areena", download.Source)
	assert.Equal(t, "hds", download.Protocol)
	assert.Equal(t, OperationDownload, download.Operation)
	assert.Equal(t, StatusProcessing, download.Status)
	assert.False(t, download.IsTerminal())
}

func TestDownload_Finish(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		expected DownloadStatus
	}{
		{"success", ResultSuccess, StatusCompleted},
		{"incomplete", ResultIncomplete, StatusIncomplete},
		{"failed", ResultFailed, StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			download := NewDownload("http://areena.yle.fi/1-1", "areena", "hds", OperationDownload)

			download.Finish(tt.result, "/tmp/clip.flv", "boom")

			assert.Equal(t, tt.expected, download.Status)
			assert.True(t, download.IsTerminal())
		})
	}
}

func TestDownload_MarkCompleted(t *testing.T) {
	download := NewDownload("http://areena.yle.fi/1-1", "areena", "hds", OperationDownload)

	download.MarkCompleted("/path/to/clip.flv")

	assert.Equal(t, StatusCompleted, download.Status)
	assert.Equal(t, "/path/to/clip.flv", download.FilePath)
	assert.NotNil(t, download.CompletedAt)
}

func TestDownload_MarkFailed(t *testing.T) {
	download := NewDownload("http://areena.yle.fi/1-1", "areena", "hds", OperationDownload)

	download.MarkFailed("The clip has expired on 2014-01-01")

	assert.Equal(t, StatusFailed, download.Status)
	assert.Equal(t, "The clip has expired on 2014-01-01", download.ErrorMessage)
	assert.Nil(t, download.CompletedAt)
}
