// Package nicotine provides a client for the Nicotine++ web API.
package nicotine

import (
	"fmt"
	"strings"
)

// SearchResult is a single candidate file offered by a remote peer.
type SearchResult struct {
	User         string         `json:"user"`
	IPAddress    string         `json:"ip_address"`
	Port         int            `json:"port"`
	HasFreeSlots bool           `json:"has_free_slots"`
	InQueue      int            `json:"inqueue"`
	UploadSpeed  int            `json:"ulspeed"`
	FileName     string         `json:"file_name"`
	FileExt      string         `json:"file_extension"`
	FilePath     string         `json:"file_path"`
	FileSize     int64          `json:"file_size"`
	FileLength   string         `json:"file_h_length"`
	Bitrate      *int           `json:"bitrate"`
	Similarity   float64        `json:"search_similarity"`
	Attributes   map[string]any `json:"file_attributes,omitempty"`
}

// FileSizeMB returns the file size in megabytes.
func (r SearchResult) FileSizeMB() float64 {
	return float64(r.FileSize) / (1024 * 1024)
}

// BitrateOrZero returns the bitrate, or 0 when the peer did not report one.
func (r SearchResult) BitrateOrZero() int {
	if r.Bitrate == nil {
		return 0
	}
	return *r.Bitrate
}

// matchText is the lowercased haystack that include/exclude terms match
// against: file name and virtual path.
func (r SearchResult) matchText() string {
	return strings.ToLower(r.FileName + " " + r.FilePath)
}

func (r SearchResult) String() string {
	bitrate := "Unknown"
	if r.Bitrate != nil {
		bitrate = fmt.Sprintf("%d", *r.Bitrate)
	}
	return fmt.Sprintf("%s - %s (%s kbps)", r.FileName, r.User, bitrate)
}

// DownloadInfo describes one transfer known to the backend.
type DownloadInfo struct {
	Username     string         `json:"username"`
	VirtualPath  string         `json:"virtual_path"`
	DownloadPath string         `json:"download_path"`
	Status       string         `json:"status"`
	Size         int64          `json:"size"`
	ByteOffset   *int64         `json:"current_byte_offset"`
	Percentage   string         `json:"download_percentage"`
	Attributes   map[string]any `json:"file_attributes,omitempty"`
}

// IsActive reports whether the transfer is still pending or running.
func (d DownloadInfo) IsActive() bool {
	switch d.Status {
	case "Finished", "Cancelled", "Failed":
		return false
	}
	return true
}

// Progress returns the transfer progress as a percentage in [0,100].
func (d DownloadInfo) Progress() float64 {
	if d.ByteOffset == nil || d.Size == 0 {
		return 0
	}
	return float64(*d.ByteOffset) * 100 / float64(d.Size)
}

// SortKey selects the ordering applied by SearchAndFilter.
type SortKey string

const (
	SortByBitrate    SortKey = "bitrate"
	SortByFileSize   SortKey = "file_size"
	SortBySimilarity SortKey = "search_similarity"
	SortByUser       SortKey = "user"
	SortByFileName   SortKey = "file_name"
)
