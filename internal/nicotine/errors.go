package nicotine

import "errors"

var (
	// ErrUnavailable means the backend could not be reached at all.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrSearchRejected means the backend refused to run the search,
	// typically because too many searches are already in flight.
	ErrSearchRejected = errors.New("search rejected")

	// ErrDownloadRejected means the backend refused to queue the download.
	ErrDownloadRejected = errors.New("download rejected")
)
