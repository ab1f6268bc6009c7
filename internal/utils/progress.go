package utils

import (
	"github.com/schollz/progressbar/v3"
)

// DescDownloading labels download progress bars
const DescDownloading = "Downloading"

// NewByteProgressBar creates a byte-denominated progress bar for a download.
// Use total -1 when the length is unknown (spinner mode).
func NewByteProgressBar(total int64, description string) *progressbar.ProgressBar {
	opts := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	}

	if total < 0 {
		opts = append(opts,
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	return progressbar.NewOptions64(total, opts...)
}
