package main

import (
	"os"
	"sync"

	"github.com/Belphemur/HlsGrab/internal/models"
	"github.com/schollz/progressbar/v3"
)

// progress shows one bar per episode, advanced once per downloaded segment.
type progress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func (p *progress) start(ep models.EpisodeDescriptor, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(ep.Name),
		progressbar.OptionSetItsString("seg"),
		progressbar.OptionShowIts(),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)
}

func (p *progress) add(models.SegmentFile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}
