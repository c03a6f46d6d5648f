package scanner

import (
	"time"

	"github.com/kevink2022/Boomic-sub000/internal/model"
)

// Result summarizes a library walk.
type Result struct {
	ID          string        `json:"id"`
	Root        string        `json:"root"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Directories int           `json:"directories"`
	AudioFiles  int           `json:"audio_files"`
	Known       int           `json:"known"`
	Tracks      []model.Track `json:"tracks"`
	// Sources lists every audio file found, known or not.
	Sources []string `json:"-"`
}
