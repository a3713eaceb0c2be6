package dto

import "time"

// BufferedImage holds an annotated snapshot before it is flushed to disk.
type BufferedImage struct {
	Filename   string
	Label      string
	CapturedAt time.Time
	Data       []byte
}
