package entities

import (
	"fmt"
	"sync"
)

// Progress tracks the completion fraction of an in-flight fetch. It is plain
// pollable state: the fetcher writes after each page, and embedders read it
// from whatever goroutine drives their UI. Safe for concurrent use.
type Progress struct {
	mu       sync.Mutex
	fraction float64
	text     string
}

// Set records the current completion fraction and a human-readable status.
func (p *Progress) Set(fraction float64, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fraction = fraction
	p.text = text
}

// SetCount records progress as collected/target records.
func (p *Progress) SetCount(collected, target int, what string) {
	fraction := 0.0
	if target > 0 {
		fraction = float64(collected) / float64(target)
	}
	p.Set(fraction, fmt.Sprintf("Downloading %s (%d/%d)", what, collected, target))
}

// Fraction returns the current completion fraction in [0, 1].
func (p *Progress) Fraction() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fraction
}

// Text returns the current human-readable status line.
func (p *Progress) Text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text
}
