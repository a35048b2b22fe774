package service

import (
	goaway "github.com/TwiN/go-away"
)

// TermPolicy decides whether a search term may trigger generation.
type TermPolicy interface {
	Allowed(term string) bool
}

// ProfanityPolicy refuses generation for terms the profanity detector flags.
type ProfanityPolicy struct {
	detector *goaway.ProfanityDetector
}

// NewProfanityPolicy creates a ProfanityPolicy.
func NewProfanityPolicy() *ProfanityPolicy {
	return &ProfanityPolicy{
		detector: goaway.NewProfanityDetector().
			WithSanitizeLeetSpeak(true).
			WithSanitizeSpecialCharacters(true).
			WithSanitizeAccents(false),
	}
}

// Allowed reports whether term is clean.
func (p *ProfanityPolicy) Allowed(term string) bool {
	return !p.detector.IsProfane(term)
}
