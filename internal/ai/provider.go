package ai

import "context"

// TextProvider sends one system+user prompt to a text-generation backend and
// returns the raw completion text.
type TextProvider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ImageSearchProvider looks up a photo URL for a free-text query.
type ImageSearchProvider interface {
	SearchImage(ctx context.Context, query string) (string, error)
}

// ImageMirror copies a remote image for the named recipe into storage we
// control and returns the new URL.
type ImageMirror interface {
	MirrorImage(ctx context.Context, sourceURL, recipeName string) (string, error)
}
