// Package probe inspects audio sources with a single ffprobe JSON call and
// returns a typed result. Probing doubles as the "decode" step of the audio
// handler: a file ffprobe cannot open, or one without an audio stream, is
// rejected before any output is written.
package probe
