// Package pipewire discovers playback streams and sets their channel volumes through pw-cli.
// Discovery scrapes the human-readable output of "pw-cli list-objects Node"; nothing is
// cached, every apply cycle starts from a fresh listing.
package pipewire
