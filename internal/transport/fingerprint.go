package transport

import (
	"crypto/sha256"
	"fmt"
	"io"
)

// fingerprintHeadSize bounds how much content goes into the fingerprint so
// fingerprinting stays cheap for multi-gigabyte video files.
const fingerprintHeadSize = 64 * 1024

// Fingerprint identifies a file for resume matching: the hex sha256 of
// size, modification time and the first 64 KiB of content. Any size or
// mtime change, or an edit within the head window, yields a new
// fingerprint and therefore a fresh transfer instead of a bad resume.
func Fingerprint(file File) (string, error) {
	_, err := file.Content.Seek(0, io.SeekStart)
	if err != nil {
		return "", fmt.Errorf("failed to seek to start: %w", err)
	}

	hasher := sha256.New()
	_, err = fmt.Fprintf(hasher, "%d|%d|", file.Size, file.ModTime.UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to hash file identity: %w", err)
	}

	_, err = io.CopyN(hasher, file.Content, fingerprintHeadSize)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to hash file head: %w", err)
	}

	_, err = file.Content.Seek(0, io.SeekStart)
	if err != nil {
		return "", fmt.Errorf("failed to rewind after fingerprinting: %w", err)
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}
