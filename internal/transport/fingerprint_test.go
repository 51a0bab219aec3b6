package transport

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type FingerprintTestSuite struct {
	suite.Suite
}

func TestFingerprintTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(FingerprintTestSuite))
}

func (s *FingerprintTestSuite) file(content []byte, modTime time.Time) File {
	return File{
		Name:    "clip.mp4",
		Size:    int64(len(content)),
		ModTime: modTime,
		Content: bytes.NewReader(content),
	}
}

func (s *FingerprintTestSuite) TestDeterministic() {
	// arrange
	modTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := s.file([]byte("same content"), modTime)
	b := s.file([]byte("same content"), modTime)

	// act
	fpA, errA := Fingerprint(a)
	fpB, errB := Fingerprint(b)

	// assert
	s.NoError(errA)
	s.NoError(errB)
	s.Equal(fpA, fpB)
}

func (s *FingerprintTestSuite) TestContentChangeChangesFingerprint() {
	// arrange
	modTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := s.file([]byte("content one!"), modTime)
	b := s.file([]byte("content two!"), modTime)

	// act
	fpA, _ := Fingerprint(a)
	fpB, _ := Fingerprint(b)

	// assert
	s.NotEqual(fpA, fpB)
}

func (s *FingerprintTestSuite) TestModTimeChangeChangesFingerprint() {
	// arrange
	a := s.file([]byte("same content"), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	b := s.file([]byte("same content"), time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC))

	// act
	fpA, _ := Fingerprint(a)
	fpB, _ := Fingerprint(b)

	// assert
	s.NotEqual(fpA, fpB)
}

func (s *FingerprintTestSuite) TestRewindsReader() {
	// arrange
	file := s.file([]byte("some content"), time.Now())

	// act
	_, err := Fingerprint(file)

	// assert
	s.NoError(err)
	rest, readErr := io.ReadAll(file.Content)
	s.NoError(readErr)
	s.Equal([]byte("some content"), rest)
}
