package llm

import (
	"errors"
	"io"
	"strings"
)

// Stream is a lazy, finite, single-use sequence of completion fragments.
// Recv returns io.EOF once the provider has finished. Nothing is requested
// from the provider until the caller asks for the next fragment. Close
// abandons the upstream response and must be called exactly once.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Collect drains s into a single string and closes it.
func Collect(s Stream) (string, error) {
	defer s.Close()

	var b strings.Builder
	for {
		frag, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		b.WriteString(frag)
	}
}

// funcStream adapts a pull function and a close function to Stream.
type funcStream struct {
	next   func() (string, error)
	close  func() error
	done   bool
	closed bool
}

func (s *funcStream) Recv() (string, error) {
	if s.done || s.closed {
		return "", io.EOF
	}
	frag, err := s.next()
	if err != nil {
		s.done = true
	}
	return frag, err
}

func (s *funcStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.close == nil {
		return nil
	}
	return s.close()
}
