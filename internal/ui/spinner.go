package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

// SimpleSpinner is a non-interactive spinner for one-shot commands
type SimpleSpinner struct {
	out     io.Writer
	frames  spinner.Spinner
	message string
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewSimpleSpinner creates a spinner writing to out
func NewSimpleSpinner(out io.Writer, message string) *SimpleSpinner {
	return &SimpleSpinner{
		out:     out,
		frames:  spinner.MiniDot,
		message: message,
		done:    make(chan struct{}),
	}
}

// Start starts the spinner animation
func (s *SimpleSpinner) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		style := lipgloss.NewStyle().Foreground(PrimaryColor)
		ticker := time.NewTicker(s.frames.FPS)
		defer ticker.Stop()
		for i := 0; ; i = (i + 1) % len(s.frames.Frames) {
			fmt.Fprintf(s.out, "\r  %s %s", style.Render(s.frames.Frames[i]), WhiteStyle.Render(s.message))
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop stops the spinner and clears the line. Safe to call more than once.
func (s *SimpleSpinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		fmt.Fprint(s.out, "\r\033[K")
	})
}

// StopWithError stops the spinner and shows an error message
func (s *SimpleSpinner) StopWithError(message string) {
	s.Stop()
	fmt.Fprintln(s.out, RenderStatus("error", message))
}

// WithSpinner executes fn while showing a spinner on out
func WithSpinner(out io.Writer, message string, fn func() error) error {
	sp := NewSimpleSpinner(out, message)
	sp.Start()
	err := fn()
	if err != nil {
		sp.StopWithError(err.Error())
		return err
	}
	sp.Stop()
	return nil
}
