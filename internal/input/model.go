package input

import "sync"

// DefaultModel is the completion model used until the selector overrides it.
const DefaultModel = "text-davinci-003"

// ModelState is the shared cached "model" selection: written by the model
// selector, read at submit time.
type ModelState struct {
	mu    sync.RWMutex
	model string
}

// Get returns the current selection, falling back to DefaultModel.
func (s *ModelState) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model == "" {
		return DefaultModel
	}
	return s.model
}

// Set overrides the selection. An empty value resets to the default.
func (s *ModelState) Set(model string) {
	s.mu.Lock()
	s.model = model
	s.mu.Unlock()
}
