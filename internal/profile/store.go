package profile

import (
	"sync"
	"unicode/utf8"
)

// Profile is the applicant material used for ranking.
type Profile struct {
	CV                  string
	CVFilename          string
	CoverLetter         string
	CoverLetterFilename string
}

func (p Profile) HasCV() bool {
	return p.CV != ""
}

// DocumentStatus describes an uploaded document without its text.
type DocumentStatus struct {
	Filename string `json:"filename"`
	Chars    int    `json:"chars"`
}

type Status struct {
	CV          *DocumentStatus `json:"cv"`
	CoverLetter *DocumentStatus `json:"cover_letter"`
}

func (p Profile) Status() Status {
	var s Status
	if p.CV != "" {
		s.CV = &DocumentStatus{Filename: p.CVFilename, Chars: utf8.RuneCountInString(p.CV)}
	}
	if p.CoverLetter != "" {
		s.CoverLetter = &DocumentStatus{Filename: p.CoverLetterFilename, Chars: utf8.RuneCountInString(p.CoverLetter)}
	}
	return s
}

// Store holds the current profile for the lifetime of the process.
type Store struct {
	mu      sync.RWMutex
	profile Profile
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) SetCV(filename, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile.CV = text
	s.profile.CVFilename = filename
}

func (s *Store) SetCoverLetter(filename, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile.CoverLetter = text
	s.profile.CoverLetterFilename = filename
}

func (s *Store) ClearCV() {
	s.SetCV("", "")
}

func (s *Store) ClearCoverLetter() {
	s.SetCoverLetter("", "")
}

// Snapshot returns a copy of the current profile.
func (s *Store) Snapshot() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}
