package testutil

import (
	"errors"
	"sync"

	"github.com/roach88/rollcall/internal/reader"
)

// ErrUnscripted is returned by ScriptedReader.ReadUID once its script runs out.
var ErrUnscripted = errors.New("scripted reader: no uid result queued")

// Presence is one scripted CheckPresent answer.
type Presence struct {
	Present bool
	Err     error
}

type uidResult struct {
	uid string
	err error
}

// ScriptedReader replays queued answers to the detector's three questions.
//
// CheckPresent consumes one Presence per call; when the queue is empty the
// last answer repeats (false before anything was queued). ReadUID consumes
// one queued result per call.
type ScriptedReader struct {
	mu       sync.Mutex
	presence []Presence
	last     Presence
	uids     []uidResult
	info     reader.CardInfo
	infoErr  error
	checks   int
	uidReads int
}

// NewScriptedReader returns an empty script.
func NewScriptedReader() *ScriptedReader {
	return &ScriptedReader{}
}

// QueuePresence appends presence answers.
func (s *ScriptedReader) QueuePresence(present ...bool) *ScriptedReader {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range present {
		s.presence = append(s.presence, Presence{Present: p})
	}
	return s
}

// QueuePresenceError appends a transport failure.
func (s *ScriptedReader) QueuePresenceError(err error) *ScriptedReader {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presence = append(s.presence, Presence{Err: err})
	return s
}

// QueueUID appends a ReadUID result.
func (s *ScriptedReader) QueueUID(uid string, err error) *ScriptedReader {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uids = append(s.uids, uidResult{uid: uid, err: err})
	return s
}

// SetInfo fixes the ReadInfo answer.
func (s *ScriptedReader) SetInfo(info reader.CardInfo, err error) *ScriptedReader {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info, s.infoErr = info, err
	return s
}

func (s *ScriptedReader) CheckPresent() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks++
	if len(s.presence) > 0 {
		s.last = s.presence[0]
		s.presence = s.presence[1:]
	}
	return s.last.Present, s.last.Err
}

func (s *ScriptedReader) ReadUID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uidReads++
	if len(s.uids) == 0 {
		return "", ErrUnscripted
	}
	r := s.uids[0]
	s.uids = s.uids[1:]
	return r.uid, r.err
}

func (s *ScriptedReader) ReadInfo() (reader.CardInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info, s.infoErr
}

// Checks returns how many times CheckPresent ran.
func (s *ScriptedReader) Checks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checks
}

// UIDReads returns how many times ReadUID ran.
func (s *ScriptedReader) UIDReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uidReads
}
