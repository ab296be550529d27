// Package egg implements the easter-egg chain: a fixed sequence of chapters
// unlocked strictly in order by repeated gestures or typed secrets.
package egg

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
)

// ErrInvalidChapters is returned by New for an unusable chapter chain.
var ErrInvalidChapters = errors.New("invalid chapter chain")

// ActiveChapter is the chapter currently presented, keyed by its trigger instant.
type ActiveChapter struct {
	Chapter
	TriggeredAt time.Time `json:"triggeredAt"`
}

// Progress counts discovered chapters.
type Progress struct {
	Discovered int `json:"discovered"`
	Total      int `json:"total"`
}

// Complete reports whether every chapter is discovered.
func (p Progress) Complete() bool {
	return p.Total > 0 && p.Discovered == p.Total
}

func (p Progress) String() string {
	return fmt.Sprintf("Chapters cleared %d / %d", p.Discovered, p.Total)
}

// State is a point-in-time view of a sequencer for presentation consumers.
type State struct {
	Chapters   []Chapter          `json:"chapters"`
	Discovered map[ChapterID]bool `json:"discovered"`
	Active     *ActiveChapter     `json:"active,omitempty"`
	Hint       string             `json:"hint"`
	Progress   Progress           `json:"progress"`
}

type gestureCounter struct {
	count int
	last  time.Time
	seen  bool
}

// Sequencer tracks discovery for one session. It is safe for concurrent use.
// Invalid or out-of-order inputs are silent no-ops.
type Sequencer struct {
	mu sync.Mutex

	chapters   []Chapter
	discovered []bool
	active     *ActiveChapter

	gestureIndex map[string]int
	gestures     map[string]*gestureCounter

	buffer      []rune
	bufferLimit int

	window time.Duration
	now    func() time.Time
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) { s.now = now }
}

// WithGestureWindow overrides the longest gap between counted gesture activations.
func WithGestureWindow(d time.Duration) Option {
	return func(s *Sequencer) { s.window = d }
}

// New creates a Sequencer over chapters, which are kept in the given order.
func New(chapters []Chapter, opts ...Option) (*Sequencer, error) {
	if err := validateChapters(chapters); err != nil {
		return nil, err
	}

	s := &Sequencer{
		chapters:     append([]Chapter(nil), chapters...),
		discovered:   make([]bool, len(chapters)),
		gestureIndex: make(map[string]int),
		gestures:     make(map[string]*gestureCounter),
		window:       DefaultGestureWindow,
		now:          time.Now,
	}
	for i, ch := range chapters {
		if ch.Trigger.Gesture != "" {
			s.gestureIndex[ch.Trigger.Gesture] = i
		}
		s.bufferLimit = max(s.bufferLimit, len(ch.Trigger.Secret))
	}
	if s.bufferLimit == 0 {
		s.bufferLimit = DefaultBufferLimit
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewDefault creates a Sequencer over the five-chapter saga.
func NewDefault(opts ...Option) *Sequencer {
	s, err := New(DefaultChapters(), opts...)
	if err != nil {
		panic(err) // default chapters are static
	}
	return s
}

func validateChapters(chapters []Chapter) error {
	if len(chapters) == 0 {
		return fmt.Errorf("%w: no chapters", ErrInvalidChapters)
	}
	ids := make(map[ChapterID]struct{}, len(chapters))
	gestures := make(map[string]struct{})
	secrets := make(map[string]struct{})
	for _, ch := range chapters {
		if ch.ID == "" {
			return fmt.Errorf("%w: chapter without id", ErrInvalidChapters)
		}
		if _, dup := ids[ch.ID]; dup {
			return fmt.Errorf("%w: duplicate chapter %q", ErrInvalidChapters, ch.ID)
		}
		ids[ch.ID] = struct{}{}

		tr := ch.Trigger
		switch {
		case tr.Gesture != "" && tr.Secret != "":
			return fmt.Errorf("%w: chapter %q has two triggers", ErrInvalidChapters, ch.ID)
		case tr.Gesture != "":
			if tr.Threshold < 1 {
				return fmt.Errorf("%w: chapter %q needs a positive threshold", ErrInvalidChapters, ch.ID)
			}
			if _, dup := gestures[tr.Gesture]; dup {
				return fmt.Errorf("%w: gesture %q bound twice", ErrInvalidChapters, tr.Gesture)
			}
			gestures[tr.Gesture] = struct{}{}
		case tr.Secret != "":
			if strings.IndexFunc(tr.Secret, notLowerASCII) >= 0 {
				return fmt.Errorf("%w: secret of chapter %q must be lowercase a-z", ErrInvalidChapters, ch.ID)
			}
			if _, dup := secrets[tr.Secret]; dup {
				return fmt.Errorf("%w: secret %q bound twice", ErrInvalidChapters, tr.Secret)
			}
			secrets[tr.Secret] = struct{}{}
		default:
			return fmt.Errorf("%w: chapter %q has no trigger", ErrInvalidChapters, ch.ID)
		}
	}
	return nil
}

func notLowerASCII(r rune) bool {
	return r < 'a' || r > 'z'
}

// RecordGestureActivation counts one activation of the named gesture.
// A gap longer than the gesture window restarts the count at 1; reaching the
// threshold triggers the bound chapter and resets the count to 0.
// It reports whether a chapter was triggered. Unknown gestures are ignored.
func (s *Sequencer) RecordGestureActivation(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, ok := s.gestureIndex[name]
	if !ok {
		return false
	}

	counter, ok := s.gestures[name]
	if !ok {
		counter = &gestureCounter{}
		s.gestures[name] = counter
	}

	now := s.now()
	if !counter.seen || now.Sub(counter.last) > s.window {
		counter.count = 1
	} else {
		counter.count++
	}
	counter.last = now
	counter.seen = true

	if counter.count < s.chapters[index].Trigger.Threshold {
		return false
	}
	counter.count = 0
	return s.trigger(index)
}

// RecordCharacterInput appends one keystroke to the rolling buffer and
// triggers the first eligible chapter whose secret ends the buffer.
// Runes outside a-z (after lower-casing) are ignored.
// It reports whether a chapter was triggered.
func (s *Sequencer) RecordCharacterInput(r rune) bool {
	r = unicode.ToLower(r)
	if notLowerASCII(r) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer = append(s.buffer, r)
	if over := len(s.buffer) - s.bufferLimit; over > 0 {
		s.buffer = append(s.buffer[:0], s.buffer[over:]...)
	}

	typed := string(s.buffer)
	for i, ch := range s.chapters {
		secret := ch.Trigger.Secret
		if secret == "" || s.discovered[i] || !s.prerequisitesMet(i) {
			continue
		}
		if strings.HasSuffix(typed, secret) {
			s.buffer = s.buffer[:0]
			return s.trigger(i)
		}
	}
	return false
}

// RecordText feeds every rune of text as a keystroke and reports whether any chapter was triggered.
func (s *Sequencer) RecordText(text string) bool {
	var triggered bool
	for _, r := range text {
		if s.RecordCharacterInput(r) {
			triggered = true
		}
	}
	return triggered
}

// ResetBuffer clears typed input without triggering anything.
func (s *Sequencer) ResetBuffer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = s.buffer[:0]
}

// Buffer returns the current typed input.
func (s *Sequencer) Buffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.buffer)
}

// trigger unlocks the chapter at index and makes it the active presentation.
// Callers hold s.mu.
func (s *Sequencer) trigger(index int) bool {
	if index < 0 || index >= len(s.chapters) || !s.prerequisitesMet(index) {
		return false
	}
	s.discovered[index] = true
	s.active = &ActiveChapter{Chapter: s.chapters[index], TriggeredAt: s.now()}
	return true
}

func (s *Sequencer) prerequisitesMet(index int) bool {
	for i := range index {
		if !s.discovered[i] {
			return false
		}
	}
	return true
}

// DismissActive clears the active presentation. Discovery is unchanged.
func (s *Sequencer) DismissActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
}

// Active returns the active presentation, if any.
func (s *Sequencer) Active() (ActiveChapter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ActiveChapter{}, false
	}
	return *s.active, true
}

// Hint returns the hint of the first undiscovered chapter, or CompletionHint.
func (s *Sequencer) Hint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hint()
}

func (s *Sequencer) hint() string {
	for i, found := range s.discovered {
		if !found {
			return s.chapters[i].Hint
		}
	}
	return CompletionHint
}

// Progress returns how many chapters are discovered.
func (s *Sequencer) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress()
}

func (s *Sequencer) progress() Progress {
	p := Progress{Total: len(s.chapters)}
	for _, found := range s.discovered {
		if found {
			p.Discovered++
		}
	}
	return p
}

// IsDiscovered reports whether the chapter with id is discovered.
func (s *Sequencer) IsDiscovered(id ChapterID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ch := range s.chapters {
		if ch.ID == id {
			return s.discovered[i]
		}
	}
	return false
}

// Snapshot returns a copy of the current state.
func (s *Sequencer) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		Chapters:   append([]Chapter(nil), s.chapters...),
		Discovered: make(map[ChapterID]bool, len(s.chapters)),
		Hint:       s.hint(),
		Progress:   s.progress(),
	}
	for i, ch := range s.chapters {
		state.Discovered[ch.ID] = s.discovered[i]
	}
	if s.active != nil {
		active := *s.active
		state.Active = &active
	}
	return state
}
