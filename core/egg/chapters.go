package egg

import "time"

// Effect names the visual treatment a presentation layer plays for a chapter.
type Effect string

// All chapter effects.
const (
	EffectPulse     Effect = "pulse"
	EffectParticles Effect = "particles"
	EffectAurora    Effect = "aurora"
)

// ChapterID identifies a chapter.
type ChapterID string

// Chapters of the default saga, in chain order.
const (
	LogoOracle   ChapterID = "logoOracle"
	ViceLegend   ChapterID = "viceLegend"
	DragonShadow ChapterID = "dragonShadow"
	GothamSignal ChapterID = "gothamSignal"
	KryptonEcho  ChapterID = "kryptonEcho"
)

const (
	// LogoGesture is the gesture bound to the first chapter of the default saga.
	LogoGesture = "logo"

	// DefaultGestureThreshold is the number of activations that fire a gesture trigger.
	DefaultGestureThreshold = 5

	// DefaultGestureWindow is the longest gap between two activations of one gesture.
	DefaultGestureWindow = 1500 * time.Millisecond

	// DefaultBufferLimit bounds the keystroke buffer when no chapter has a secret.
	DefaultBufferLimit = 12

	// CompletionHint is shown once every chapter is discovered.
	CompletionHint = "Saga complete • Vercetti, Tai Lung, Wayne, and Krypton all logged."
)

// Trigger is the rule that unlocks a chapter. Exactly one of Gesture or Secret is set.
type Trigger struct {
	Gesture   string `json:"gesture,omitempty"`
	Threshold int    `json:"threshold,omitempty"`
	Secret    string `json:"secret,omitempty"`
}

// Chapter is one node of the discovery chain.
type Chapter struct {
	ID          ChapterID `json:"id"`
	Label       string    `json:"label"`
	Message     string    `json:"message"`
	Description string    `json:"description"`
	Hint        string    `json:"hint"`
	Effect      Effect    `json:"effect"`
	Trigger     Trigger   `json:"-"`
}

// DefaultChapters returns the five-chapter saga.
func DefaultChapters() []Chapter {
	return []Chapter{
		{
			ID:          LogoOracle,
			Label:       "Chapter 1 · Neon Knock",
			Message:     "You woke the JR crest! It whispers about a Vice City legend next.",
			Description: "Five eager taps kicked off the hidden storyline.",
			Hint:        "Chapter 1 • Tap the JR crest five times to rouse the Neon Oracle.",
			Effect:      EffectPulse,
			Trigger:     Trigger{Gesture: LogoGesture, Threshold: DefaultGestureThreshold},
		},
		{
			ID:          ViceLegend,
			Label:       "Chapter 2 · Vice Legend",
			Message:     "Tommy Vercetti would approve of your recall.",
			Description: "Typing his surname cracked open the next clue.",
			Hint:        "Chapter 2 • Vice City dispatch: type Tommy's last name to tune in.",
			Effect:      EffectParticles,
			Trigger:     Trigger{Secret: "vercetti"},
		},
		{
			ID:          DragonShadow,
			Label:       "Chapter 3 · Dragon Shadow",
			Message:     "Tai Lung nods (reluctantly). Your Kung Fu trivia is lethal.",
			Description: "Remembering the snow leopard sealed the Jade Palace stanza.",
			Hint:        "Chapter 3 • Jade Palace whispers: recall the snow leopard villain.",
			Effect:      EffectAurora,
			Trigger:     Trigger{Secret: "tailung"},
		},
		{
			ID:          GothamSignal,
			Label:       "Chapter 4 · Gotham Signal",
			Message:     "The Bat-Signal flares. Gotham knows you by name now.",
			Description: "Typing Wayne charged the skyline spotlight.",
			Hint:        "Chapter 4 • Gotham signal: type the knight’s surname to light the sky.",
			Effect:      EffectParticles,
			Trigger:     Trigger{Secret: "wayne"},
		},
		{
			ID:          KryptonEcho,
			Label:       "Finale · Krypton Echo",
			Message:     "Krypton hums again. The House of El honors you.",
			Description: "Invoking the lost planet closes the saga with cosmic light.",
			Hint:        "Finale • Krypton echo: type the planet Clark calls home.",
			Effect:      EffectPulse,
			Trigger:     Trigger{Secret: "krypton"},
		},
	}
}
