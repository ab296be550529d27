package cmd

import (
	"bytes"
	"io"

	"github.com/huangsam/folio/core/egg"
)

// Raw terminal bytes handled by the player.
const (
	keyCtrlC  = 0x03
	keyCtrlD  = 0x04
	keyEscape = 0x1b
	keyLogo   = '*'
)

// Script symbols understood by eggs simulate.
const (
	scriptLogoTap = '@'
	scriptReset   = '~'
)

// chapterFunc receives every chapter triggered during play.
type chapterFunc func(active egg.ActiveChapter, progress egg.Progress)

// playKey applies one raw terminal byte to seq and reports whether the player should quit.
func playKey(seq *egg.Sequencer, b byte, onChapter chapterFunc) (quit bool) {
	var triggered bool
	switch b {
	case keyCtrlC, keyCtrlD:
		return true
	case keyEscape:
		seq.ResetBuffer()
	case keyLogo, '\r', '\n':
		triggered = seq.RecordGestureActivation(egg.LogoGesture)
	default:
		triggered = seq.RecordCharacterInput(rune(b))
	}
	if triggered {
		notifyChapter(seq, onChapter)
	}
	return false
}

// replayScript feeds a simulate script into seq and returns how many chapters it triggered.
func replayScript(seq *egg.Sequencer, script string, onChapter chapterFunc) int {
	var count int
	for _, r := range script {
		var triggered bool
		switch r {
		case scriptLogoTap:
			triggered = seq.RecordGestureActivation(egg.LogoGesture)
		case scriptReset:
			seq.ResetBuffer()
		default:
			triggered = seq.RecordCharacterInput(r)
		}
		if triggered {
			count++
			notifyChapter(seq, onChapter)
		}
	}
	return count
}

func notifyChapter(seq *egg.Sequencer, onChapter chapterFunc) {
	if active, ok := seq.Active(); ok {
		onChapter(active, seq.Progress())
	}
}

// crlfWriter translates "\n" into "\r\n" for terminals in raw mode.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
