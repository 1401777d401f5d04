package app

// Cue plays the feedback sound after an explicit check. A view creates one
// when it opens and closes it when it goes away.
type Cue interface {
	Correct()
	Wrong()
	Close() error
}

// NopCue discards every cue.
type NopCue struct{}

func (NopCue) Correct()     {}
func (NopCue) Wrong()       {}
func (NopCue) Close() error { return nil }
