package pipeline

// State is a step of one Speak invocation.
type State string

const (
	StateRequested             State = "requested"
	StateKeyDerived            State = "key_derived"
	StateCacheProbed           State = "cache_probed"
	StateCacheHit              State = "cache_hit"
	StateCacheMissSynthesizing State = "cache_miss_synthesizing"
	StateLipSyncing            State = "lip_syncing"
	StateCompleted             State = "completed"
	StateFailed                State = "failed"
)

// Terminal reports whether no further transition follows.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}
