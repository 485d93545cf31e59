package buffer

import (
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

// ClockReplacer picks eviction victims with the second-chance sweep.
// It owns only the hand; frame state belongs to the pool and is passed in.
type ClockReplacer struct {
	clockHand int
	poolSize  int
}

func NewClockReplacer(poolSize int) *ClockReplacer {
	return &ClockReplacer{clockHand: 0, poolSize: poolSize}
}

func (cr *ClockReplacer) Hand() int { return cr.clockHand }

func (cr *ClockReplacer) advance() {
	cr.clockHand = (cr.clockHand + 1) % cr.poolSize
}

// SelectVictim sweeps from the hand. A referenced frame loses its bit and is
// skipped; the first unreferenced, unpinned frame is returned and the hand
// moves past it. Two revolutions without a victim mean every frame is pinned.
func (cr *ClockReplacer) SelectVictim(frames []FrameDesc) (int, error) {
	start := cr.clockHand
	checkedAll := false

	for {
		desc := &frames[cr.clockHand]

		if desc.referenced {
			desc.referenced = false
		} else if desc.pinCount == 0 {
			victim := cr.clockHand
			cr.advance()
			return victim, nil
		}

		cr.advance()

		if cr.clockHand == start {
			if checkedAll {
				return -1, util.ErrPoolExhausted
			}
			checkedAll = true
		}
	}
}
