package analyzer

import (
	"sort"

	"github.com/blackwell-systems/questwatch/internal/quest"
)

// ReconstructFunnel derives per-step reach, completion, and drop-off from each
// session's SolvedSpots counter.
//
// A session reaches step i when it has solved at least i-1 spots and
// completes it when it has solved at least i. Per-step hint and wrong-answer
// averages are estimates: each session's totals are spread evenly over all N
// steps, and the estimate for step i averages that share over the sessions
// reaching it.
func ReconstructFunnel(sessions []quest.PlaySession, steps []quest.StepDefinition) []FunnelStep {
	n := len(steps)
	if n == 0 {
		return nil
	}

	ordered := make([]quest.StepDefinition, n)
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Ordinal < ordered[j].Ordinal
	})

	funnel := make([]FunnelStep, 0, n)
	for idx, def := range ordered {
		i := idx + 1
		step := FunnelStep{
			Step:      i,
			Name:      def.Name,
			Estimated: true,
		}

		var hintShare, wrongShare float64
		var hintN, wrongN int
		for _, s := range sessions {
			if s.SolvedSpots < i-1 {
				continue
			}
			step.Reached++
			if s.SolvedSpots >= i {
				step.Completed++
			}
			if s.HintsUsed != nil {
				hintShare += float64(*s.HintsUsed) / float64(n)
				hintN++
			}
			if s.WrongAnswers != nil {
				wrongShare += float64(*s.WrongAnswers) / float64(n)
				wrongN++
			}
		}

		if step.Reached > 0 {
			step.DropRate = clamp01(float64(step.Reached-step.Completed) / float64(step.Reached))
		}
		if hintN > 0 {
			step.AvgHints = ptr(roundTo(hintShare/float64(hintN), 1))
		}
		if wrongN > 0 {
			step.AvgWrongs = ptr(roundTo(wrongShare/float64(wrongN), 1))
		}

		funnel = append(funnel, step)
	}

	return funnel
}
