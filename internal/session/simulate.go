package session

import (
	"fmt"

	"github.com/MJE43/nback-trainer/internal/engine"
	"github.com/MJE43/nback-trainer/internal/nback"
	"github.com/MJE43/nback-trainer/internal/store"
)

// Simulate plays sessions back to back without a timer. After each session
// a non-nil policy picks the next back-distance. All sessions draw from src,
// so a seeded source replays the whole run.
func Simulate(cfg nback.Config, src engine.Source, player Player, policy nback.Policy, sessions int) ([]store.GameScore, error) {
	if src == nil {
		src = engine.NewEntropySource()
	}

	scores := make([]store.GameScore, 0, sessions)
	for i := 0; i < sessions; i++ {
		eng, err := nback.New(cfg, src)
		if err != nil {
			return scores, err
		}

		for !eng.IsFinished() {
			eng.ResolveRound()
			if player != nil {
				for _, m := range player.Respond(eng) {
					eng.RecordAnswer(m)
				}
			}
		}
		scores = append(scores, *store.FromResult(eng.Result()))

		if policy != nil {
			n, err := policy.Next(cfg.BackDistance, eng.Score())
			if err != nil {
				return scores, fmt.Errorf("session %d: policy: %w", i+1, err)
			}
			cfg.BackDistance = n
		}
	}
	return scores, nil
}
