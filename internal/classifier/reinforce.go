package classifier

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const reinforceQueueDepth = 128

// reinforceBoost is the target multiplier a reinforcement nudges a weight
// toward. With the default alpha of 0.2 one reinforcement moves a weight
// about 10% of the way there.
const reinforceBoost = 1.5

type reinforcement struct {
	industry  string
	indicator string
}

// Reinforce queues a weight nudge for the given industry indicator. The
// nudge is applied asynchronously by the single writer goroutine; callers
// never block. When the queue is full the reinforcement is dropped with a
// warning rather than stalling the caller.
func (c *Classifier) Reinforce(industry, indicator string) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.reinforceCh <- reinforcement{industry: industry, indicator: normalizeToken(indicator)}:
	default:
		zap.L().Warn("classifier: reinforcement queue full, dropping",
			zap.String("industry", industry),
			zap.String("indicator", indicator),
		)
	}
}

// Close stops the reinforcement writer. Queued reinforcements that have not
// yet been applied are discarded. Safe to call more than once.
func (c *Classifier) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// reinforceLoop is the single writer for the weight table. Applications are
// paced by a rate limiter so a burst of feedback cannot starve readers of
// the weight lock.
func (c *Classifier) reinforceLoop() {
	limiter := rate.NewLimiter(rate.Limit(c.cfg.ReinforceRate), 1)
	ctx := context.Background()

	for {
		select {
		case <-c.done:
			return
		case r := <-c.reinforceCh:
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			c.applyReinforcement(r)
		}
	}
}

func (c *Classifier) applyReinforcement(r reinforcement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	weights, ok := c.weights[r.industry]
	if !ok {
		zap.L().Warn("classifier: reinforcement for unknown industry", zap.String("industry", r.industry))
		return
	}
	current, ok := weights[r.indicator]
	if !ok {
		zap.L().Warn("classifier: reinforcement for unknown indicator",
			zap.String("industry", r.industry),
			zap.String("indicator", r.indicator),
		)
		return
	}

	// Exponential moving average toward the boosted value.
	alpha := c.cfg.ReinforceAlpha
	weights[r.indicator] = (1-alpha)*current + alpha*(current*reinforceBoost)

	zap.L().Debug("classifier: reinforced indicator",
		zap.String("industry", r.industry),
		zap.String("indicator", r.indicator),
		zap.Float64("old_weight", current),
		zap.Float64("new_weight", weights[r.indicator]),
	)
}
