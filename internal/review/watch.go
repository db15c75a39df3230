package review

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/internal/poll"
	"github.com/sells-group/valence-cli/internal/querycache"
)

// WatchDeals keeps the listed rows' statuses current until every row is
// terminal or ctx is done. Each row still extracting gets its own
// subscription on policy; all of them are stopped before WatchDeals returns.
// onUpdate receives every fresh status, one call at a time, and may be nil.
//
// The returned statuses are in row order.
func (s *Service) WatchDeals(ctx context.Context, rows []DealRow, policy poll.Policy, onUpdate func(model.DealStatus)) []model.DealStatus {
	out := make([]model.DealStatus, len(rows))
	var mu sync.Mutex

	subs := make(map[int]*poll.Subscription)
	defer func() {
		for _, sub := range subs {
			sub.Stop()
		}
	}()

	for i, r := range rows {
		out[i] = r.Status
		if r.Status.IsTerminal() || r.Deal.ID == "" {
			continue
		}
		subs[i] = poll.Start(ctx, r.Deal.ID, s.client.GetStatus, policy, func(u poll.Update) {
			if u.Err != nil {
				return
			}
			s.cache.Put(querycache.Item(querycache.ResourceStatus, u.Status.DealID), u.Status)
			mu.Lock()
			defer mu.Unlock()
			if onUpdate != nil {
				onUpdate(u.Status)
			}
		})
	}

	for i, sub := range subs {
		<-sub.Done()
		last, err := sub.Result()
		if err != nil {
			zap.L().Debug("review: status watch ended", zap.String("deal_id", rows[i].Deal.ID), zap.Error(err))
		}
		if last.DealID != "" {
			out[i] = last
		}
	}
	return out
}
