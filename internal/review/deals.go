package review

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/internal/querycache"
)

// ErrNotDeletable is returned when a deal is still being extracted.
var ErrNotDeletable = eris.New("review: deal cannot be deleted while extraction is in progress")

// DealRow is one line of the deal list.
type DealRow struct {
	Deal   model.Deal       `json:"deal"`
	Status model.DealStatus `json:"status"`
}

// FilterDeals keeps deals whose name or borrower contains query, ignoring
// case. An empty query keeps everything.
func FilterDeals(deals []model.Deal, query string) []model.Deal {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return deals
	}
	var out []model.Deal
	for _, d := range deals {
		if strings.Contains(strings.ToLower(d.Name), q) ||
			strings.Contains(strings.ToLower(d.Borrower), q) {
			out = append(out, d)
		}
	}
	return out
}

// Deals reads the deal collection through the cache.
func (s *Service) Deals(ctx context.Context) ([]model.Deal, error) {
	return querycache.Query(ctx, s.cache, querycache.Collection(querycache.ResourceDeals), s.client.ListDeals)
}

// Deal reads one deal through the cache.
func (s *Service) Deal(ctx context.Context, dealID string) (*model.Deal, error) {
	return querycache.Query(ctx, s.cache, querycache.Item(querycache.ResourceDeal, dealID),
		func(ctx context.Context) (*model.Deal, error) {
			return s.client.GetDeal(ctx, dealID)
		})
}

// ListDeals returns the deals matching query with their statuses. Statuses
// come from a single batched request; each one is stored in the cache so
// later reads of a row's status are hits. Rows the batch did not cover show
// as pending.
func (s *Service) ListDeals(ctx context.Context, query string) ([]DealRow, error) {
	deals, err := s.Deals(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "review: list deals")
	}
	deals = FilterDeals(deals, query)
	if len(deals) == 0 {
		return nil, nil
	}

	ids := make([]string, len(deals))
	for i, d := range deals {
		ids[i] = d.ID
	}

	statuses, err := s.client.BatchStatuses(ctx, ids)
	if err != nil {
		zap.L().Warn("review: batched status fetch failed, showing deals as pending", zap.Error(err))
		statuses = nil
	}

	rows := make([]DealRow, len(deals))
	for i, d := range deals {
		st, ok := statuses[d.ID]
		if ok {
			st.DealID = d.ID
			s.cache.Put(querycache.Item(querycache.ResourceStatus, d.ID), st)
		} else {
			st = model.PendingStatus(d.ID)
		}
		rows[i] = DealRow{Deal: d, Status: st}
	}
	return rows, nil
}

// DeleteDeal removes a deal once its extraction has finished. Eligibility
// is checked against the cached status when there is one.
func (s *Service) DeleteDeal(ctx context.Context, dealID string) error {
	st, err := s.Status(ctx, dealID)
	if err != nil {
		return eris.Wrapf(err, "review: status before delete %s", dealID)
	}
	if !st.CanDelete() {
		return eris.Wrapf(ErrNotDeletable, "deal %s is %s", dealID, st.Status)
	}

	_, err = querycache.Mutate(ctx, s.cache, "delete/"+dealID,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.client.DeleteDeal(ctx, dealID)
		},
		querycache.Collection(querycache.ResourceDeals),
		querycache.Item(querycache.ResourceDeal, dealID),
		querycache.Item(querycache.ResourceStatus, dealID),
		querycache.Item(querycache.ResourceAnswers, dealID),
		querycache.Item(querycache.ResourceProvision, dealID),
		querycache.Under(querycache.ResourceProvenance, dealID),
		querycache.Item(querycache.ResourceEval, dealID),
	)
	if err != nil {
		return eris.Wrapf(err, "review: delete deal %s", dealID)
	}
	zap.L().Info("deal deleted", zap.String("deal_id", dealID))
	return nil
}
