package review

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/pkg/valence"
)

// --- Valence Mock ---

type mockValenceClient struct {
	mock.Mock
}

var _ valence.Client = (*mockValenceClient)(nil)

func (m *mockValenceClient) ListDeals(ctx context.Context) ([]model.Deal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Deal), args.Error(1)
}

func (m *mockValenceClient) GetDeal(ctx context.Context, dealID string) (*model.Deal, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Deal), args.Error(1)
}

func (m *mockValenceClient) UploadDeal(ctx context.Context, req valence.UploadRequest) (*model.UploadResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadResponse), args.Error(1)
}

func (m *mockValenceClient) GetStatus(ctx context.Context, dealID string) (*model.DealStatus, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DealStatus), args.Error(1)
}

func (m *mockValenceClient) BatchStatuses(ctx context.Context, dealIDs []string) (map[string]model.DealStatus, error) {
	args := m.Called(ctx, dealIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]model.DealStatus), args.Error(1)
}

func (m *mockValenceClient) DeleteDeal(ctx context.Context, dealID string) error {
	args := m.Called(ctx, dealID)
	return args.Error(0)
}

func (m *mockValenceClient) Ask(ctx context.Context, dealID, question string) (*model.AskResponse, error) {
	args := m.Called(ctx, dealID, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AskResponse), args.Error(1)
}

func (m *mockValenceClient) AskLegacy(ctx context.Context, dealID, question string) (*model.QAResponse, error) {
	args := m.Called(ctx, dealID, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QAResponse), args.Error(1)
}

func (m *mockValenceClient) GetAnswers(ctx context.Context, dealID string) (*model.AnswersResponse, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnswersResponse), args.Error(1)
}

func (m *mockValenceClient) GetProvenance(ctx context.Context, dealID, attribute string) (*model.Provenance, error) {
	args := m.Called(ctx, dealID, attribute)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Provenance), args.Error(1)
}

func (m *mockValenceClient) GetRPProvision(ctx context.Context, dealID string) (*model.Provision, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Provision), args.Error(1)
}

func (m *mockValenceClient) OntologyQuestions(ctx context.Context) ([]model.OntologyQuestion, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OntologyQuestion), args.Error(1)
}

func (m *mockValenceClient) OntologyCategories(ctx context.Context) ([]model.OntologyCategory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OntologyCategory), args.Error(1)
}

func (m *mockValenceClient) RunEval(ctx context.Context, dealID string, req model.EvalRequest) (*model.EvalResult, error) {
	args := m.Called(ctx, dealID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EvalResult), args.Error(1)
}

func (m *mockValenceClient) Health(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
