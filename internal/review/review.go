// Package review implements the reviewer workflows that sit on top of the
// Valence API: browsing deals, uploading agreements, deleting deals, asking
// questions and running evaluations. Reads go through the shared query cache;
// writes go through its mutation guard so a workflow cannot submit the same
// change twice.
package review

import (
	"context"
	"net/url"

	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/internal/poll"
	"github.com/sells-group/valence-cli/internal/querycache"
	"github.com/sells-group/valence-cli/pkg/valence"
)

// Service wires the API client to the query cache.
type Service struct {
	client  valence.Client
	cache   *querycache.Cache
	catalog *Catalog
	detail  poll.Policy
}

// Option configures a Service.
type Option func(*Service)

// WithPollPolicy overrides the policy used while waiting on an upload.
func WithPollPolicy(p poll.Policy) Option {
	return func(s *Service) { s.detail = p }
}

// WithCatalog replaces the built-in question catalog.
func WithCatalog(c *Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// New creates a Service. A nil cache gets a small private one.
func New(client valence.Client, cache *querycache.Cache, opts ...Option) (*Service, error) {
	if cache == nil {
		cache = querycache.New(0, 0)
	}
	s := &Service{
		client: client,
		cache:  cache,
		detail: poll.Aggressive(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		c, err := DefaultCatalog()
		if err != nil {
			return nil, err
		}
		s.catalog = c
	}
	return s, nil
}

// Catalog returns the question catalog in use.
func (s *Service) Catalog() *Catalog { return s.catalog }

// Cache returns the shared query cache.
func (s *Service) Cache() *querycache.Cache { return s.cache }

// DealRoute is the detail route for a deal.
func DealRoute(dealID string) string {
	return "/deals/" + url.PathEscape(dealID)
}

// Status reads a deal's status through the cache.
func (s *Service) Status(ctx context.Context, dealID string) (model.DealStatus, error) {
	st, err := querycache.Query(ctx, s.cache, querycache.Item(querycache.ResourceStatus, dealID),
		func(ctx context.Context) (model.DealStatus, error) {
			st, err := s.client.GetStatus(ctx, dealID)
			if err != nil {
				return model.DealStatus{}, err
			}
			return *st, nil
		})
	return st, err
}

// Answers reads a deal's extracted answers through the cache.
func (s *Service) Answers(ctx context.Context, dealID string) (*model.AnswersResponse, error) {
	return querycache.Query(ctx, s.cache, querycache.Item(querycache.ResourceAnswers, dealID),
		func(ctx context.Context) (*model.AnswersResponse, error) {
			return s.client.GetAnswers(ctx, dealID)
		})
}

// Provision reads a deal's extracted RP provision through the cache.
func (s *Service) Provision(ctx context.Context, dealID string) (*model.Provision, error) {
	return querycache.Query(ctx, s.cache, querycache.Item(querycache.ResourceProvision, dealID),
		func(ctx context.Context) (*model.Provision, error) {
			return s.client.GetRPProvision(ctx, dealID)
		})
}

// Provenance reads the source evidence for one attribute through the cache.
func (s *Service) Provenance(ctx context.Context, dealID, attribute string) (*model.Provenance, error) {
	return querycache.Query(ctx, s.cache, provenanceKey(dealID, attribute),
		func(ctx context.Context) (*model.Provenance, error) {
			return s.client.GetProvenance(ctx, dealID, attribute)
		})
}

// Questions reads the ontology question set through the cache.
func (s *Service) Questions(ctx context.Context) ([]model.OntologyQuestion, error) {
	return querycache.Query(ctx, s.cache, querycache.Item(querycache.ResourceOntology, "questions"),
		s.client.OntologyQuestions)
}

// provenanceKey nests attributes under the deal so a deal's provenance can be
// dropped together.
func provenanceKey(dealID, attribute string) querycache.Key {
	return querycache.Item(querycache.ResourceProvenance, dealID+"/"+attribute)
}
