// Package valence provides a client for the Valence deal-extraction API.
package valence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/internal/resilience"
)

const (
	defaultBaseURL        = "https://valencev3-production.up.railway.app"
	defaultRequestTimeout = 60 * time.Second
	defaultEvalTimeout    = 15 * time.Minute
)

// ErrEvalTimeout is returned when an evaluation run exceeds the client-side
// bound. It is distinct from other evaluation failures so callers can ask
// for a smaller run.
var ErrEvalTimeout = eris.New("valence: evaluation timed out")

// Client defines the Valence API operations.
type Client interface {
	ListDeals(ctx context.Context) ([]model.Deal, error)
	GetDeal(ctx context.Context, dealID string) (*model.Deal, error)
	UploadDeal(ctx context.Context, req UploadRequest) (*model.UploadResponse, error)
	GetStatus(ctx context.Context, dealID string) (*model.DealStatus, error)
	// BatchStatuses fetches many statuses through the deal-statuses edge
	// function. A non-2xx response yields an empty map, leaving callers to
	// show rows as pending.
	BatchStatuses(ctx context.Context, dealIDs []string) (map[string]model.DealStatus, error)
	DeleteDeal(ctx context.Context, dealID string) error
	Ask(ctx context.Context, dealID, question string) (*model.AskResponse, error)
	AskLegacy(ctx context.Context, dealID, question string) (*model.QAResponse, error)
	GetAnswers(ctx context.Context, dealID string) (*model.AnswersResponse, error)
	GetProvenance(ctx context.Context, dealID, attribute string) (*model.Provenance, error)
	GetRPProvision(ctx context.Context, dealID string) (*model.Provision, error)
	OntologyQuestions(ctx context.Context) ([]model.OntologyQuestion, error)
	OntologyCategories(ctx context.Context) ([]model.OntologyCategory, error)
	// RunEval blocks until the evaluation finishes or the eval timeout
	// elapses, in which case the error matches ErrEvalTimeout.
	RunEval(ctx context.Context, dealID string, req model.EvalRequest) (*model.EvalResult, error)
	Health(ctx context.Context) (string, error)
}

// UploadRequest carries the multipart upload fields.
type UploadRequest struct {
	FileName string
	File     io.Reader
	DealName string
	Borrower string
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Status     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	text := http.StatusText(e.StatusCode)
	if e.Status != "" {
		text = strings.TrimSpace(strings.TrimPrefix(e.Status, fmt.Sprint(e.StatusCode)))
	}
	return fmt.Sprintf("API Error: %d %s", e.StatusCode, text)
}

// Option configures the Valence client.
type Option func(*httpClient)

// WithBaseURL sets the API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithFunctionsURL sets the base URL hosting the deal-statuses function.
// Defaults to the API base URL.
func WithFunctionsURL(u string) Option {
	return func(c *httpClient) {
		c.functionsURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRequestTimeout bounds every call except RunEval.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.requestTimeout = d
	}
}

// WithEvalTimeout overrides the evaluation run bound.
func WithEvalTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.evalTimeout = d
	}
}

type httpClient struct {
	baseURL        string
	functionsURL   string
	requestTimeout time.Duration
	evalTimeout    time.Duration
	http           *http.Client
}

// NewClient creates a new Valence API client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:        defaultBaseURL,
		requestTimeout: defaultRequestTimeout,
		evalTimeout:    defaultEvalTimeout,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.functionsURL == "" {
		c.functionsURL = c.baseURL
	}
	return c
}

// do sends a request and decodes a JSON response into out (which may be
// nil). Transient HTTP statuses are marked so read paths can retry them.
func (c *httpClient) do(ctx context.Context, method, rawURL, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return eris.Wrap(err, "valence: create request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "valence: %s %s", method, req.URL.Path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "valence: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Path:       req.URL.Path,
			Body:       string(data),
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrapf(err, "valence: unmarshal %s response", req.URL.Path)
	}
	return nil
}

func (c *httpClient) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	return c.do(ctx, http.MethodGet, c.baseURL+path, "", nil, out)
}

func (c *httpClient) postJSON(ctx context.Context, rawURL string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return eris.Wrap(err, "valence: marshal request")
	}
	return c.do(ctx, http.MethodPost, rawURL, "application/json", bytes.NewReader(payload), out)
}

func dealPath(dealID string, parts ...string) string {
	p := "/api/deals/" + url.PathEscape(dealID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func (c *httpClient) ListDeals(ctx context.Context) ([]model.Deal, error) {
	var deals []model.Deal
	if err := c.getJSON(ctx, "/api/deals", &deals); err != nil {
		return nil, err
	}
	return deals, nil
}

func (c *httpClient) GetDeal(ctx context.Context, dealID string) (*model.Deal, error) {
	var deal model.Deal
	if err := c.getJSON(ctx, dealPath(dealID), &deal); err != nil {
		return nil, err
	}
	return &deal, nil
}

func (c *httpClient) UploadDeal(ctx context.Context, req UploadRequest) (*model.UploadResponse, error) {
	if req.File == nil {
		return nil, eris.New("valence: upload requires a file")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", req.FileName)
	if err != nil {
		return nil, eris.Wrap(err, "valence: create form file")
	}
	if _, err := io.Copy(part, req.File); err != nil {
		return nil, eris.Wrap(err, "valence: copy upload body")
	}
	if err := mw.WriteField("deal_name", req.DealName); err != nil {
		return nil, eris.Wrap(err, "valence: write deal_name")
	}
	if err := mw.WriteField("borrower", req.Borrower); err != nil {
		return nil, eris.Wrap(err, "valence: write borrower")
	}
	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "valence: close multipart writer")
	}

	var out model.UploadResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/api/deals/upload", mw.FormDataContentType(), &buf, &out); err != nil {
		return nil, eris.Wrap(err, "valence: upload failed")
	}
	return &out, nil
}

func (c *httpClient) GetStatus(ctx context.Context, dealID string) (*model.DealStatus, error) {
	var status model.DealStatus
	if err := c.getJSON(ctx, dealPath(dealID, "status"), &status); err != nil {
		return nil, err
	}
	if status.DealID == "" {
		status.DealID = dealID
	}
	return &status, nil
}

func (c *httpClient) BatchStatuses(ctx context.Context, dealIDs []string) (map[string]model.DealStatus, error) {
	if len(dealIDs) == 0 {
		return map[string]model.DealStatus{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var out struct {
		Statuses map[string]model.DealStatus `json:"statuses"`
	}
	err := c.postJSON(ctx, c.functionsURL+"/functions/v1/deal-statuses", map[string][]string{"deal_ids": dealIDs}, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			zap.L().Warn("valence: batched status fetch failed",
				zap.Int("status", apiErr.StatusCode),
				zap.Int("deals", len(dealIDs)),
			)
			return map[string]model.DealStatus{}, nil
		}
		return nil, err
	}
	if out.Statuses == nil {
		out.Statuses = map[string]model.DealStatus{}
	}
	return out.Statuses, nil
}

func (c *httpClient) DeleteDeal(ctx context.Context, dealID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	return c.do(ctx, http.MethodDelete, c.baseURL+dealPath(dealID), "", nil, nil)
}

func (c *httpClient) Ask(ctx context.Context, dealID, question string) (*model.AskResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var out model.AskResponse
	if err := c.postJSON(ctx, c.baseURL+dealPath(dealID, "ask"), model.AskRequest{Question: question}, &out); err != nil {
		return nil, err
	}
	if out.Question == "" {
		out.Question = question
	}
	return &out, nil
}

func (c *httpClient) AskLegacy(ctx context.Context, dealID, question string) (*model.QAResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var out model.QAResponse
	if err := c.postJSON(ctx, c.baseURL+dealPath(dealID, "qa"), model.AskRequest{Question: question}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) GetAnswers(ctx context.Context, dealID string) (*model.AnswersResponse, error) {
	var out model.AnswersResponse
	if err := c.getJSON(ctx, dealPath(dealID, "answers"), &out); err != nil {
		return nil, err
	}
	if out.DealID == "" {
		out.DealID = dealID
	}
	return &out, nil
}

func (c *httpClient) GetProvenance(ctx context.Context, dealID, attribute string) (*model.Provenance, error) {
	var out model.Provenance
	if err := c.getJSON(ctx, dealPath(dealID, "provenance", attribute), &out); err != nil {
		return nil, err
	}
	if out.Attribute == "" {
		out.Attribute = attribute
	}
	return &out, nil
}

func (c *httpClient) GetRPProvision(ctx context.Context, dealID string) (*model.Provision, error) {
	var out model.Provision
	if err := c.getJSON(ctx, dealPath(dealID, "rp-provision"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OntologyQuestions loads the RP question set, falling back to the legacy
// flat endpoint when the RP route does not exist.
func (c *httpClient) OntologyQuestions(ctx context.Context) ([]model.OntologyQuestion, error) {
	var out model.OntologyQuestionsResponse
	err := c.getJSON(ctx, "/api/ontology/questions/RP", &out)
	if err == nil {
		return out.Questions, nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		return nil, err
	}

	zap.L().Debug("valence: RP ontology route missing, using legacy endpoint")
	var legacy []model.OntologyQuestion
	if err := c.getJSON(ctx, "/api/ontology/questions", &legacy); err != nil {
		return nil, err
	}
	return legacy, nil
}

func (c *httpClient) OntologyCategories(ctx context.Context) ([]model.OntologyCategory, error) {
	var out model.OntologyCategoriesResponse
	if err := c.getJSON(ctx, "/api/ontology/categories", &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

func (c *httpClient) RunEval(ctx context.Context, dealID string, req model.EvalRequest) (*model.EvalResult, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, c.evalTimeout, ErrEvalTimeout)
	defer cancel()

	var out model.EvalResult
	err := c.postJSON(ctx, c.baseURL+dealPath(dealID, "eval"), req, &out)
	if err != nil {
		if errors.Is(context.Cause(ctx), ErrEvalTimeout) {
			return nil, ErrEvalTimeout
		}
		return nil, err
	}
	if out.DealID == "" {
		out.DealID = dealID
	}
	return &out, nil
}

func (c *httpClient) Health(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/health", &out); err != nil {
		return "", err
	}
	return out.Status, nil
}
