package review

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/internal/poll"
	"github.com/sells-group/valence-cli/internal/querycache"
	"github.com/sells-group/valence-cli/pkg/valence"
)

// UploadState is the stage of an upload as shown to the reviewer.
type UploadState string

const (
	UploadIdle       UploadState = "idle"
	UploadUploading  UploadState = "uploading"
	UploadExtracting UploadState = "extracting"
	UploadComplete   UploadState = "complete"
	UploadError      UploadState = "error"
)

// Upload validation errors.
var (
	ErrNotPDF          = eris.New("review: only PDF files are accepted")
	ErrMissingDealName = eris.New("review: deal name is required")
	ErrMissingBorrower = eris.New("review: borrower is required")
	ErrExtraction      = eris.New("review: extraction failed")
)

// UploadProgress is reported at every state change and status poll.
type UploadProgress struct {
	State  UploadState
	DealID string
	Status model.DealStatus
	Steps  []poll.Step
	Err    error
}

// UploadResult describes a finished upload.
type UploadResult struct {
	DealID string
	Route  string
	Status model.DealStatus
}

// ValidateUpload checks the fields of an upload before anything is sent.
func ValidateUpload(req valence.UploadRequest) error {
	if !strings.EqualFold(filepath.Ext(req.FileName), ".pdf") {
		return eris.Wrapf(ErrNotPDF, "got %q", req.FileName)
	}
	if strings.TrimSpace(req.DealName) == "" {
		return ErrMissingDealName
	}
	if strings.TrimSpace(req.Borrower) == "" {
		return ErrMissingBorrower
	}
	return nil
}

// Upload sends the agreement, then polls its status until extraction
// finishes. onProgress (may be nil) sees uploading, then extracting once per
// poll, then complete or error. On success the result carries the deal
// detail route.
func (s *Service) Upload(ctx context.Context, req valence.UploadRequest, onProgress func(UploadProgress)) (*UploadResult, error) {
	report := func(p UploadProgress) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	if err := ValidateUpload(req); err != nil {
		report(UploadProgress{State: UploadError, Err: err})
		return nil, err
	}

	report(UploadProgress{State: UploadUploading})
	resp, err := querycache.Mutate(ctx, s.cache, "upload/"+req.FileName,
		func(ctx context.Context) (*model.UploadResponse, error) {
			return s.client.UploadDeal(ctx, req)
		},
		querycache.Collection(querycache.ResourceDeals),
	)
	if err != nil {
		report(UploadProgress{State: UploadError, Err: err})
		return nil, eris.Wrap(err, "review: upload")
	}

	dealID := resp.DealID
	zap.L().Info("deal uploaded, waiting for extraction",
		zap.String("deal_id", dealID),
		zap.String("file", req.FileName),
	)
	report(UploadProgress{State: UploadExtracting, DealID: dealID, Status: model.PendingStatus(dealID)})

	final, err := poll.Watch(ctx, dealID, s.client.GetStatus, s.detail, func(u poll.Update) {
		if u.Err != nil || u.Status.IsTerminal() {
			return
		}
		report(UploadProgress{
			State:  UploadExtracting,
			DealID: dealID,
			Status: u.Status,
			Steps:  poll.Steps(u.Status),
		})
	})
	if err != nil {
		report(UploadProgress{State: UploadError, DealID: dealID, Status: final, Err: err})
		return nil, eris.Wrapf(err, "review: wait for deal %s", dealID)
	}

	s.cache.Put(querycache.Item(querycache.ResourceStatus, dealID), final)

	if final.Status == model.StatusError {
		err := eris.Wrapf(ErrExtraction, "deal %s: %s", dealID, final.ErrorText())
		report(UploadProgress{State: UploadError, DealID: dealID, Status: final, Err: err})
		return nil, err
	}

	result := &UploadResult{DealID: dealID, Route: DealRoute(dealID), Status: final}
	report(UploadProgress{State: UploadComplete, DealID: dealID, Status: final, Steps: poll.Steps(final)})
	return result, nil
}
