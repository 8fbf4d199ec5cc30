package media

import (
	"authenta/internal/client"
	"authenta/internal/config"
	"authenta/internal/dto"
	"authenta/internal/logger"
	"authenta/internal/model"
	"authenta/internal/repository"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultPollInterval is used when neither the caller nor the config sets one.
	DefaultPollInterval = 5 * time.Second
	// DefaultTimeout is used when neither the caller nor the config sets one.
	DefaultTimeout = 5 * time.Minute

	mediaPath = "/api/media"
)

// StatusPublisher receives every status observed while waiting on a record.
type StatusPublisher interface {
	Publish(event model.StatusEvent)
}

// Orchestrator owns the create -> upload -> wait workflow against the Authenta API.
// Each call is independent; the only shared state is the stateless client.
type Orchestrator struct {
	client       *client.Client
	logger       *logger.Logger
	mediaRepo    repository.MediaRepository
	publisher    StatusPublisher
	pollInterval time.Duration
	timeout      time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an Orchestrator. mediaRepo may be nil, in which case
// nothing is written to the local ledger and ResumeUpload is unavailable.
func NewOrchestrator(c *client.Client, cfg *config.Config, logger *logger.Logger, mediaRepo repository.MediaRepository) *Orchestrator {
	o := &Orchestrator{
		client:       c,
		logger:       logger,
		mediaRepo:    mediaRepo,
		pollInterval: DefaultPollInterval,
		timeout:      DefaultTimeout,
		now:          time.Now,
		sleep:        sleepContext,
	}

	if cfg != nil {
		if cfg.PollInterval > 0 {
			o.pollInterval = cfg.PollInterval
		}
		if cfg.Timeout > 0 {
			o.timeout = cfg.Timeout
		}
	}
	return o
}

// SetPublisher attaches a StatusPublisher; nil detaches it.
func (o *Orchestrator) SetPublisher(p StatusPublisher) {
	o.publisher = p
}

// CreateMedia registers a new media record and returns it with its upload URL.
func (o *Orchestrator) CreateMedia(ctx context.Context, req model.CreateMediaRequest) (*model.CreateMediaResponse, error) {
	if !model.IsSupportedModelType(req.ModelType) {
		return nil, &ValidationError{Field: "modelType", Message: fmt.Sprintf("%q must be one of: DF-1, AC-1, FD-1", req.ModelType)}
	}
	if req.Size <= 0 {
		return nil, &ValidationError{Field: "size", Message: "file size must be greater than zero"}
	}

	var created model.CreateMediaResponse
	if err := o.client.Post(ctx, mediaPath, req, &created); err != nil {
		return nil, fmt.Errorf("failed to create media: %w", err)
	}

	if created.MID == "" {
		return nil, errors.New("failed to create media: mid missing in API response")
	}
	if created.UploadURL == "" {
		return nil, fmt.Errorf("failed to create media %s: %w", created.MID, ErrMissingUploadURL)
	}

	o.logger.Info("Created media %s (%s, %d bytes, model %s)", created.MID, req.ContentType, req.Size, req.ModelType)
	return &created, nil
}

// UploadBinary streams the file to the pre-signed upload URL as the raw request body.
func (o *Orchestrator) UploadBinary(ctx context.Context, uploadURL, filePath, contentType string) error {
	if uploadURL == "" {
		return &ValidationError{Field: "uploadUrl", Message: "upload url is required"}
	}

	file, err := os.Open(filePath)
	if err != nil {
		return &ValidationError{Field: "file", Message: err.Error()}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", filePath, err)
	}
	if info.Size() <= 0 {
		return &ValidationError{Field: "file", Message: "file size must be greater than zero"}
	}

	status, err := o.client.Put(ctx, uploadURL, file, info.Size(), contentType)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		o.logger.Error("Binary upload of %s failed with status %d", filePath, status)
		return &UploadError{StatusCode: status}
	}

	o.logger.Info("Uploaded %s (%d bytes)", filePath, info.Size())
	return nil
}

// TriggerProcessing asks the server to start processing a record explicitly.
// The default flow does not need it: processing starts after the upload.
func (o *Orchestrator) TriggerProcessing(ctx context.Context, mid string) error {
	if mid == "" {
		return &ValidationError{Field: "mid", Message: "mid is required"}
	}
	return o.client.Post(ctx, mediaPath+"/"+url.PathEscape(mid)+"/process", nil, nil)
}

// GetMedia fetches the current status document of a record.
func (o *Orchestrator) GetMedia(ctx context.Context, mid string) (*model.MediaRecord, error) {
	if mid == "" {
		return nil, &ValidationError{Field: "mid", Message: "mid is required"}
	}

	var record model.MediaRecord
	if err := o.client.Get(ctx, mediaPath+"/"+url.PathEscape(mid), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// WaitForTerminal polls a record until its status is PROCESSED, FAILED or
// ERROR. Zero pollInterval or timeout fall back to the configured defaults.
func (o *Orchestrator) WaitForTerminal(ctx context.Context, mid string, pollInterval, timeout time.Duration) (*model.MediaRecord, error) {
	if mid == "" {
		return nil, &ValidationError{Field: "mid", Message: "mid is required"}
	}
	if pollInterval <= 0 {
		pollInterval = o.pollInterval
	}
	if timeout <= 0 {
		timeout = o.timeout
	}

	runID := uuid.NewString()
	start := o.now()

	for attempt := 1; ; attempt++ {
		record, err := o.GetMedia(ctx, mid)
		if err != nil {
			return nil, err
		}

		status := record.NormalizedStatus()
		elapsed := o.now().Sub(start)
		terminal := record.IsTerminal()
		o.publish(model.StatusEvent{
			RunID:    runID,
			MID:      mid,
			Status:   status,
			Attempt:  attempt,
			Elapsed:  elapsed,
			Terminal: terminal,
			Time:     o.now().UTC(),
		})

		if terminal {
			o.logger.Info("Media %s reached %s after %d poll(s)", mid, status, attempt)
			o.remember(record, "", "")
			return record, nil
		}

		if elapsed >= timeout {
			o.logger.Warning("Timed out waiting for media %s, last status=%s", mid, status)
			return nil, &TimeoutError{MID: mid, LastStatus: status, Elapsed: elapsed}
		}

		if err := o.sleep(ctx, pollInterval); err != nil {
			return nil, err
		}
	}
}

// UploadProcessAndWait is the primary entry point: create, upload and wait.
func (o *Orchestrator) UploadProcessAndWait(ctx context.Context, filePath, modelType string, pollInterval, timeout time.Duration) (*model.MediaRecord, error) {
	contentType, err := MimeType(filePath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, &ValidationError{Field: "file", Message: "file not found: " + filePath}
	}

	created, err := o.CreateMedia(ctx, model.CreateMediaRequest{
		Name:        mediaName(filePath),
		ContentType: contentType,
		Size:        info.Size(),
		ModelType:   modelType,
	})
	if err != nil {
		return nil, err
	}

	record := created.MediaRecord
	if record.Status == "" {
		record.Status = model.StatusCreated
	}
	o.remember(&record, created.UploadURL, filePath)

	if err := o.UploadBinary(ctx, created.UploadURL, filePath, contentType); err != nil {
		return nil, fmt.Errorf("media %s: %w", created.MID, err)
	}

	return o.WaitForTerminal(ctx, created.MID, pollInterval, timeout)
}

// ResumeUpload retries the binary upload of a record created earlier, using
// the upload URL kept in the ledger, then waits for it. An empty filePath
// reuses the path recorded at creation.
func (o *Orchestrator) ResumeUpload(ctx context.Context, mid, filePath string, pollInterval, timeout time.Duration) (*model.MediaRecord, error) {
	if o.mediaRepo == nil {
		return nil, ErrNotInLedger
	}

	entry, err := o.mediaRepo.GetByMID(mid)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if entry == nil || entry.UploadURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotInLedger, mid)
	}

	if filePath == "" {
		filePath = entry.FilePath
	}
	contentType := entry.Record.ContentType
	if contentType == "" {
		if contentType, err = MimeType(filePath); err != nil {
			return nil, err
		}
	}

	o.logger.Info("Resuming upload of media %s from %s", mid, filePath)
	if err := o.UploadBinary(ctx, entry.UploadURL, filePath, contentType); err != nil {
		return nil, fmt.Errorf("media %s: %w", mid, err)
	}

	return o.WaitForTerminal(ctx, mid, pollInterval, timeout)
}

// ListMedia returns the records matching filters.
func (o *Orchestrator) ListMedia(ctx context.Context, filters *dto.MediaFilters) ([]model.MediaRecord, error) {
	page, err := o.ListMediaPage(ctx, filters)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// ListMediaPage returns one page of records together with paging metadata.
func (o *Orchestrator) ListMediaPage(ctx context.Context, filters *dto.MediaFilters) (*model.MediaList, error) {
	path := mediaPath
	if q := filters.Query(); len(q) > 0 {
		path += "?" + q.Encode()
	}

	raw, err := o.client.GetRaw(ctx, path)
	if err != nil {
		return nil, err
	}

	list, err := decodeMediaList(raw)
	if err != nil {
		return nil, &client.DecodeError{URL: o.client.BaseURL() + path, Err: err}
	}
	return list, nil
}

// DeleteMedia removes a record on the server and from the local ledger.
func (o *Orchestrator) DeleteMedia(ctx context.Context, mid string) error {
	if mid == "" {
		return &ValidationError{Field: "mid", Message: "mid cannot be empty"}
	}

	if err := o.client.Delete(ctx, mediaPath+"/"+url.PathEscape(mid)); err != nil {
		return err
	}

	if o.mediaRepo != nil {
		if err := o.mediaRepo.Delete(mid); err != nil {
			o.logger.Warning("Deleted media %s remotely but not from ledger: %v", mid, err)
		}
	}
	o.logger.Info("Deleted media %s", mid)
	return nil
}

// remember writes the record to the ledger, keeping a previously stored
// upload URL and file path when none are given.
func (o *Orchestrator) remember(record *model.MediaRecord, uploadURL, filePath string) {
	if o.mediaRepo == nil {
		return
	}

	entry := &model.StoredMedia{
		Record:    *record,
		UploadURL: uploadURL,
		FilePath:  filePath,
		UpdatedAt: o.now().UTC(),
	}

	if uploadURL == "" || filePath == "" {
		if existing, err := o.mediaRepo.GetByMID(record.MID); err == nil && existing != nil {
			if entry.UploadURL == "" {
				entry.UploadURL = existing.UploadURL
			}
			if entry.FilePath == "" {
				entry.FilePath = existing.FilePath
			}
		}
	}

	if err := o.mediaRepo.Upsert(entry); err != nil {
		o.logger.Warning("Failed to store media %s in ledger: %v", record.MID, err)
	}
}

func (o *Orchestrator) publish(event model.StatusEvent) {
	o.logger.Info("Media %s status %s (attempt %d, %s elapsed)", event.MID, event.Status, event.Attempt, event.Elapsed.Round(time.Millisecond))
	if o.publisher != nil {
		o.publisher.Publish(event)
	}
}

// decodeMediaList accepts a bare JSON array or an object wrapping the records.
func decodeMediaList(raw []byte) (*model.MediaList, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return &model.MediaList{}, nil
	}

	if trimmed[0] == '[' {
		var items []model.MediaRecord
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return &model.MediaList{Items: items, Total: len(items)}, nil
	}

	var envelope struct {
		Data     []model.MediaRecord `json:"data"`
		Items    []model.MediaRecord `json:"items"`
		Media    []model.MediaRecord `json:"media"`
		Total    int                 `json:"total"`
		Page     int                 `json:"page"`
		PageSize int                 `json:"pageSize"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}

	list := &model.MediaList{Total: envelope.Total, Page: envelope.Page, PageSize: envelope.PageSize}
	switch {
	case envelope.Data != nil:
		list.Items = envelope.Data
	case envelope.Items != nil:
		list.Items = envelope.Items
	default:
		list.Items = envelope.Media
	}
	if list.Total == 0 {
		list.Total = len(list.Items)
	}
	return list, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
