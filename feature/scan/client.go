package scan

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"metadata-sync/core/model"
	"metadata-sync/core/remote"
	"metadata-sync/core/retry"
	"metadata-sync/core/utils"
)

// Client is the HTTP implementation of Service.
type Client struct {
	http     *remote.Client
	location string
}

var _ Service = (*Client)(nil)

// NewClient creates a scan service client from cfg.
func NewClient(cfg Config) (*Client, error) {
	rc, err := remote.NewClient(remote.Options{
		BaseURL: cfg.Endpoint,
		Token:   cfg.Token,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("scan service: %w", err)
	}
	return &Client{http: rc, location: cfg.Location}, nil
}

type createScanRequest struct {
	ID       string                `json:"id"`
	Table    model.TableDescriptor `json:"table"`
	Location string                `json:"location,omitempty"`
	Type     string                `json:"type"`
}

// GetScan fetches the scan resource of table.
func (c *Client) GetScan(ctx context.Context, table model.TableDescriptor) (*model.ScanResource, error) {
	data, err := c.http.Do(ctx, http.MethodGet, "/v1/scans/"+url.PathEscape(ScanID(table)), nil, nil)
	if err != nil {
		return nil, err
	}
	return parseScan(data, table)
}

// CreateScan creates the profiling scan of table.
func (c *Client) CreateScan(ctx context.Context, table model.TableDescriptor) (*model.ScanResource, error) {
	req := createScanRequest{ID: ScanID(table), Table: table, Location: c.location, Type: "DATA_PROFILE"}
	data, err := c.http.Do(ctx, http.MethodPost, "/v1/scans", nil, req)
	if err != nil {
		return nil, err
	}
	res, err := parseScan(data, table)
	if err != nil {
		return nil, err
	}
	// Creation is asynchronous on some deployments; an empty body means it was accepted.
	if res.ID == "" {
		res.ID = req.ID
		res.State = model.ScanCreating
	}
	return res, nil
}

// RunScan starts a run and returns its job handle.
func (c *Client) RunScan(ctx context.Context, scanID string) (model.JobHandle, error) {
	data, err := c.http.Do(ctx, http.MethodPost, "/v1/scans/"+url.PathEscape(scanID)+":run", nil, struct{}{})
	if err != nil {
		return model.JobHandle{}, err
	}
	id := utils.FirstOf(gjson.ParseBytes(data), "job.id", "jobId", "id").String()
	if id == "" {
		return model.JobHandle{}, retry.Permanent(fmt.Errorf("run of %s returned no job id", scanID))
	}
	return model.JobHandle{ID: id, ScanID: scanID}, nil
}

// GetJob returns the state of a run.
func (c *Client) GetJob(ctx context.Context, job model.JobHandle) (model.ScanState, error) {
	data, err := c.http.Do(ctx, http.MethodGet, "/v1/jobs/"+url.PathEscape(job.ID), nil, nil)
	if err != nil {
		return "", err
	}
	return model.ParseScanState(utils.FirstOf(gjson.ParseBytes(data), "state", "status").String()), nil
}

// GetResult returns the FULL result payload of the latest successful run.
func (c *Client) GetResult(ctx context.Context, scanID string) ([]byte, error) {
	return c.http.Do(ctx, http.MethodGet, "/v1/scans/"+url.PathEscape(scanID)+"/result", url.Values{"view": {"FULL"}}, nil)
}

// parseScan decodes a scan resource. Field names vary between API versions, so each
// attribute is looked up through its known aliases.
func parseScan(data []byte, table model.TableDescriptor) (*model.ScanResource, error) {
	if len(data) > 0 && !gjson.ValidBytes(data) {
		return nil, retry.Permanent(fmt.Errorf("invalid scan resource payload for %s", table))
	}
	doc := gjson.ParseBytes(data)

	res := &model.ScanResource{
		ID:    utils.FirstOf(doc, "id", "name").String(),
		Table: table,
		State: model.ParseScanState(utils.FirstOf(doc, "state", "status").String()),
	}
	if ts, ok := utils.JSONTime(utils.FirstOf(doc, "lastRunTime", "last_run_at", "latestResult.time")); ok {
		res.LastRunAt = &ts
	}
	if jobID := utils.FirstOf(doc, "latestJob.id", "job.id").String(); jobID != "" {
		res.Job = &model.JobHandle{ID: jobID, ScanID: res.ID}
		// A resource that reports only its job state is as far along as that job.
		if js := utils.FirstOf(doc, "latestJob.state", "job.state"); js.Exists() && res.State == model.ScanIdle {
			res.State = model.ParseScanState(js.String())
		}
	}
	return res, nil
}
