package workflowapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/bmd/internal/common"
	"github.com/dmitrijs2005/bmd/internal/logging"
	"github.com/dmitrijs2005/bmd/internal/server/models"
)

const (
	crateField    = "rocratefile"
	crateFileName = "rocrate.zip"
	bodyPreview   = 2000
)

type ClientConfig struct {
	URL                string
	APIKey             string
	AuthHeader         string
	AuthScheme         string
	WebhookURLTemplate string
	WebhookSecret      string
	DryRun             bool
	Force              bool
	Timeout            time.Duration
}

// Client posts submissions as multipart/form-data.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	logger     logging.Logger
}

func NewClient(cfg ClientConfig, logger logging.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = common.AccessTokenHeaderName
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("module", "workflowapi"),
	}
}

// WebhookURL returns the callback URL handed to the Workflow API. The
// {workflow_id} placeholder is left for the remote side to fill in.
func (c *Client) WebhookURL() string {
	return webhookURL(c.cfg.WebhookURLTemplate, c.cfg.WebhookSecret)
}

func webhookURL(template, secret string) string {
	if template == "" || secret == "" {
		return template
	}
	sep := "?"
	if strings.Contains(template, "?") {
		sep = "&"
	}
	return template + sep + "token=" + url.QueryEscape(secret)
}

func (c *Client) authValue() string {
	if c.cfg.AuthScheme == "" {
		return c.cfg.APIKey
	}
	return c.cfg.AuthScheme + " " + c.cfg.APIKey
}

func (c *Client) encode(s Submission) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	fields := [][2]string{}
	if hook := c.WebhookURL(); hook != "" {
		fields = append(fields, [2]string{"webhook_url", hook})
	}
	fields = append(fields,
		[2]string{"dry_run", strconv.FormatBool(c.cfg.DryRun)},
		[2]string{"force", strconv.FormatBool(c.cfg.Force)},
		[2]string{"param-target_species", s.TargetSpecies},
		[2]string{"param-climate_periods", s.ClimatePeriods},
		[2]string{"param-aoi_wkt", s.AOIWKT},
	)
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, crateField, crateFileName))
	h.Set("Content-Type", "application/zip")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(s.Crate); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return body, mw.FormDataContentType(), nil
}

// Submit posts s and returns the receipt. Every failure is a
// *common.UpstreamError.
func (c *Client) Submit(ctx context.Context, s Submission) (models.SubmitReceipt, error) {
	body, contentType, err := c.encode(s)
	if err != nil {
		return models.SubmitReceipt{}, &common.UpstreamError{Message: err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, body)
	if err != nil {
		return models.SubmitReceipt{}, &common.UpstreamError{Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.APIKey != "" {
		req.Header.Set(c.cfg.AuthHeader, c.authValue())
	}

	c.logger.Info(ctx, "submitting workflow",
		"url", c.cfg.URL,
		"species", s.TargetSpecies,
		"climate_periods", s.ClimatePeriods,
		"crate_bytes", len(s.Crate),
		"authenticated", c.cfg.APIKey != "",
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "workflow api request failed", "error", err)
		return models.SubmitReceipt{}, &common.UpstreamError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.SubmitReceipt{}, &common.UpstreamError{StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}

	preview := string(raw)
	if len(preview) > bodyPreview {
		preview = preview[:bodyPreview]
	}
	c.logger.Info(ctx, "workflow api response", "status", resp.StatusCode, "body", preview)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return models.SubmitReceipt{}, &common.UpstreamError{StatusCode: resp.StatusCode, Message: preview}
	}

	var payload struct {
		WorkflowID string `json:"workflow_id"`
		ID         string `json:"id"`
		Status     string `json:"status"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return models.SubmitReceipt{}, &common.UpstreamError{Message: "invalid JSON response", Err: err}
	}

	receipt := models.SubmitReceipt{WorkflowID: payload.WorkflowID, Status: payload.Status}
	if receipt.WorkflowID == "" {
		receipt.WorkflowID = payload.ID
	}
	if receipt.WorkflowID == "" {
		return models.SubmitReceipt{}, &common.UpstreamError{Message: "response has no workflow_id"}
	}
	if receipt.Status == "" {
		receipt.Status = common.StatusSubmitted
	}

	return receipt, nil
}
