package recognition

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/Ibraz94/fleetbold-expenses/pkg/config"

	"github.com/Role1776/gigago"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const extractionInstruction = `You are a document recognition engine for a vehicle fleet expense system.
You receive receipts, toll notices, traffic tickets, cleaning and damage invoices.
Extract the document content and reply with ONLY a valid JSON object, no markdown, no commentary:
{
  "text": "full recognized text of the document",
  "fields": {
    "amount": {"value": "$12.34", "confidence": 0-100},
    "vendor": {"value": "vendor name", "confidence": 0-100},
    "date": {"value": "YYYY-MM-DD", "confidence": 0-100},
    "type": {"value": "toll|ticket|cleaning|damage|other", "confidence": 0-100}
  }
}
Omit a field entirely when the document does not contain it. Never invent values.
Confidence reflects how certain you are the value is literally present in the document.`

// GigaChatRecognizer recognizes documents through the GigaChat API: images
// and PDFs go through the Vision file-attachment path, textual documents are
// sent inline.
type GigaChatRecognizer struct {
	client     *gigago.Client
	model      *gigago.GenerativeModel
	cfg        *config.RecognitionConfig
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
	oauthURL   string

	mu          sync.Mutex
	accessToken string
}

const defaultOAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"

func NewGigaChatRecognizer(ctx context.Context, cfg *config.RecognitionConfig, logger *zap.Logger) (*GigaChatRecognizer, error) {
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel("GigaChat")
	model.SystemInstruction = extractionInstruction
	model.Temperature = 0.1

	httpClient := &http.Client{}
	if cfg.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	accessToken, err := getAccessToken(ctx, defaultOAuthURL, cfg, httpClient, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	return &GigaChatRecognizer{
		client:      client,
		model:       model,
		cfg:         cfg,
		logger:      logger,
		httpClient:  httpClient,
		accessToken: accessToken,
		baseURL:     "https://gigachat.devices.sberbank.ru/api/v1",
		oauthURL:    defaultOAuthURL,
	}, nil
}

func (r *GigaChatRecognizer) token() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accessToken
}

// refreshAccessToken replaces the bearer token after the API rejected it.
func (r *GigaChatRecognizer) refreshAccessToken(ctx context.Context) error {
	token, err := getAccessToken(ctx, r.oauthURL, r.cfg, r.httpClient, r.logger)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.accessToken = token
	r.mu.Unlock()
	return nil
}

// doAuthorized posts the body with the current bearer token. Tokens expire
// server-side; a 401 triggers one refresh and one retry.
func (r *GigaChatRecognizer) doAuthorized(ctx context.Context, url, contentType string, body []byte) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+r.token())

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusUnauthorized || attempt > 0 {
			return resp, nil
		}

		resp.Body.Close()
		r.logger.Warn("GigaChat rejected access token, refreshing", zap.String("url", url))
		if err := r.refreshAccessToken(ctx); err != nil {
			return nil, fmt.Errorf("request got 401 and token refresh failed: %w", err)
		}
	}
}

func (r *GigaChatRecognizer) Close() {
	if r.client != nil {
		r.client.Close()
	}
}

func (r *GigaChatRecognizer) Recognize(ctx context.Context, doc Document) (*Result, error) {
	var content string
	var err error

	switch doc.MIME {
	case "text/csv", "text/plain":
		content, err = r.recognizeText(ctx, string(doc.Data))
	default:
		content, err = r.recognizeAttachment(ctx, doc)
	}
	if err != nil {
		return nil, err
	}

	payload, err := parseExtraction(content)
	if err != nil {
		return nil, fmt.Errorf("unusable recognition payload: %w", err)
	}

	text := strings.TrimSpace(payload.Text)
	result := &Result{
		Backend: BackendGigaChat,
		Text:    text,
		HTML:    MarkupText(text),
		Fields:  payload.Fields,
	}

	r.logger.Info("gigachat recognition completed",
		zap.String("file", doc.Name),
		zap.Int("text_length", len(text)),
		zap.Int("fields", len(payload.Fields)),
	)
	return result, nil
}

func (r *GigaChatRecognizer) recognizeText(ctx context.Context, text string) (string, error) {
	prompt := "Recognize this document and reply with the JSON object described in your instructions.\n\nDocument:\n" + text
	resp, err := r.model.Generate(ctx, []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// recognizeAttachment uploads the file and runs a Vision chat completion with
// the uploaded file attached.
func (r *GigaChatRecognizer) recognizeAttachment(ctx context.Context, doc Document) (string, error) {
	fileID, err := r.uploadFile(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	prompt := "Recognize the attached document and reply with the JSON object described below.\n\n" + extractionInstruction
	requestBody := map[string]interface{}{
		"model": "GigaChat",
		"messages": []map[string]interface{}{
			{
				"role":        "user",
				"content":     prompt,
				"attachments": [][]string{{fileID}},
			},
		},
		"temperature": 0.1,
		"stream":      false,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := r.doAuthorized(ctx, r.baseURL+"/chat/completions", "application/json", jsonData)
	if err != nil {
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("vision request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode vision response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no response from vision API")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// uploadFile pushes document bytes to the GigaChat Files API and returns the
// file id usable as a chat attachment.
func (r *GigaChatRecognizer) uploadFile(ctx context.Context, doc Document) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("purpose", "general"); err != nil {
		return "", fmt.Errorf("failed to write purpose field: %w", err)
	}

	part, err := writer.CreatePart(map[string][]string{
		"Content-Type":        {doc.MIME},
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, doc.Name)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	resp, err := r.doAuthorized(ctx, r.baseURL+"/files", writer.FormDataContentType(), body.Bytes())
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var uploadResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	r.logger.Info("file uploaded to GigaChat", zap.String("file_id", uploadResp.ID))
	return uploadResp.ID, nil
}

// getAccessToken obtains an OAuth token for the Files and Vision endpoints.
// The configured API key is already Base64-encoded per the GigaChat docs.
func getAccessToken(ctx context.Context, oauthURL string, cfg *config.RecognitionConfig, httpClient *http.Client, logger *zap.Logger) (string, error) {
	rqUID := uuid.New().String()

	formData := url.Values{}
	formData.Set("scope", cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, "POST", oauthURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create OAuth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", rqUID)
	req.Header.Set("Authorization", "Basic "+cfg.APIKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		logger.Error("OAuth request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("rq_uid", rqUID),
		)
		return "", fmt.Errorf("OAuth failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var oauthResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&oauthResp); err != nil {
		return "", fmt.Errorf("failed to decode OAuth response: %w", err)
	}
	if oauthResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token in OAuth response")
	}

	logger.Info("Access token obtained", zap.Int("expires_in", oauthResp.ExpiresIn))
	return oauthResp.AccessToken, nil
}
