// Package client is a typed SDK for the external auth/profile/AI backend.
// Every authenticated call carries the bearer token of the acting user; the
// gateway holds one Client and passes the token per call.
package client

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
	"strconv"
	"strings"
	"time"

	"github.com/diploy/competency-gateway/internal/models"
)

// ErrUnauthenticated is returned when the backend rejects the token (401).
// Callers must translate it into a redirect to login, never an inline error.
var ErrUnauthenticated = errors.New("unauthenticated")

// Client is a Go SDK for the competency backend API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new backend client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Token is the bearer token issued at login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// envelope is the {success, message, data} wrapper the AI endpoints use.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// --- Auth ---

// Login exchanges credentials for a bearer token. The backend follows the
// OAuth2 password flow and expects form fields named username and password.
func (c *Client) Login(ctx context.Context, email, password string) (*Token, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	body, err := c.do(ctx, http.MethodPost, "/login", "", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

// Register creates a new account from the profile seed fields.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	_, err = c.do(ctx, http.MethodPost, "/register", "", bytes.NewReader(payload), "application/json")
	return err
}

// --- Profile ---

// GetProfile retrieves the full profile of the token's owner.
func (c *Client) GetProfile(ctx context.Context, token string) (*models.Profile, error) {
	body, err := c.do(ctx, http.MethodGet, "/profile/", token, nil, "")
	if err != nil {
		return nil, err
	}

	var profile models.Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &profile, nil
}

// UpdateProfile replaces the rewritable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, token string, update models.ProfileUpdate) (*models.Profile, error) {
	payload, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPut, "/profile/", token, bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}

	var profile models.Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &profile, nil
}

// AddEducation appends an education entry.
func (c *Client) AddEducation(ctx context.Context, token string, edu models.Education) (*models.Education, error) {
	payload, err := json.Marshal(edu)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/profile/education", token, bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}

	var saved models.Education
	if err := json.Unmarshal(body, &saved); err != nil {
		return nil, fmt.Errorf("failed to unmarshal education: %w", err)
	}
	return &saved, nil
}

// DeleteEducation removes an education entry by id.
func (c *Client) DeleteEducation(ctx context.Context, token string, id int) error {
	_, err := c.do(ctx, http.MethodDelete, "/profile/education/"+strconv.Itoa(id), token, nil, "")
	return err
}

// AddExperience appends a work experience entry.
func (c *Client) AddExperience(ctx context.Context, token string, exp models.Experience) (*models.Experience, error) {
	payload, err := json.Marshal(exp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/profile/experience", token, bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}

	var saved models.Experience
	if err := json.Unmarshal(body, &saved); err != nil {
		return nil, fmt.Errorf("failed to unmarshal experience: %w", err)
	}
	return &saved, nil
}

// DeleteExperience removes a work experience entry by id.
func (c *Client) DeleteExperience(ctx context.Context, token string, id int) error {
	_, err := c.do(ctx, http.MethodDelete, "/profile/experience/"+strconv.Itoa(id), token, nil, "")
	return err
}

// CertificationUpload carries certification metadata plus the proof file.
type CertificationUpload struct {
	Name        string
	Organizer   string
	Year        int
	Description string
	Expertise   string
	FileName    string
	File        io.Reader
}

// AddCertification uploads a certification with its proof file as multipart
// form data.
func (c *Client) AddCertification(ctx context.Context, token string, cert CertificationUpload) (*models.Certification, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := map[string]string{
		"name":            cert.Name,
		"organizer":       cert.Organizer,
		"year":            strconv.Itoa(cert.Year),
		"description":     cert.Description,
		"bidang_keahlian": cert.Expertise,
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write form field: %w", err)
		}
	}

	if cert.File != nil {
		fw, err := mw.CreateFormFile("file", cert.FileName)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(fw, cert.File); err != nil {
			return nil, fmt.Errorf("failed to copy file: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/profile/certification", token, &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var saved models.Certification
	if err := json.Unmarshal(body, &saved); err != nil {
		return nil, fmt.Errorf("failed to unmarshal certification: %w", err)
	}
	return &saved, nil
}

// DeleteCertification removes a certification entry by id.
func (c *Client) DeleteCertification(ctx context.Context, token string, id int) error {
	_, err := c.do(ctx, http.MethodDelete, "/profile/certification/"+strconv.Itoa(id), token, nil, "")
	return err
}

// UploadAvatar replaces the profile photo.
func (c *Client) UploadAvatar(ctx context.Context, token, fileName string, file io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fw, file); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/profile/avatar", token, &buf, mw.FormDataContentType())
	if err != nil {
		return "", err
	}

	var result struct {
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal avatar response: %w", err)
	}
	return result.AvatarURL, nil
}

// DeleteAvatar removes the profile photo.
func (c *Client) DeleteAvatar(ctx context.Context, token string) error {
	_, err := c.do(ctx, http.MethodDelete, "/profile/avatar", token, nil, "")
	return err
}

// --- AI interview ---

// StartInterview opens an interview session and returns the opening AI turn.
func (c *Client) StartInterview(ctx context.Context, token string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/ai/interview/start", token, nil, "")
	if err != nil {
		return "", err
	}
	return decodeAnswer(body)
}

// SendInterview sends one chat turn and returns the AI reply text.
func (c *Client) SendInterview(ctx context.Context, token, prompt string) (string, error) {
	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/ai/interview", token, bytes.NewReader(payload), "application/json")
	if err != nil {
		return "", err
	}
	return decodeAnswer(body)
}

func decodeAnswer(body []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !env.Success {
		return "", fmt.Errorf("backend error: %s", env.Message)
	}

	var data struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("failed to unmarshal answer: %w", err)
	}
	return data.Answer, nil
}

// ChatHistory replays the persisted transcript, oldest first.
func (c *Client) ChatHistory(ctx context.Context, token string) ([]models.ChatLog, error) {
	body, err := c.do(ctx, http.MethodGet, "/ai/history", token, nil, "")
	if err != nil {
		return nil, err
	}

	var logs []models.ChatLog
	if err := json.Unmarshal(body, &logs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	return logs, nil
}

// GenerateQuestions requests a question set for an (area, level) pair. The
// structural validity of the set is the caller's concern.
func (c *Client) GenerateQuestions(ctx context.Context, token, area string, level int) (*models.QuestionSet, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"area_fungsi":      area,
		"level_kompetensi": level,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/ai/questions", token, bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("backend error: %s", env.Message)
	}

	var set models.QuestionSet
	if err := json.Unmarshal(env.Data, &set); err != nil {
		return nil, fmt.Errorf("failed to unmarshal question set: %w", err)
	}
	return &set, nil
}

// SubmitAssessment posts the full answer payload in one request.
func (c *Client) SubmitAssessment(ctx context.Context, token string, req models.SubmissionRequest) (*models.SubmissionAck, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/ai/assessment/submit", token, bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}

	var ack models.SubmissionAck
	if err := json.Unmarshal(body, &ack); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ack: %w", err)
	}
	return &ack, nil
}

// FetchMapping queries the dedicated per-area mapping endpoint. The slice
// preserves the upstream-provided ordering, which the reconciler uses as the
// tie-break.
func (c *Client) FetchMapping(ctx context.Context, token string) ([]models.AreaRecord, error) {
	payload, err := json.Marshal(map[string]string{"prompt": ""})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/ai/mapping", token, bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("backend error: %s", env.Message)
	}

	return decodeAreaRecords(env.Data)
}

// decodeAreaRecords decodes the mapping payload preserving key order. The
// backend returns an object keyed by area name, so the raw JSON is walked
// with a decoder instead of unmarshalling into a map.
func decodeAreaRecords(raw json.RawMessage) ([]models.AreaRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to decode mapping: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("unexpected mapping payload shape")
	}

	var records []models.AreaRecord
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to decode mapping key: %w", err)
		}
		area, _ := keyTok.(string)

		var rec models.AreaRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode area record: %w", err)
		}
		rec.Area = area
		records = append(records, rec)
	}

	return records, nil
}

// --- transport ---

// apiError carries a non-2xx backend response.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// do performs an HTTP request and returns the raw response body.
func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthenticated
	}
	if resp.StatusCode >= 400 {
		return nil, &apiError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}
