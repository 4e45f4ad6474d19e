package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/booknook/bookfeed/internal/models"
	"github.com/google/uuid"
)

// Endpoint paths of the books backend
const (
	LoginPath    = "/api/v1/auth/login"
	RegisterPath = "/api/v1/auth/register"
	LogoutPath   = "/api/v1/auth/logout"
	BooksPath    = "/api/v1/books"
	CreatePath   = "/api/v1/mobile"
)

// RequestIDHeader is set on every outgoing request
const RequestIDHeader = "X-Request-ID"

// Client talks to the books backend
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIError is returned for any non-2xx response
type APIError struct {
	StatusCode int
	Message    string // server supplied "message", may be empty
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("received non-2xx status code: %d", e.StatusCode)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string       `json:"accessToken"`
	User        *models.User `json:"data"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	AccessToken string       `json:"accessToken"`
	User        *models.User `json:"user"`
}

// CreateBookRequest is the body of the create endpoint. Rating travels as
// a decimal string and Image is either a data URL or a remote URL.
type CreateBookRequest struct {
	Name    string `json:"name"`
	Caption string `json:"caption"`
	Author  string `json:"author"`
	Rating  string `json:"rating"`
	Image   string `json:"image"`
}

type booksResponse struct {
	Data []models.Book `json:"data"`
}

// Login posts credentials and returns the token and user
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, LoginPath, "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and returns the token and user
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var resp RegisterResponse
	if err := c.do(ctx, http.MethodPost, RegisterPath, "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout ends the session on the backend. token may be empty.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, LogoutPath, token, nil, nil)
}

// ListBooks fetches the whole feed in server order
func (c *Client) ListBooks(ctx context.Context) ([]models.Book, error) {
	var resp booksResponse
	if err := c.do(ctx, http.MethodGet, BooksPath, "", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []models.Book{}, nil
	}
	return resp.Data, nil
}

// CreateBook posts a new recommendation and returns the stored book
func (c *Client) CreateBook(ctx context.Context, token string, req CreateBookRequest) (*models.Book, error) {
	var book models.Book
	if err := c.do(ctx, http.MethodPost, CreatePath, token, req, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create new request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	slog.Debug("API request", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil {
		apiErr.Message = payload.Message
	}
	return apiErr
}
