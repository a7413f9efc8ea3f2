package listbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/time/rate"
)

// ShiftStatus is the upstream lifecycle state of a review shift.
type ShiftStatus string

const (
	ShiftStatusRunning   ShiftStatus = "Running"
	ShiftStatusCompleted ShiftStatus = "Completed"
	ShiftStatusExpired   ShiftStatus = "Expired"
)

// SubmissionStatus is the upstream review state of a submission.
type SubmissionStatus string

const (
	SubmissionStatusUnderConsideration SubmissionStatus = "UnderConsideration"
	SubmissionStatusAccepted           SubmissionStatus = "Accepted"
	SubmissionStatusDenied             SubmissionStatus = "Denied"
)

// ListKind selects between the classic and platformer demon lists, which
// live under different API prefixes.
type ListKind string

const (
	ListClassic    ListKind = "aredl"
	ListPlatformer ListKind = "arepl"
)

// AredlUser is an upstream list account. DiscordID is empty when the
// account isn't linked to Discord.
type AredlUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	DiscordID  string `json:"discord_id,omitempty"`
}

// AredlLevel is a list level, as returned by the levels endpoint.
type AredlLevel struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Position int     `json:"position"`
	Points   float64 `json:"points"`
	Legacy   bool    `json:"legacy"`
	LevelID  int64   `json:"level_id"`
}

// AredlShift is a review shift with its resolved owner, as returned by
// the shifts listing endpoint.
type AredlShift struct {
	ID             string      `json:"id"`
	User           AredlUser   `json:"user"`
	TargetCount    int         `json:"target_count"`
	CompletedCount int         `json:"completed_count"`
	StartAt        time.Time   `json:"start_at"`
	EndAt          time.Time   `json:"end_at"`
	Status         ShiftStatus `json:"status"`
}

// AredlSubmission is a submission row from the submissions listing
// endpoint.
type AredlSubmission struct {
	ID        string           `json:"id"`
	LevelID   string           `json:"level_id"`
	Status    SubmissionStatus `json:"status"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Page is one page of an upstream paginated listing.
type Page[T any] struct {
	Data    []T `json:"data"`
	Pages   int `json:"pages"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// APIResponse is the uniform result of an upstream REST call. Send never
// returns a Go error: transport failures surface as Error=true with
// status 500, matching upstream error responses.
type APIResponse struct {
	Error   bool            `json:"error"`
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// Err converts an error response into a Go error, for callers that want
// to abort on upstream-lookup faults.
func (r *APIResponse) Err() error {
	if !r.Error {
		return nil
	}
	return fmt.Errorf("upstream error (status %d): %s", r.Status, r.Message)
}

// AredlAPI is the upstream REST surface consumed by notification
// handlers and scheduled tasks. AredlClient implements it against the
// real API; tests substitute a stub.
type AredlAPI interface {
	// Send issues a request and always resolves to a response,
	// never a Go error.
	Send(
		ctx context.Context,
		path string,
		method string,
		query url.Values,
		body any,
	) *APIResponse

	User(ctx context.Context, userID string) (*AredlUser, error)
	Level(ctx context.Context, list ListKind, levelID string) (*AredlLevel, error)
	Shifts(ctx context.Context, query url.Values) (*Page[AredlShift], error)
	Submissions(ctx context.Context, list ListKind, status SubmissionStatus) (
		*Page[AredlSubmission],
		error,
	)
}

// AredlClient talks to the upstream list REST API. Outbound calls are
// rate limited; authorization uses the same bearer credential as the
// notification websocket.
type AredlClient struct {
	config     *AredlConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewAredlClient creates an AredlClient from the given config.
func NewAredlClient(config *AredlConfig, handler slog.Handler) *AredlClient {
	httpClient := config.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultAredlRequestsPerSecond
	}
	return &AredlClient{
		config:     config,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		logger:     slog.New(handler).With(loggerNameKey, "aredl"),
	}
}

func (c *AredlClient) Send(
	ctx context.Context,
	path string,
	method string,
	query url.Values,
	body any,
) *APIResponse {
	if err := c.limiter.Wait(ctx); err != nil {
		return &APIResponse{
			Error:   true,
			Status:  http.StatusInternalServerError,
			Message: err.Error(),
		}
	}

	requestURL := strings.TrimSuffix(c.config.BaseURL, "/") + path
	if len(query) > 0 {
		requestURL = fmt.Sprintf("%s?%s", requestURL, query.Encode())
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &APIResponse{
				Error:   true,
				Status:  http.StatusInternalServerError,
				Message: fmt.Sprintf("error encoding request body: %s", err),
			}
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return &APIResponse{
			Error:   true,
			Status:  http.StatusInternalServerError,
			Message: err.Error(),
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.Token))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "request failed", tint.Err(err), "url", requestURL)
		return &APIResponse{
			Error:   true,
			Status:  http.StatusInternalServerError,
			Message: "failed to fetch data from the server",
		}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	rv := &APIResponse{
		Status: resp.StatusCode,
		Error:  resp.StatusCode < 200 || resp.StatusCode > 299,
	}

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		rv.Error = true
		rv.Message = err.Error()
		return rv
	}

	contentType := resp.Header.Get("Content-Type")
	switch {
	case len(responseBody) == 0:
		rv.Message = "empty response"
	case strings.Contains(contentType, "application/json"):
		if rv.Error {
			var upstream struct {
				Message string `json:"message"`
			}
			if unmarshalErr := json.Unmarshal(responseBody, &upstream); unmarshalErr == nil {
				rv.Message = upstream.Message
			}
		}
		rv.Data = responseBody
	default:
		rv.Message = string(responseBody)
	}

	c.logger.DebugContext(
		ctx,
		"request completed",
		"method", method,
		"url", requestURL,
		"status", resp.StatusCode,
	)
	return rv
}

// apiGet issues a GET and decodes a successful JSON response into T.
func apiGet[T any](
	ctx context.Context,
	c *AredlClient,
	path string,
	query url.Values,
) (*T, error) {
	resp := c.Send(ctx, path, http.MethodGet, query, nil)
	if err := resp.Err(); err != nil {
		return nil, err
	}
	var rv T
	if err := json.Unmarshal(resp.Data, &rv); err != nil {
		return nil, fmt.Errorf("error decoding %s response: %w", path, err)
	}
	return &rv, nil
}

func (c *AredlClient) User(ctx context.Context, userID string) (
	*AredlUser,
	error,
) {
	return apiGet[AredlUser](ctx, c, fmt.Sprintf("/users/%s", userID), nil)
}

func (c *AredlClient) Level(
	ctx context.Context,
	list ListKind,
	levelID string,
) (*AredlLevel, error) {
	return apiGet[AredlLevel](
		ctx,
		c,
		fmt.Sprintf("/%s/levels/%s", list, levelID),
		nil,
	)
}

func (c *AredlClient) Shifts(ctx context.Context, query url.Values) (
	*Page[AredlShift],
	error,
) {
	return apiGet[Page[AredlShift]](ctx, c, "/shifts", query)
}

func (c *AredlClient) Submissions(
	ctx context.Context,
	list ListKind,
	status SubmissionStatus,
) (*Page[AredlSubmission], error) {
	query := url.Values{}
	query.Set("per_page", "999")
	query.Set("status_filter", string(status))
	return apiGet[Page[AredlSubmission]](
		ctx,
		c,
		fmt.Sprintf("/%s/submissions", list),
		query,
	)
}
