package generate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client talks to the remote generation service. Image generation is a single
// synchronous call; video generation is submit-then-poll against a status
// endpoint keyed by request id.
type Client struct {
	httpClient     *http.Client
	imageURL       string
	videoSubmitURL string
	videoStatusURL string
	apiKey         string
}

// NewClient builds a Client for the given endpoints. The HTTP client carries
// no overall timeout; call deadlines come from the caller's context.
func NewClient(imageURL, videoSubmitURL, videoStatusURL, apiKey string) *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: 0},
		imageURL:       imageURL,
		videoSubmitURL: videoSubmitURL,
		videoStatusURL: strings.TrimRight(videoStatusURL, "/"),
		apiKey:         apiKey,
	}
}

type imageRequest struct {
	Prompt      string `json:"prompt"`
	Count       int    `json:"count"`
	AspectRatio string `json:"aspect_ratio"`
	EditImage   string `json:"edit_image,omitempty"`
}

type imageResponse struct {
	Images []struct {
		Data string `json:"data"`
	} `json:"images"`
}

// ImageSlot is one position in a batch response. Data is nil when the remote
// returned nothing for the slot.
type ImageSlot struct {
	Data []byte
	Err  error
}

// GenerateImages requests count images for the prompt and returns one slot per
// requested position. A slot-level decode problem is recorded on the slot, not
// returned as a call error; only transport and service failures fail the call.
func (c *Client) GenerateImages(ctx context.Context, prompt string, count int, aspectRatio string, editImage []byte) ([]ImageSlot, error) {
	req := imageRequest{Prompt: prompt, Count: count, AspectRatio: aspectRatio}
	if len(editImage) > 0 {
		req.EditImage = base64.StdEncoding.EncodeToString(editImage)
	}

	var resp imageResponse
	if err := c.postJSON(ctx, c.imageURL, req, &resp); err != nil {
		return nil, err
	}

	slots := make([]ImageSlot, count)
	for i := range slots {
		if i >= len(resp.Images) || resp.Images[i].Data == "" {
			slots[i].Err = Wrap(ErrDecode, "image", fmt.Sprintf("slot %d: no image returned", i), nil)
			continue
		}
		data, err := base64.StdEncoding.DecodeString(resp.Images[i].Data)
		if err != nil {
			slots[i].Err = Wrap(ErrDecode, "image", fmt.Sprintf("slot %d: invalid base64", i), err)
			continue
		}
		slots[i].Data = data
	}
	return slots, nil
}

type videoSubmitRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
}

type videoSubmitResponse struct {
	RequestID string `json:"request_id"`
}

// SubmitVideo starts a video generation and returns the remote request id used
// for subsequent status polls.
func (c *Client) SubmitVideo(ctx context.Context, prompt, aspectRatio string) (string, error) {
	var resp videoSubmitResponse
	if err := c.postJSON(ctx, c.videoSubmitURL, videoSubmitRequest{Prompt: prompt, AspectRatio: aspectRatio}, &resp); err != nil {
		return "", err
	}
	if resp.RequestID == "" {
		return "", Wrap(ErrRemote, "video submit", "response missing request_id", nil)
	}
	return resp.RequestID, nil
}

// PollStatus is a single status check outcome.
type PollStatus struct {
	Done bool
	URL  string
}

type videoStatusResponse struct {
	Status string `json:"status"`
	URL    string `json:"url"`
	Error  string `json:"error"`
}

// PollVideo checks a pending request once. A 404 from the status endpoint
// means the request has not materialized yet and is treated as still
// processing, not as a failure.
func (c *Client) PollVideo(ctx context.Context, requestID string) (PollStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.videoStatusURL+"/"+requestID, nil)
	if err != nil {
		return PollStatus{}, Wrap(ErrRemote, "video status", "build request", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PollStatus{}, Wrap(ErrServiceUnavailable, "video status", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return PollStatus{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return PollStatus{}, serviceError("video status", resp)
	}

	var body videoStatusResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return PollStatus{}, Wrap(ErrRemote, "video status", "decode response", err)
	}
	if body.Error != "" || strings.EqualFold(body.Status, "failed") {
		msg := body.Error
		if msg == "" {
			msg = "generation failed"
		}
		return PollStatus{}, Wrap(ErrRemote, "video status", msg, nil)
	}
	if body.URL != "" {
		return PollStatus{Done: true, URL: body.URL}, nil
	}
	return PollStatus{}, nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload, out any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return Wrap(ErrRemote, "request", "encode payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return Wrap(ErrRemote, "request", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Wrap(ErrServiceUnavailable, "request", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serviceError("request", resp)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 256<<20)).Decode(out); err != nil {
		return Wrap(ErrRemote, "request", "decode response", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("User-Agent", "gen-gallery")
}

// serviceError classifies a non-2xx response. 5xx and 429 indicate the
// service itself is struggling; other codes are remote rejections.
func serviceError(operation string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("status %d", resp.StatusCode)
	if len(bytes.TrimSpace(snippet)) > 0 {
		msg = fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return Wrap(ErrServiceUnavailable, operation, msg, nil)
	}
	return Wrap(ErrRemote, operation, msg, nil)
}
