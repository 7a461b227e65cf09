package generate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientGenerateImagesDecodesSlots(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["prompt"] != "a lighthouse" || req["count"] != float64(3) {
			t.Errorf("request = %v", req)
		}
		fmt.Fprintf(w, `{"images":[{"data":%q},{"data":""},{"data":"!!not-base64!!"}]}`,
			base64.StdEncoding.EncodeToString([]byte("img-bytes")))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", "test-key")
	slots, err := c.GenerateImages(context.Background(), "a lighthouse", 3, "1:1", nil)
	if err != nil {
		t.Fatalf("GenerateImages() error = %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("slots = %d, want 3", len(slots))
	}
	if string(slots[0].Data) != "img-bytes" || slots[0].Err != nil {
		t.Errorf("slot 0 = %q, %v", slots[0].Data, slots[0].Err)
	}
	if !errors.Is(slots[1].Err, ErrDecode) {
		t.Errorf("slot 1 error = %v, want ErrDecode", slots[1].Err)
	}
	if !errors.Is(slots[2].Err, ErrDecode) {
		t.Errorf("slot 2 error = %v, want ErrDecode", slots[2].Err)
	}
}

func TestClientClassifiesServiceErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"internal error", http.StatusInternalServerError, ErrServiceUnavailable},
		{"rate limited", http.StatusTooManyRequests, ErrServiceUnavailable},
		{"bad request", http.StatusBadRequest, ErrRemote},
		{"unauthorized", http.StatusUnauthorized, ErrRemote},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "", "", "")
			_, err := c.GenerateImages(context.Background(), "x", 1, "", nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClientSubmitVideoRequiresRequestID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := NewClient("", srv.URL, "", "")
	if _, err := c.SubmitVideo(context.Background(), "x", ""); !errors.Is(err, ErrRemote) {
		t.Errorf("error = %v, want ErrRemote", err)
	}
}

func TestClientPollVideo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantDone bool
		wantURL  string
		wantErr  error
	}{
		{
			name: "not found means still processing",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
		{
			name: "processing",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"status":"processing"}`)
			},
		},
		{
			name: "done",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"status":"done","url":"https://cdn.example.com/out.mp4"}`)
			},
			wantDone: true,
			wantURL:  "https://cdn.example.com/out.mp4",
		},
		{
			name: "explicit failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"error":"content policy"}`)
			},
			wantErr: ErrRemote,
		},
		{
			name: "failed status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"status":"failed"}`)
			},
			wantErr: ErrRemote,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "oops", http.StatusBadGateway)
			},
			wantErr: ErrServiceUnavailable,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient("", "", srv.URL, "")
			status, err := c.PollVideo(context.Background(), "req-1")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("PollVideo() error = %v", err)
			}
			if status.Done != tt.wantDone || status.URL != tt.wantURL {
				t.Errorf("status = %+v, want done=%v url=%q", status, tt.wantDone, tt.wantURL)
			}
		})
	}
}

func TestClientPollVideoPathIncludesRequestID(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"status":"processing"}`)
	}))
	defer srv.Close()

	c := NewClient("", "", srv.URL+"/v1/status/", "")
	if _, err := c.PollVideo(context.Background(), "req-77"); err != nil {
		t.Fatalf("PollVideo() error = %v", err)
	}
	if gotPath != "/v1/status/req-77" {
		t.Errorf("path = %q, want /v1/status/req-77", gotPath)
	}
}
