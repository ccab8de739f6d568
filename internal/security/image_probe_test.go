package security

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestProbe は静的検証を外し、httptestサーバーへ接続できるImageProbeを返す。
func newTestProbe(ts *httptest.Server, maxSize int64) *ImageProbe {
	return &ImageProbe{
		client:   ts.Client(),
		maxSize:  maxSize,
		validate: func(string) error { return nil },
	}
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestImageProbe_ContentTypeImage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		io.WriteString(w, "jpeg-bytes")
	}))
	defer ts.Close()

	if err := newTestProbe(ts, 1024).Check(context.Background(), ts.URL+"/a.jpg"); err != nil {
		t.Errorf("Check returned error: %v", err)
	}
}

func TestImageProbe_SniffsBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(pngHeader)
	}))
	defer ts.Close()

	if err := newTestProbe(ts, 1024).Check(context.Background(), ts.URL); err != nil {
		t.Errorf("Check returned error: %v", err)
	}
}

func TestImageProbe_NotImage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html><body>hello</body></html>")
	}))
	defer ts.Close()

	err := newTestProbe(ts, 1024).Check(context.Background(), ts.URL)
	if !errors.Is(err, ErrNotImage) {
		t.Errorf("error = %v, want ErrNotImage", err)
	}
}

func TestImageProbe_TooLarge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", "4096")
		w.Write(make([]byte, 4096))
	}))
	defer ts.Close()

	err := newTestProbe(ts, 1024).Check(context.Background(), ts.URL)
	if !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("error = %v, want ErrImageTooLarge", err)
	}
}

func TestImageProbe_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	if err := newTestProbe(ts, 1024).Check(context.Background(), ts.URL); err == nil {
		t.Error("expected error for 404 image URL")
	}
}

// safeurlのクライアントはループバックで起動したhttptestサーバーへの接続を拒否する。
func TestNewImageProbe_BlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
	}))
	defer ts.Close()

	probe := NewImageProbe(2*time.Second, 1024)
	probe.validate = func(string) error { return nil }

	if err := probe.Check(context.Background(), ts.URL); err == nil {
		t.Fatal("expected error for loopback address, got nil")
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://images.example.com/curry.jpg", false},
		{"http://cdn.example.org/a.png", false},
		{"", true},
		{"not-a-url", true},
		{"ftp://example.com/a.png", true},
		{"file:///etc/passwd", true},
		{"javascript:alert(1)", true},
		{"http://localhost/a.png", true},
		{"http://127.0.0.1/a.png", true},
		{"http://10.0.0.1/a.png", true},
		{"http://172.16.0.1/a.png", true},
		{"http://192.168.1.100/a.png", true},
		{"http://169.254.169.254/latest/meta-data/", true},
		{"http://[::1]/a.png", true},
		{"http://[fd00::1]/a.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
