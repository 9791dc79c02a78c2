package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

func TestCompress(t *testing.T) {
	gin.SetMode(gin.TestMode)
	big := strings.Repeat(`{"item":"question text"},`, 200)

	r := gin.New()
	r.Use(Compress(), CacheControl("no-store"))
	r.GET("/big", func(c *gin.Context) { c.String(http.StatusOK, big) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	tests := []struct {
		name           string
		path           string
		acceptEncoding string
		accept         string
		wantBrotli     bool
		wantBody       string
	}{
		{name: "large body compressed", path: "/big", acceptEncoding: "gzip, br", wantBrotli: true, wantBody: big},
		{name: "small body passed through", path: "/small", acceptEncoding: "br", wantBody: "ok"},
		{name: "client without br", path: "/big", acceptEncoding: "gzip", wantBody: big},
		{name: "br refused with q=0", path: "/big", acceptEncoding: "br;q=0", wantBody: big},
		{name: "event stream skipped", path: "/big", acceptEncoding: "br", accept: "text/event-stream", wantBody: big},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("Accept-Encoding", tc.acceptEncoding)
			if tc.accept != "" {
				req.Header.Set("Accept", tc.accept)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if got := w.Header().Get("Cache-Control"); got != "no-store" {
				t.Fatalf("Cache-Control = %q", got)
			}
			isBrotli := w.Header().Get("Content-Encoding") == "br"
			if isBrotli != tc.wantBrotli {
				t.Fatalf("Content-Encoding br = %v, want %v", isBrotli, tc.wantBrotli)
			}

			var body io.Reader = w.Body
			if isBrotli {
				if w.Body.Len() >= len(big) {
					t.Fatalf("compressed size %d not smaller than %d", w.Body.Len(), len(big))
				}
				body = brotli.NewReader(w.Body)
			}
			got, err := io.ReadAll(body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if string(got) != tc.wantBody {
				t.Fatalf("body length %d, want %d", len(got), len(tc.wantBody))
			}
		})
	}
}
