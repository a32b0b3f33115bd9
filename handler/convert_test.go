package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TIANLI0/VoxelKit/config"
	"github.com/TIANLI0/VoxelKit/model"
	"github.com/TIANLI0/VoxelKit/service"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	cfg    *config.Config
	conv   *service.Converter
	router *gin.Engine
}

func newTestServer(t *testing.T, opts ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Upload.UploadDir = t.TempDir()
	cfg.Output.Dir = t.TempDir()
	cfg.Mask.Mode = "luma"
	for _, opt := range opts {
		opt(cfg)
	}

	mr := miniredis.RunT(t)
	cfg.Redis.Addr = mr.Addr()
	redisService := service.NewRedisService(&cfg.Redis)
	t.Cleanup(func() { redisService.Close() })

	source, err := service.NewMaskSource(cfg.Mask)
	require.NoError(t, err)
	conv := service.NewConverter(source, &cfg.Convert)

	r := NewRouter(cfg, BuildInfo{Version: "test"}, NewConvertHandler(cfg, redisService, conv), NewEdgeHandler(cfg))
	return &testServer{cfg: cfg, conv: conv, router: r}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// checkerPNG 3x2，黑色像素为实心
func checkerPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	for i, v := range []uint8{0, 255, 0, 255, 255, 0} {
		img.SetGray(i%3, i/3, color.Gray{Y: v})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, path, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="in.png"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestConvertEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(uploadRequest(t, "/api/v1/convert", "image/png", checkerPNG(t), map[string]string{
		"height":            "5",
		"base_thickness":    "1",
		"background_height": "2",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.ConvertResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, 3, resp.Data.Width)
	assert.Equal(t, 2, resp.Data.Height)
	assert.Equal(t, 3, resp.Data.Solid)
	require.Len(t, resp.Data.Targets, 2)

	fg := resp.Data.Targets[0]
	assert.Equal(t, "foreground", fg.Name)
	assert.Equal(t, 36, fg.Faces)
	assert.Equal(t, model.TargetDone, fg.Status)
	assert.Equal(t, model.Background, resp.Data.Targets[1].Spec.Polarity)

	// generated file is served under the output prefix
	fw := s.do(httptest.NewRequest(http.MethodGet, fg.URL, nil))
	require.Equal(t, http.StatusOK, fw.Code)
	_, tris, err := service.ReadSTL(fw.Body)
	require.NoError(t, err)
	assert.Len(t, tris, 36)

	// upload is cleaned up
	entries, err := os.ReadDir(s.cfg.Upload.UploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// cached lookup
	rw := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/result/"+resp.Data.MD5, nil))
	require.Equal(t, http.StatusOK, rw.Code)
	var cached model.ConvertResponse
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &cached))
	assert.Equal(t, fg.URL, cached.Data.Targets[0].URL)

	// same upload again hits the cache
	w2 := s.do(uploadRequest(t, "/api/v1/convert", "image/png", checkerPNG(t), map[string]string{
		"height":            "5",
		"base_thickness":    "1",
		"background_height": "2",
	}))
	require.Equal(t, http.StatusOK, w2.Code)
	var again model.ConvertResponse
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &again))
	assert.Equal(t, resp.Data.Targets[0].URL, again.Data.Targets[0].URL)

	files, err := filepath.Glob(filepath.Join(s.cfg.Output.Dir, "*.stl"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestConvertEndpointErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name        string
		contentType string
		data        []byte
		fields      map[string]string
		status      int
		kind        string
	}{
		{"bad type", "text/plain", []byte("hi"), nil, http.StatusBadRequest, ""},
		{"bad image", "image/png", []byte("not a png"), nil, http.StatusBadRequest, string(service.KindInvalidImage)},
		{"bad height", "image/png", checkerPNG(t), map[string]string{"height": "abc"}, http.StatusBadRequest, string(service.KindInvalidSpec)},
		{"zero height", "image/png", checkerPNG(t), map[string]string{"height": "0"}, http.StatusBadRequest, string(service.KindInvalidSpec)},
		{"infinite height", "image/png", checkerPNG(t), map[string]string{"height": "Inf"}, http.StatusBadRequest, string(service.KindInvalidSpec)},
		{"huge height", "image/png", checkerPNG(t), map[string]string{"height": "1e39"}, http.StatusBadRequest, string(service.KindInvalidSpec)},
		{"bad mode", "image/png", checkerPNG(t), map[string]string{"mode": "canny"}, http.StatusBadRequest, string(service.KindInvalidSpec)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(uploadRequest(t, "/api/v1/convert", tt.contentType, tt.data, tt.fields))
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			var resp model.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.kind, resp.Kind)
		})
	}
}

func TestConvertEndpointOutputUnwritable(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Output.Dir = filepath.Join(t.TempDir(), "missing")
	})
	w := s.do(uploadRequest(t, "/api/v1/convert", "image/png", checkerPNG(t), nil))
	require.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())

	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(service.KindSerializeIO), resp.Kind)
	require.NotNil(t, resp.Data)
	require.Len(t, resp.Data.Targets, 2)
	assert.Equal(t, model.TargetFailed, resp.Data.Targets[0].Status)
	assert.NotEmpty(t, resp.Data.Targets[0].Error)
	assert.Empty(t, resp.Data.Targets[0].URL)
	assert.Equal(t, model.TargetSkipped, resp.Data.Targets[1].Status)
}

func TestConvertEndpointBusy(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Convert.MaxConcurrent = 1
		cfg.Convert.QueueTimeout = 0
	})

	started := make(chan struct{})
	release := make(chan struct{})
	blocking := service.MaskSourceFunc(func(ctx context.Context, src service.ImageSource) (*model.BinaryMask, error) {
		close(started)
		<-release
		return model.MaskFromRows([][]bool{{true}})
	})
	done := make(chan error, 1)
	go func() {
		_, err := s.conv.WithSource(blocking).Convert(context.Background(), service.ImageSource{}, nil)
		done <- err
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := uploadRequest(t, "/api/v1/convert", "image/png", checkerPNG(t), nil).WithContext(ctx)
	w := s.do(req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())

	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(service.KindBusy), resp.Kind)

	close(release)
	require.NoError(t, <-done)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		kind   service.ErrorKind
		status int
	}{
		{service.KindInvalidImage, http.StatusBadRequest},
		{service.KindInvalidSpec, http.StatusBadRequest},
		{service.KindBusy, http.StatusServiceUnavailable},
		{service.KindCanceled, http.StatusServiceUnavailable},
		{service.KindSerializeIO, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			status, msg := errorStatus(&service.ConversionError{Kind: tt.kind, Err: context.Canceled})
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestConvertEndpointNoBackground(t *testing.T) {
	s := newTestServer(t)
	w := s.do(uploadRequest(t, "/api/v1/convert", "image/png", checkerPNG(t), map[string]string{
		"background_height": "0",
		"invert":            "true",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.ConvertResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Targets, 1)
	assert.Equal(t, 3, resp.Data.Solid)
}

func TestGetResultMissing(t *testing.T) {
	s := newTestServer(t)
	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/result/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, w.Body.String())
}

func TestEdgesEndpoint(t *testing.T) {
	s := newTestServer(t)
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 4; y < 12; y++ {
		for x := 4; x < 12; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	// 方块内部：边缘图为 0，模糊灰度图保持 255
	tests := []struct {
		name   string
		fields map[string]string
		center uint8
	}{
		{"default sobel", nil, 0},
		{"sobel", map[string]string{"process_type": "sobel"}, 0},
		{"grayscale", map[string]string{"process_type": "grayscale"}, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(uploadRequest(t, "/api/v1/edges", "image/png", buf.Bytes(), tt.fields))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

			out, err := png.Decode(w.Body)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 16, 16), out.Bounds())
			assert.Equal(t, tt.center, color.GrayModel.Convert(out.At(8, 8)).(color.Gray).Y)
		})
	}
}
