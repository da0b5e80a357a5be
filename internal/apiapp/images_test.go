package apiapp

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestProcessUploadedPhotoBytesSquaresAndResizes(t *testing.T) {
	out, err := processUploadedPhotoBytes(testPNG(t, 40, 20), 0, 0, 0)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if img.Bounds().Dx() != itemImageSize || img.Bounds().Dy() != itemImageSize {
		t.Fatalf("expected %dx%d, got %v", itemImageSize, itemImageSize, img.Bounds())
	}
}

func TestProcessUploadedPhotoBytesRejectsNonImages(t *testing.T) {
	if _, err := processUploadedPhotoBytes([]byte("plain text, not a picture"), 0, 0, 0); err == nil {
		t.Fatalf("expected error for non-image input")
	}
}

func TestUploadItemImageStoresFileAndURL(t *testing.T) {
	api := newTestAPI(t)
	uploads := api.uploads
	admin := api.admin()
	id := api.mustCreate(admin, "item", map[string]any{"name": "Cake", "category": "cake"})

	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, uploadRequest(t, fmt.Sprintf("/api/item/%d/image", id), admin, "image", "cake.png", testPNG(t, 30, 30)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var out struct {
		ImageURL string `json:"image_url"`
	}
	decodeBody(t, rr, &out)
	if !strings.HasPrefix(out.ImageURL, "/uploads/items/") {
		t.Fatalf("unexpected image url %q", out.ImageURL)
	}
	if _, err := os.Stat(filepath.Join(uploads, "items", filepath.Base(out.ImageURL))); err != nil {
		t.Fatalf("expected stored file: %v", err)
	}

	served := api.do(http.MethodGet, out.ImageURL, "", nil)
	if served.Code != http.StatusOK || served.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("expected image to be served, got %d %q", served.Code, served.Header().Get("Content-Type"))
	}

	var shown struct {
		Item map[string]any `json:"item"`
	}
	decodeBody(t, api.do(http.MethodGet, fmt.Sprintf("/api/item/show/%d", id), admin, nil), &shown)
	if shown.Item["image_url"] != out.ImageURL {
		t.Fatalf("expected image_url to be saved, got %v", shown.Item["image_url"])
	}
}

func TestUploadItemImageUnknownItem(t *testing.T) {
	api := newTestAPI(t)
	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, uploadRequest(t, "/api/item/42/image", api.admin(), "image", "x.png", testPNG(t, 4, 4)))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
