package apiapp

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	stddraw "image/draw"
	_ "image/jpeg"
	"image/png"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/phillip-england/branchdesk/internal/security"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	uploadsPrefix  = "/uploads/"
	itemImageSize  = 512
	maxImageUpload = 10 << 20
)

// uploadItemImage stores a square, resized PNG for an item and points its
// image_url at it.
func (s *server) uploadItemImage(w http.ResponseWriter, r *http.Request) {
	e := entities["item"]
	id := idFromRequest(r)
	if _, err := s.store.Get(r.Context(), e.Table, id); err != nil {
		if errors.Is(err, errNotFound) {
			writeError(w, http.StatusNotFound, "Item not found")
			return
		}
		log.Printf("image item lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload image")
		return
	}

	raw, _, _, err := parseUploadedFileWithField(r, "image", maxImageUpload, []string{"image/png", "image/jpeg", "image/webp"}, "The image field is required.")
	if err != nil {
		writeValidation(w, fieldErrors{"image": {err.Error()}})
		return
	}
	cropX := parsePositiveInt(r.FormValue("crop_x"), 0)
	cropY := parsePositiveInt(r.FormValue("crop_y"), 0)
	cropSize := parsePositiveInt(r.FormValue("crop_size"), 0)
	optimized, err := processUploadedPhotoBytes(raw, cropX, cropY, cropSize)
	if err != nil {
		writeValidation(w, fieldErrors{"image": {err.Error()}})
		return
	}

	suffix, err := security.RandomToken(6)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to upload image")
		return
	}
	name := fmt.Sprintf("%d-%s.png", id, suffix)
	dir := filepath.Join(s.uploadDir, "items")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("image dir failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload image")
		return
	}
	if err := os.WriteFile(filepath.Join(dir, name), optimized, 0o644); err != nil {
		log.Printf("image write failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload image")
		return
	}

	imageURL := uploadsPrefix + "items/" + name
	if err := s.store.Update(r.Context(), e.Table, id, record{"image_url": imageURL, "updated_at": now()}); err != nil {
		log.Printf("image url update failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload image")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Image uploaded successfully",
		"image_url": imageURL,
	})
}

// processUploadedPhotoBytes crops to a square (centered unless a crop box is
// given) and scales to itemImageSize.
func processUploadedPhotoBytes(raw []byte, cropX, cropY, cropSize int) ([]byte, error) {
	switch http.DetectContentType(raw) {
	case "image/png", "image/jpeg", "image/webp":
	default:
		return nil, errors.New("image must be png, jpeg, or webp")
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		decoded, decodeErr := webp.Decode(bytes.NewReader(raw))
		if decodeErr != nil {
			return nil, errors.New("unable to decode image")
		}
		img = decoded
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, errors.New("invalid image dimensions")
	}

	minDim := min(width, height)
	if cropSize <= 0 || cropSize > minDim {
		cropSize = minDim
		cropX = (width - cropSize) / 2
		cropY = (height - cropSize) / 2
	}
	cropX = max(0, min(cropX, width-cropSize))
	cropY = max(0, min(cropY, height-cropSize))

	cropRect := image.Rect(0, 0, cropSize, cropSize)
	dst := image.NewRGBA(cropRect)
	srcPoint := image.Point{X: bounds.Min.X + cropX, Y: bounds.Min.Y + cropY}
	stddraw.Draw(dst, cropRect, img, srcPoint, stddraw.Src)

	resized := image.NewRGBA(image.Rect(0, 0, itemImageSize, itemImageSize))
	xdraw.CatmullRom.Scale(resized, resized.Bounds(), dst, dst.Bounds(), xdraw.Over, nil)

	var out bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestCompression}
	if err := encoder.Encode(&out, resized); err != nil {
		return nil, errors.New("unable to encode image")
	}
	return out.Bytes(), nil
}
