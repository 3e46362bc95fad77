package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"photo-rater/internal/logging"
	"photo-rater/internal/rating"
)

// looseString accepts a JSON string or number. Clients send ratings and
// partitions either way.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = looseString(num.String())
	return nil
}

// RateRequest is the body of POST /rate_image.
type RateRequest struct {
	ImageName string      `json:"image_name"`
	Rating    looseString `json:"rating"`
	Partition looseString `json:"partition"`
}

// GetUnratedImages returns the next batch of images for the caller
func (h *Handlers) GetUnratedImages(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	user := UserFromContext(r.Context())

	items, err := h.ratings.NextBatch(user, h.ratings.BatchSize(), h.now())
	if err != nil {
		logging.Error("Failed to load unrated images: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to load unrated images")
		return
	}

	logging.Info("Sent %d unrated images to %s in %v", len(items), user, time.Since(start))
	writeJSONStatus(w, http.StatusOK, items)
}

// ServeImage sends the thumbnail, the original or a compressed copy of an
// unrated image
func (h *Handlers) ServeImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	partition, filename := vars["partition"], vars["filename"]

	img, err := h.ratings.ResolveImage(partition, filename)
	switch {
	case errors.Is(err, rating.ErrNotFound):
		logging.Info("Image not found: %s in partition %s", filename, partition)
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	case errors.Is(err, rating.ErrQuarantined):
		logging.Warn("Image %s/%s quarantined: %v", partition, filename, err)
		http.Error(w, "image cannot be served", http.StatusUnprocessableEntity)
		return
	case err != nil:
		logging.Error("Failed to serve image %s/%s: %v", partition, filename, err)
		http.Error(w, "Failed to serve image", http.StatusInternalServerError)
		return
	}

	logging.Debug("Serving %s image %s/%s", img.Source, partition, filename)

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "private, no-cache")
	if img.Path != "" {
		http.ServeFile(w, r, img.Path)
		return
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img.Data); err != nil {
		logging.Debug("Failed to write image %s/%s: %v", partition, filename, err)
	}
}

// RateImage applies a rating decision for the caller
func (h *Handlers) RateImage(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.Info("Invalid data received for rating an image: %v", err)
		writeResult(w, http.StatusBadRequest, "error", "Invalid data")
		return
	}

	_, err := h.ratings.Rate(r.Context(), rating.Request{
		User:      UserFromContext(r.Context()),
		ImageName: req.ImageName,
		Rating:    string(req.Rating),
		Partition: string(req.Partition),
	})
	switch {
	case errors.Is(err, rating.ErrInvalidRequest):
		logging.Info("Invalid data received for rating an image: %v", err)
		writeResult(w, http.StatusBadRequest, "error", "Invalid data")
		return
	case errors.Is(err, rating.ErrNotFound):
		writeResult(w, http.StatusNotFound, "error", "Image not found")
		return
	case err != nil:
		logging.Error("Failed to rate %s: %v", req.ImageName, err)
		writeResult(w, http.StatusInternalServerError, "error", "Failed to rate image")
		return
	}

	writeResult(w, http.StatusOK, "success",
		"Image "+req.ImageName+" moved to rated "+string(req.Rating)+" folder")
}
