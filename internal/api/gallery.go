/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/media"
	"github.com/friendsincode/ministry_platform/internal/models"
)

// receiveUpload stores the multipart "file" field for the form's brand.
func (a *API) receiveUpload(w http.ResponseWriter, r *http.Request) (*media.Stored, bool) {
	if a.media == nil {
		writeError(w, http.StatusServiceUnavailable, "media_unavailable")
		return nil, false
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_multipart")
		return nil, false
	}
	brandID := strings.TrimSpace(r.FormValue("brand_id"))
	if brandID == "" {
		writeError(w, http.StatusBadRequest, "brand_id_required")
		return nil, false
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file_required")
		return nil, false
	}
	defer file.Close()

	stored, err := a.media.Upload(r.Context(), brandID, file)
	switch {
	case errors.Is(err, media.ErrEmptyFile):
		writeError(w, http.StatusBadRequest, "empty_file")
	case errors.Is(err, media.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file_too_large")
	case errors.Is(err, media.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_type")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "storage_error")
	default:
		return stored, true
	}
	return nil, false
}

func (a *API) handleGalleryUpload(w http.ResponseWriter, r *http.Request) {
	stored, ok := a.receiveUpload(w, r)
	if !ok {
		return
	}

	img := models.GalleryImage{
		ID:          uuid.NewString(),
		BrandID:     strings.TrimSpace(r.FormValue("brand_id")),
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: r.FormValue("description"),
		ImageURL:    stored.URL,
		StorageKey:  stored.Key,
	}
	if img.Title == "" {
		img.Title = "Untitled"
	}
	if eventID := strings.TrimSpace(r.FormValue("event_id")); eventID != "" {
		img.EventID = &eventID
	}

	if err := a.db.WithContext(r.Context()).Create(&img).Error; err != nil {
		_ = a.media.Delete(r.Context(), stored.Key)
		a.dbFailure(w, err, "create gallery image")
		return
	}
	a.publishAuditEvent(r, events.EventAuditContentCreate, events.Payload{
		"brand_id":      img.BrandID,
		"resource_type": "gallery_image",
		"resource_id":   img.ID,
		"storage_key":   img.StorageKey,
	})
	writeJSON(w, http.StatusOK, img)
}

func (a *API) handleBannerUpload(w http.ResponseWriter, r *http.Request) {
	pageType := r.FormValue("page_type")
	if !models.ValidPageType(pageType) {
		writeError(w, http.StatusBadRequest, "invalid_page_type")
		return
	}
	stored, ok := a.receiveUpload(w, r)
	if !ok {
		return
	}

	banner := models.PageBanner{
		ID:         uuid.NewString(),
		BrandID:    strings.TrimSpace(r.FormValue("brand_id")),
		PageType:   pageType,
		Title:      r.FormValue("title"),
		Subtitle:   r.FormValue("subtitle"),
		ImageURL:   stored.URL,
		StorageKey: stored.Key,
		IsActive:   true,
	}
	if err := a.db.WithContext(r.Context()).Create(&banner).Error; err != nil {
		_ = a.media.Delete(r.Context(), stored.Key)
		a.dbFailure(w, err, "create page banner")
		return
	}
	a.publishAuditEvent(r, events.EventAuditContentCreate, events.Payload{
		"brand_id":      banner.BrandID,
		"resource_type": "page_banner",
		"resource_id":   banner.ID,
		"storage_key":   banner.StorageKey,
	})
	writeJSON(w, http.StatusOK, banner)
}

// handleGalleryDelete removes the row and any uploaded file behind it.
func (a *API) handleGalleryDelete(w http.ResponseWriter, r *http.Request) {
	db := a.db.WithContext(r.Context())
	var img models.GalleryImage
	if err := db.First(&img, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
		a.dbFailure(w, err, "get gallery image")
		return
	}
	if err := db.Delete(&img).Error; err != nil {
		a.dbFailure(w, err, "delete gallery image")
		return
	}
	if img.StorageKey != "" && a.media != nil {
		if err := a.media.Delete(r.Context(), img.StorageKey); err != nil {
			a.logger.Warn().Err(err).Str("key", img.StorageKey).Msg("gallery file left behind")
		}
	}
	a.publishAuditEvent(r, events.EventAuditContentDelete, events.Payload{
		"brand_id":      img.BrandID,
		"resource_type": "gallery_image",
		"resource_id":   img.ID,
	})
	deleted(w, "Image")
}
