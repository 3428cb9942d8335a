/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	database "github.com/friendsincode/ministry_platform/internal/db"
	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/models"
)

func (a *API) handleBrandsList(w http.ResponseWriter, r *http.Request) {
	if brands, ok := a.cache.GetBrandList(r.Context()); ok {
		writeJSON(w, http.StatusOK, brands)
		return
	}

	brands := []models.Brand{}
	if err := a.db.WithContext(r.Context()).Order("name ASC").Limit(100).Find(&brands).Error; err != nil {
		a.dbFailure(w, err, "list brands")
		return
	}
	_ = a.cache.SetBrandList(r.Context(), brands)
	writeJSON(w, http.StatusOK, brands)
}

func (a *API) handleBrandsGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if brand, ok := a.cache.GetBrand(r.Context(), id); ok {
		writeJSON(w, http.StatusOK, brand)
		return
	}

	var brand models.Brand
	if err := a.db.WithContext(r.Context()).First(&brand, "id = ?", id).Error; err != nil {
		a.dbFailure(w, err, "get brand")
		return
	}
	_ = a.cache.SetBrand(r.Context(), &brand)
	writeJSON(w, http.StatusOK, brand)
}

func (a *API) handleBrandsCreate(w http.ResponseWriter, r *http.Request) {
	var brand models.Brand
	if !decode(w, r, &brand) {
		return
	}
	if !validBrand(w, &brand) {
		return
	}
	brand.ID = uuid.NewString()

	db := a.db.WithContext(r.Context())
	var taken int64
	if err := db.Model(&models.Brand{}).Where("domain = ?", brand.Domain).Count(&taken).Error; err != nil {
		a.dbFailure(w, err, "check domain")
		return
	}
	if taken > 0 {
		writeError(w, http.StatusBadRequest, "domain_exists")
		return
	}
	if err := db.Create(&brand).Error; err != nil {
		a.dbFailure(w, err, "create brand")
		return
	}

	a.brandChanged(r, events.EventAuditBrandCreate, &brand)
	writeJSON(w, http.StatusOK, brand)
}

func (a *API) handleBrandsUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	db := a.db.WithContext(r.Context())

	var brand models.Brand
	if err := db.First(&brand, "id = ?", id).Error; err != nil {
		a.dbFailure(w, err, "get brand")
		return
	}
	createdAt := brand.CreatedAt
	if !decode(w, r, &brand) {
		return
	}
	brand.ID = id
	brand.CreatedAt = createdAt
	if !validBrand(w, &brand) {
		return
	}

	var taken int64
	if err := db.Model(&models.Brand{}).Where("domain = ? AND id <> ?", brand.Domain, id).Count(&taken).Error; err != nil {
		a.dbFailure(w, err, "check domain")
		return
	}
	if taken > 0 {
		writeError(w, http.StatusBadRequest, "domain_exists")
		return
	}
	if err := db.Save(&brand).Error; err != nil {
		a.dbFailure(w, err, "update brand")
		return
	}

	a.brandChanged(r, events.EventAuditBrandUpdate, &brand)
	writeJSON(w, http.StatusOK, brand)
}

func (a *API) handleBrandsDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result := a.db.WithContext(r.Context()).Delete(&models.Brand{}, "id = ?", id)
	if result.Error != nil {
		a.dbFailure(w, result.Error, "delete brand")
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	a.bus.Publish(events.EventBrandDeleted, events.Payload{"brand_id": id})
	a.publishAuditEvent(r, events.EventAuditBrandDelete, events.Payload{
		"brand_id":      id,
		"resource_type": "brand",
		"resource_id":   id,
	})
	deleted(w, "Brand")
}

func validBrand(w http.ResponseWriter, b *models.Brand) bool {
	b.Name = strings.TrimSpace(b.Name)
	b.Domain = database.NormalizeDomain(b.Domain)
	if b.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return false
	}
	if b.Domain == "" {
		writeError(w, http.StatusBadRequest, "domain_required")
		return false
	}
	if b.PrimaryColor == "" {
		b.PrimaryColor = models.DefaultPrimaryColor
	}
	if b.SecondaryColor == "" {
		b.SecondaryColor = models.DefaultSecondaryColor
	}
	return true
}

// brandChanged invalidates cached copies here and, through the relay, on
// other instances.
func (a *API) brandChanged(r *http.Request, audit events.EventType, b *models.Brand) {
	if err := a.cache.InvalidateBrand(r.Context(), b.ID); err != nil {
		a.logger.Debug().Err(err).Str("brand_id", b.ID).Msg("brand cache invalidation failed")
	}
	a.bus.Publish(events.EventBrandUpdated, events.Payload{"brand_id": b.ID})
	a.publishAuditEvent(r, audit, events.Payload{
		"brand_id":      b.ID,
		"resource_type": "brand",
		"resource_id":   b.ID,
		"name":          b.Name,
		"domain":        b.Domain,
	})
}
