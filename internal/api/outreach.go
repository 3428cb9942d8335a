/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/models"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func (a *API) outreachRoutes(r chi.Router) {
	r.Route("/volunteers", func(r chi.Router) {
		r.With(a.public()).Post("/", a.handleVolunteerApply)
		r.With(a.admin()...).Get("/", a.handleVolunteersList)
		r.With(a.admin()...).Put("/{id}/status", a.handleVolunteerStatus)
	})
	r.Route("/subscribers", func(r chi.Router) {
		r.With(a.public()).Post("/", a.handleSubscribe)
		r.With(a.admin()...).Get("/", a.handleSubscribersList)
	})
	r.Route("/contact", func(r chi.Router) {
		r.With(a.public()).Post("/", a.handleContact)
		r.With(a.admin()...).Get("/", a.handleContactList)
	})
	r.Route("/prayer-requests", func(r chi.Router) {
		r.With(a.public()).Post("/", a.handlePrayerSubmit)
		r.Get("/public", a.handlePrayerWall)
		r.With(a.admin()...).Get("/", a.handlePrayersList)
		r.With(a.admin()...).Put("/{id}/status", a.handlePrayerStatus)
	})
}

// checkContact validates the shared name/email fields of public forms.
func checkContact(w http.ResponseWriter, brandID, name, email string) bool {
	switch {
	case strings.TrimSpace(brandID) == "":
		writeError(w, http.StatusBadRequest, "brand_id_required")
	case strings.TrimSpace(name) == "":
		writeError(w, http.StatusBadRequest, "name_required")
	case strings.TrimSpace(email) == "":
		writeError(w, http.StatusBadRequest, "email_required")
	case !emailPattern.MatchString(strings.TrimSpace(email)):
		writeError(w, http.StatusBadRequest, "invalid_email")
	default:
		return true
	}
	return false
}

func (a *API) handleVolunteerApply(w http.ResponseWriter, r *http.Request) {
	var app models.VolunteerApplication
	if !decode(w, r, &app) || !checkContact(w, app.BrandID, app.Name, app.Email) {
		return
	}
	app.ID = uuid.NewString()
	app.Status = models.VolunteerStatusNew

	if err := a.db.WithContext(r.Context()).Create(&app).Error; err != nil {
		a.dbFailure(w, err, "create volunteer application")
		return
	}

	a.bus.Publish(events.EventVolunteerApplied, events.Payload{
		"brand_id":     app.BrandID,
		"brand_name":   a.brandName(r, app.BrandID),
		"resource_id":  app.ID,
		"name":         app.Name,
		"email":        app.Email,
		"phone":        app.Phone,
		"ministry":     app.Ministry,
		"availability": app.Availability,
		"message":      app.Message,
	})
	writeJSON(w, http.StatusOK, app)
}

func (a *API) handleVolunteersList(w http.ResponseWriter, r *http.Request) {
	apps := []models.VolunteerApplication{}
	q := brandScope(a.db.WithContext(r.Context()), r)
	if status := r.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("created_at DESC").Limit(1000).Find(&apps).Error; err != nil {
		a.dbFailure(w, err, "list volunteer applications")
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func validVolunteerStatus(s string) bool {
	switch s {
	case models.VolunteerStatusNew, models.VolunteerStatusContacted, models.VolunteerStatusPlaced:
		return true
	}
	return false
}

// handleVolunteerStatus reads the new status from ?status= or a JSON body.
func (a *API) handleVolunteerStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := statusParam(w, r)
	if !ok {
		return
	}
	if !validVolunteerStatus(status) {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}

	id := chi.URLParam(r, "id")
	result := a.db.WithContext(r.Context()).Model(&models.VolunteerApplication{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		a.dbFailure(w, result.Error, "update volunteer status")
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	a.publishAuditEvent(r, events.EventAuditContentUpdate, events.Payload{
		"resource_type": "volunteer_application",
		"resource_id":   id,
		"status":        status,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Status updated"})
}

func statusParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s := r.URL.Query().Get("status"); s != "" {
		return s, true
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &req) {
		return "", false
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status_required")
		return "", false
	}
	return req.Status, true
}

func (a *API) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var sub models.Subscriber
	if !decode(w, r, &sub) {
		return
	}
	sub.Email = strings.TrimSpace(sub.Email)
	sub.Phone = strings.TrimSpace(sub.Phone)
	switch {
	case strings.TrimSpace(sub.BrandID) == "":
		writeError(w, http.StatusBadRequest, "brand_id_required")
		return
	case sub.Email == "" && sub.Phone == "":
		writeError(w, http.StatusBadRequest, "email_or_phone_required")
		return
	case sub.Email != "" && !emailPattern.MatchString(sub.Email):
		writeError(w, http.StatusBadRequest, "invalid_email")
		return
	}
	sub.ID = uuid.NewString()

	if err := a.db.WithContext(r.Context()).Create(&sub).Error; err != nil {
		a.dbFailure(w, err, "create subscriber")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (a *API) handleSubscribersList(w http.ResponseWriter, r *http.Request) {
	subs := []models.Subscriber{}
	q := brandScope(a.db.WithContext(r.Context()), r)
	if err := q.Order("created_at DESC").Limit(1000).Find(&subs).Error; err != nil {
		a.dbFailure(w, err, "list subscribers")
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (a *API) handleContact(w http.ResponseWriter, r *http.Request) {
	var msg models.ContactMessage
	if !decode(w, r, &msg) || !checkContact(w, msg.BrandID, msg.Name, msg.Email) {
		return
	}
	if strings.TrimSpace(msg.Message) == "" {
		writeError(w, http.StatusBadRequest, "message_required")
		return
	}
	msg.ID = uuid.NewString()

	if err := a.db.WithContext(r.Context()).Create(&msg).Error; err != nil {
		a.dbFailure(w, err, "create contact message")
		return
	}

	a.bus.Publish(events.EventContactReceived, events.Payload{
		"brand_id":    msg.BrandID,
		"brand_name":  a.brandName(r, msg.BrandID),
		"resource_id": msg.ID,
		"name":        msg.Name,
		"email":       msg.Email,
		"subject":     msg.Subject,
		"message":     msg.Message,
	})
	writeJSON(w, http.StatusOK, msg)
}

func (a *API) handleContactList(w http.ResponseWriter, r *http.Request) {
	msgs := []models.ContactMessage{}
	q := brandScope(a.db.WithContext(r.Context()), r)
	if err := q.Order("created_at DESC").Limit(1000).Find(&msgs).Error; err != nil {
		a.dbFailure(w, err, "list contact messages")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (a *API) handlePrayerSubmit(w http.ResponseWriter, r *http.Request) {
	var prayer models.PrayerRequest
	if !decode(w, r, &prayer) {
		return
	}
	switch {
	case strings.TrimSpace(prayer.BrandID) == "":
		writeError(w, http.StatusBadRequest, "brand_id_required")
		return
	case strings.TrimSpace(prayer.Name) == "":
		writeError(w, http.StatusBadRequest, "name_required")
		return
	case strings.TrimSpace(prayer.Request) == "":
		writeError(w, http.StatusBadRequest, "request_required")
		return
	case prayer.Email != "" && !emailPattern.MatchString(strings.TrimSpace(prayer.Email)):
		writeError(w, http.StatusBadRequest, "invalid_email")
		return
	}
	prayer.ID = uuid.NewString()
	prayer.Status = models.PrayerStatusNew

	if err := a.db.WithContext(r.Context()).Create(&prayer).Error; err != nil {
		a.dbFailure(w, err, "create prayer request")
		return
	}

	a.bus.Publish(events.EventPrayerSubmitted, events.Payload{
		"brand_id":     prayer.BrandID,
		"brand_name":   a.brandName(r, prayer.BrandID),
		"resource_id":  prayer.ID,
		"name":         prayer.Name,
		"email":        prayer.Email,
		"request":      prayer.Request,
		"is_anonymous": prayer.IsAnonymous,
	})
	writeJSON(w, http.StatusOK, prayer)
}

func (a *API) handlePrayersList(w http.ResponseWriter, r *http.Request) {
	prayers := []models.PrayerRequest{}
	q := brandScope(a.db.WithContext(r.Context()), r)
	if status := r.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("created_at DESC").Limit(1000).Find(&prayers).Error; err != nil {
		a.dbFailure(w, err, "list prayer requests")
		return
	}
	writeJSON(w, http.StatusOK, prayers)
}

// handlePrayerWall lists non-anonymous requests without contact details.
func (a *API) handlePrayerWall(w http.ResponseWriter, r *http.Request) {
	var prayers []models.PrayerRequest
	q := brandScope(a.db.WithContext(r.Context()).Where("is_anonymous = ?", false), r)
	if err := q.Order("created_at DESC").Limit(100).Find(&prayers).Error; err != nil {
		a.dbFailure(w, err, "list prayer wall")
		return
	}
	out := make([]models.PrayerRequest, len(prayers))
	for i, p := range prayers {
		out[i] = p.Public()
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handlePrayerStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := statusParam(w, r)
	if !ok {
		return
	}
	if !models.ValidPrayerStatus(status) {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}

	id := chi.URLParam(r, "id")
	db := a.db.WithContext(r.Context())
	var prayer models.PrayerRequest
	if err := db.First(&prayer, "id = ?", id).Error; err != nil {
		a.dbFailure(w, err, "get prayer request")
		return
	}
	if err := db.Model(&prayer).Update("status", status).Error; err != nil {
		a.dbFailure(w, err, "update prayer status")
		return
	}

	a.publishAuditEvent(r, events.EventAuditPrayerStatus, events.Payload{
		"brand_id":      prayer.BrandID,
		"resource_type": "prayer_request",
		"resource_id":   id,
		"status":        status,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Status updated"})
}
