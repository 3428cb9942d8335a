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
	"gorm.io/gorm"

	"github.com/friendsincode/ministry_platform/internal/events"
	"github.com/friendsincode/ministry_platform/internal/markdown"
	"github.com/friendsincode/ministry_platform/internal/models"
)

// resource serves list/get/create/update/delete for one brand-scoped model.
type resource[T any] struct {
	api   *API
	label string
	kind  string
	order string
	limit int
	// init returns the value a create body is decoded over.
	init func() T
	// keys exposes the id and brand_id fields.
	keys func(*T) (id, brandID *string)
	// filter narrows list queries beyond ?brand_id=.
	filter func(*gorm.DB, *http.Request) *gorm.DB
	// prepare validates a decoded row and fills derived fields. A non-empty
	// result is the 400 error code.
	prepare func(*T) string
}

func (rs *resource[T]) list(w http.ResponseWriter, r *http.Request) {
	q := brandScope(rs.api.db.WithContext(r.Context()).Model(new(T)), r)
	if rs.filter != nil {
		q = rs.filter(q, r)
	}
	order := rs.order
	if order == "" {
		order = "created_at DESC"
	}
	limit := rs.limit
	if limit == 0 {
		limit = 1000
	}

	items := make([]T, 0)
	if err := q.Order(order).Limit(queryLimit(r, limit, 1000)).Find(&items).Error; err != nil {
		rs.api.dbFailure(w, err, "list "+rs.kind)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (rs *resource[T]) get(w http.ResponseWriter, r *http.Request) {
	var item T
	if err := rs.api.db.WithContext(r.Context()).First(&item, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
		rs.api.dbFailure(w, err, "get "+rs.kind)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (rs *resource[T]) create(w http.ResponseWriter, r *http.Request) {
	var item T
	if rs.init != nil {
		item = rs.init()
	}
	if !decode(w, r, &item) {
		return
	}
	id, brandID := rs.keys(&item)
	*id = uuid.NewString()
	if strings.TrimSpace(*brandID) == "" {
		writeError(w, http.StatusBadRequest, "brand_id_required")
		return
	}
	if rs.prepare != nil {
		if code := rs.prepare(&item); code != "" {
			writeError(w, http.StatusBadRequest, code)
			return
		}
	}

	if err := rs.api.db.WithContext(r.Context()).Create(&item).Error; err != nil {
		rs.api.dbFailure(w, err, "create "+rs.kind)
		return
	}
	rs.audit(r, events.EventAuditContentCreate, *brandID, *id)
	writeJSON(w, http.StatusOK, item)
}

// update applies the body over the stored row. id, brand_id and created_at
// are never changed.
func (rs *resource[T]) update(w http.ResponseWriter, r *http.Request) {
	db := rs.api.db.WithContext(r.Context())
	var item T
	if err := db.First(&item, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
		rs.api.dbFailure(w, err, "get "+rs.kind)
		return
	}
	id, brandID := rs.keys(&item)
	keepID, keepBrand := *id, *brandID

	if !decode(w, r, &item) {
		return
	}
	*id, *brandID = keepID, keepBrand
	if rs.prepare != nil {
		if code := rs.prepare(&item); code != "" {
			writeError(w, http.StatusBadRequest, code)
			return
		}
	}

	if err := db.Omit("created_at").Save(&item).Error; err != nil {
		rs.api.dbFailure(w, err, "update "+rs.kind)
		return
	}
	rs.audit(r, events.EventAuditContentUpdate, keepBrand, keepID)
	writeJSON(w, http.StatusOK, item)
}

func (rs *resource[T]) remove(w http.ResponseWriter, r *http.Request) {
	db := rs.api.db.WithContext(r.Context())
	var item T
	if err := db.First(&item, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
		rs.api.dbFailure(w, err, "get "+rs.kind)
		return
	}
	id, brandID := rs.keys(&item)
	if err := db.Delete(&item).Error; err != nil {
		rs.api.dbFailure(w, err, "delete "+rs.kind)
		return
	}
	rs.audit(r, events.EventAuditContentDelete, *brandID, *id)
	deleted(w, rs.label)
}

func (rs *resource[T]) audit(r *http.Request, eventType events.EventType, brandID, id string) {
	rs.api.publishAuditEvent(r, eventType, events.Payload{
		"brand_id":      brandID,
		"resource_type": rs.kind,
		"resource_id":   id,
	})
}

// mount registers the standard routes: reads are public, writes need admin.
func (rs *resource[T]) mount(r chi.Router, admin []func(http.Handler) http.Handler) {
	r.Get("/", rs.list)
	r.Get("/{id}", rs.get)
	r.With(admin...).Post("/", rs.create)
	r.With(admin...).Put("/{id}", rs.update)
	r.With(admin...).Delete("/{id}", rs.remove)
}

func required(value, code string) string {
	if strings.TrimSpace(value) == "" {
		return code
	}
	return ""
}

func (a *API) contentRoutes(r chi.Router) {
	eventsRes := &resource[models.Event]{
		api: a, label: "Event", kind: "event", order: "date ASC",
		init: func() models.Event { return models.Event{IsFree: true} },
		keys: func(e *models.Event) (*string, *string) { return &e.ID, &e.BrandID },
		prepare: func(e *models.Event) string {
			if code := required(e.Title, "title_required"); code != "" {
				return code
			}
			return required(e.Date, "date_required")
		},
	}
	r.Route("/events", func(r chi.Router) {
		eventsRes.mount(r, a.admin())
		r.With(a.public()).Post("/{id}/register", a.handleEventRegister)
		r.With(a.admin()...).Get("/{id}/attendees", a.handleEventAttendees)
	})
	r.With(a.admin()...).Get("/attendees", a.handleAttendeesList)

	ministries := &resource[models.Ministry]{
		api: a, label: "Ministry", kind: "ministry", order: "title ASC",
		keys:    func(m *models.Ministry) (*string, *string) { return &m.ID, &m.BrandID },
		prepare: func(m *models.Ministry) string { return required(m.Title, "title_required") },
	}
	r.Route("/ministries", func(r chi.Router) { ministries.mount(r, a.admin()) })

	announcements := &resource[models.Announcement]{
		api: a, label: "Announcement", kind: "announcement",
		keys: func(an *models.Announcement) (*string, *string) { return &an.ID, &an.BrandID },
		prepare: func(an *models.Announcement) string {
			if code := required(an.Title, "title_required"); code != "" {
				return code
			}
			if an.ScheduledStart != nil && an.ScheduledEnd != nil && an.ScheduledEnd.Before(*an.ScheduledStart) {
				return "invalid_schedule_window"
			}
			an.ContentHTML = markdown.MustRender(an.Content)
			return ""
		},
	}
	r.Route("/announcements", func(r chi.Router) {
		r.Get("/urgent", a.handleUrgentAnnouncements)
		announcements.mount(r, a.admin())
	})

	sermons := &resource[models.Sermon]{
		api: a, label: "Sermon", kind: "sermon", order: "date DESC",
		init: func() models.Sermon { return models.Sermon{MediaType: models.MediaTypeVideo} },
		keys: func(s *models.Sermon) (*string, *string) { return &s.ID, &s.BrandID },
		prepare: func(s *models.Sermon) string {
			if code := required(s.Title, "title_required"); code != "" {
				return code
			}
			if s.MediaType != models.MediaTypeVideo && s.MediaType != models.MediaTypeAudio {
				return "invalid_media_type"
			}
			s.DescriptionHTML = markdown.MustRender(s.Description)
			return ""
		},
	}
	r.Route("/sermons", func(r chi.Router) { sermons.mount(r, a.admin()) })

	testimonials := &resource[models.Testimonial]{
		api: a, label: "Testimonial", kind: "testimonial",
		keys: func(t *models.Testimonial) (*string, *string) { return &t.ID, &t.BrandID },
		filter: func(q *gorm.DB, r *http.Request) *gorm.DB {
			if featured, ok := queryBool(r, "featured"); ok {
				q = q.Where("featured = ?", featured)
			}
			return q
		},
		prepare: func(t *models.Testimonial) string {
			if code := required(t.Name, "name_required"); code != "" {
				return code
			}
			return required(t.Content, "content_required")
		},
	}
	r.Route("/testimonials", func(r chi.Router) { testimonials.mount(r, a.admin()) })

	streams := &resource[models.LiveStream]{
		api: a, label: "Live stream", kind: "live_stream", limit: 100,
		init: func() models.LiveStream { return models.LiveStream{IsLive: true} },
		keys: func(s *models.LiveStream) (*string, *string) { return &s.ID, &s.BrandID },
		filter: func(q *gorm.DB, r *http.Request) *gorm.DB {
			if live, ok := queryBool(r, "is_live"); ok {
				q = q.Where("is_live = ?", live)
			}
			return q
		},
		prepare: func(s *models.LiveStream) string {
			if code := required(s.Title, "title_required"); code != "" {
				return code
			}
			return required(s.StreamURL, "stream_url_required")
		},
	}
	r.Route("/live-streams", func(r chi.Router) {
		r.Get("/active", a.handleActiveStream)
		streams.mount(r, a.admin())
	})

	banners := &resource[models.PageBanner]{
		api: a, label: "Page banner", kind: "page_banner", order: "page_type ASC",
		init: func() models.PageBanner { return models.PageBanner{IsActive: true} },
		keys: func(b *models.PageBanner) (*string, *string) { return &b.ID, &b.BrandID },
		filter: func(q *gorm.DB, r *http.Request) *gorm.DB {
			if page := r.URL.Query().Get("page_type"); page != "" {
				q = q.Where("page_type = ?", page)
			}
			if active, ok := queryBool(r, "is_active"); ok {
				q = q.Where("is_active = ?", active)
			}
			return q
		},
		prepare: func(b *models.PageBanner) string {
			if !models.ValidPageType(b.PageType) {
				return "invalid_page_type"
			}
			return required(b.ImageURL, "image_url_required")
		},
	}
	r.Route("/page-banners", func(r chi.Router) {
		r.With(a.admin()...).Post("/upload", a.handleBannerUpload)
		banners.mount(r, a.admin())
	})
}

func (a *API) gallery() *resource[models.GalleryImage] {
	return &resource[models.GalleryImage]{
		api: a, label: "Image", kind: "gallery_image",
		keys: func(g *models.GalleryImage) (*string, *string) { return &g.ID, &g.BrandID },
		filter: func(q *gorm.DB, r *http.Request) *gorm.DB {
			if eventID := r.URL.Query().Get("event_id"); eventID != "" {
				q = q.Where("event_id = ?", eventID)
			}
			return q
		},
		prepare: func(g *models.GalleryImage) string {
			if code := required(g.Title, "title_required"); code != "" {
				return code
			}
			return required(g.ImageURL, "image_url_required")
		},
	}
}

// handleUrgentAnnouncements lists urgent announcements whose schedule
// window contains now.
func (a *API) handleUrgentAnnouncements(w http.ResponseWriter, r *http.Request) {
	var candidates []models.Announcement
	q := brandScope(a.db.WithContext(r.Context()).Where("is_urgent = ?", true), r)
	if err := q.Order("created_at DESC").Limit(100).Find(&candidates).Error; err != nil {
		a.dbFailure(w, err, "list urgent announcements")
		return
	}

	now := a.now()
	out := make([]models.Announcement, 0, len(candidates))
	for _, an := range candidates {
		if an.ActiveAt(now) {
			out = append(out, an)
		}
		if len(out) == 10 {
			break
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleActiveStream returns the newest live stream or null.
func (a *API) handleActiveStream(w http.ResponseWriter, r *http.Request) {
	var stream models.LiveStream
	q := brandScope(a.db.WithContext(r.Context()).Where("is_live = ?", true), r)
	err := q.Order("created_at DESC").First(&stream).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		a.dbFailure(w, err, "active stream")
		return
	}
	writeJSON(w, http.StatusOK, stream)
}

func (a *API) handleEventRegister(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	db := a.db.WithContext(r.Context())

	var event models.Event
	if err := db.First(&event, "id = ?", eventID).Error; err != nil {
		a.dbFailure(w, err, "get event")
		return
	}

	attendee := models.EventAttendee{Guests: 1}
	if !decode(w, r, &attendee) {
		return
	}
	if code := required(attendee.Name, "name_required"); code != "" {
		writeError(w, http.StatusBadRequest, code)
		return
	}
	if code := required(attendee.Email, "email_required"); code != "" {
		writeError(w, http.StatusBadRequest, code)
		return
	}
	if attendee.Guests < 1 {
		attendee.Guests = 1
	}
	attendee.ID = uuid.NewString()
	attendee.EventID = event.ID
	attendee.BrandID = event.BrandID

	if err := db.Create(&attendee).Error; err != nil {
		a.dbFailure(w, err, "register attendee")
		return
	}

	a.bus.Publish(events.EventEventRegistered, events.Payload{
		"brand_id":    event.BrandID,
		"brand_name":  a.brandName(r, event.BrandID),
		"resource_id": attendee.ID,
		"event_id":    event.ID,
		"event_title": event.Title,
		"date":        event.Date,
		"time":        event.Time,
		"name":        attendee.Name,
		"email":       attendee.Email,
		"guests":      attendee.Guests,
	})
	writeJSON(w, http.StatusOK, attendee)
}

func (a *API) handleEventAttendees(w http.ResponseWriter, r *http.Request) {
	attendees := []models.EventAttendee{}
	err := a.db.WithContext(r.Context()).
		Where("event_id = ?", chi.URLParam(r, "id")).
		Order("created_at ASC").
		Limit(1000).
		Find(&attendees).Error
	if err != nil {
		a.dbFailure(w, err, "list attendees")
		return
	}
	writeJSON(w, http.StatusOK, attendees)
}

func (a *API) handleAttendeesList(w http.ResponseWriter, r *http.Request) {
	attendees := []models.EventAttendee{}
	q := brandScope(a.db.WithContext(r.Context()), r)
	if err := q.Order("created_at DESC").Limit(1000).Find(&attendees).Error; err != nil {
		a.dbFailure(w, err, "list attendees")
		return
	}
	writeJSON(w, http.StatusOK, attendees)
}
