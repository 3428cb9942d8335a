/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/ministry_platform/internal/youtube"
)

// handleYouTubeChannel returns the curated videos for a channel handle.
// Unknown handles get an empty list.
func (a *API) handleYouTubeChannel(w http.ResponseWriter, r *http.Request) {
	if a.youtube == nil {
		writeJSON(w, http.StatusOK, []youtube.Video{})
		return
	}
	writeJSON(w, http.StatusOK, a.youtube.Channel(r.Context(), chi.URLParam(r, "handle")))
}
