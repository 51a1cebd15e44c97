/*
Copyright 2026 Nscale.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package users

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-logr/logr"
	"github.com/goccy/go-json"
)

// Handler serves the users API from a store.
type Handler struct {
	// store holds the users.
	store *Store

	// logger records mutations.
	logger logr.Logger
}

func New(store *Store, logger logr.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Routes registers the handlers on a router mounted at the collection.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// WriteJSONResponse writes a JSON body with the given status.
func WriteJSONResponse(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Add("Cache-Control", "no-cache")
	w.WriteHeader(status)

	_, _ = w.Write(data)
}

// notFound mirrors json-server, an empty object.
func notFound(w http.ResponseWriter) {
	WriteJSONResponse(w, http.StatusNotFound, map[string]interface{}{})
}

func userID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, false
	}

	return id, true
}

// decodeAttributes reads a form or JSON encoded body.
func decodeAttributes(r *http.Request) (Attributes, error) {
	var attributes Attributes

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&attributes); err != nil {
			return attributes, fmt.Errorf("decoding json body: %w", err)
		}

		return attributes, nil
	}

	if err := r.ParseForm(); err != nil {
		return attributes, fmt.Errorf("decoding form body: %w", err)
	}

	attributes.Name = r.PostForm.Get("name")
	attributes.Username = r.PostForm.Get("username")
	attributes.Email = r.PostForm.Get("email")

	return attributes, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, http.StatusOK, h.store.List())
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		notFound(w)
		return
	}

	user, ok := h.store.Get(id)
	if !ok {
		notFound(w)
		return
	}

	WriteJSONResponse(w, http.StatusOK, user)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	attributes, err := decodeAttributes(r)
	if err != nil {
		WriteJSONResponse(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	user := h.store.Create(attributes)

	h.logger.V(1).Info("user created", "id", user.ID)

	WriteJSONResponse(w, http.StatusCreated, user)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		notFound(w)
		return
	}

	attributes, err := decodeAttributes(r)
	if err != nil {
		WriteJSONResponse(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	user, ok := h.store.Update(id, attributes)
	if !ok {
		notFound(w)
		return
	}

	h.logger.V(1).Info("user updated", "id", id)

	WriteJSONResponse(w, http.StatusOK, user)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok || !h.store.Delete(id) {
		notFound(w)
		return
	}

	h.logger.V(1).Info("user deleted", "id", id)

	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{})
}
