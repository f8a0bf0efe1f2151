package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"wishmaster.org/internal/auth"
	"wishmaster.org/internal/event"
	"wishmaster.org/internal/obs"
	"wishmaster.org/internal/wish"
)

type createWishlistRequest struct {
	Title string `json:"title"`
}

func (a *API) handleWishlistsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		principal, ok := a.requirePermission(w, r, auth.PermWishRead)
		if !ok {
			return
		}
		lists, err := a.wishes.ListWishlists(r.Context(), principal.ID)
		if err != nil {
			a.handleWishError(w, r, err)
			return
		}
		if lists == nil {
			lists = []wish.Wishlist{}
		}
		respondSuccess(w, http.StatusOK, lists)
	case http.MethodPost:
		principal, ok := a.requirePermission(w, r, auth.PermWishCreate)
		if !ok {
			return
		}
		var req createWishlistRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondFail(w, r, http.StatusBadRequest, err.Error())
			return
		}
		wl, err := a.wishes.CreateWishlist(r.Context(), principal.ID, req.Title)
		if err != nil {
			a.handleWishError(w, r, err)
			return
		}
		a.audit(r.Context(), "wish.list.create", map[string]any{"wishlist_id": wl.ID})
		a.publish(event.TypeWishlistCreated, wl.ID, "", principal)
		w.Header().Set("Location", "/api/v1/wishlists/"+wl.ID)
		respondSuccess(w, http.StatusCreated, wl)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleWishlistResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/wishlists/")
	if path == "" {
		respondFail(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if id, ok := strings.CutSuffix(path, "/wishes"); ok {
		id = strings.TrimSuffix(id, "/")
		if id == "" || strings.Contains(id, "/") {
			respondFail(w, r, http.StatusNotFound, "resource not found")
			return
		}
		a.handleWishesCollection(w, r, id)
		return
	}
	if strings.Contains(path, "/") {
		respondFail(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		if _, ok := a.requirePermission(w, r, auth.PermWishRead); !ok {
			return
		}
		wl, err := a.wishes.GetWishlist(r.Context(), path)
		if err != nil {
			a.handleWishError(w, r, err)
			return
		}
		respondSuccess(w, http.StatusOK, wl)
	case http.MethodPatch:
		principal, ok := a.requirePermission(w, r, auth.PermWishUpdate)
		if !ok {
			return
		}
		var req createWishlistRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondFail(w, r, http.StatusBadRequest, err.Error())
			return
		}
		wl, err := a.wishes.RenameWishlist(r.Context(), principal.ID, path, req.Title)
		if err != nil {
			a.handleWishError(w, r, err)
			return
		}
		a.audit(r.Context(), "wish.list.rename", map[string]any{"wishlist_id": wl.ID})
		respondSuccess(w, http.StatusOK, wl)
	case http.MethodDelete:
		principal, ok := a.requirePermission(w, r, auth.PermWishDelete)
		if !ok {
			return
		}
		if err := a.wishes.DeleteWishlist(r.Context(), principal.ID, path); err != nil {
			a.handleWishError(w, r, err)
			return
		}
		a.audit(r.Context(), "wish.list.delete", map[string]any{"wishlist_id": path})
		respondSuccess(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleWishesCollection(w http.ResponseWriter, r *http.Request, wishlistID string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.requirePermission(w, r, auth.PermWishRead); !ok {
			return
		}
		items, err := a.wishes.ListWishes(r.Context(), wishlistID)
		if err != nil {
			a.handleWishError(w, r, err)
			return
		}
		if items == nil {
			items = []wish.Wish{}
		}
		respondSuccess(w, http.StatusOK, items)
	case http.MethodPost:
		principal, ok := a.requirePermission(w, r, auth.PermWishCreate)
		if !ok {
			return
		}
		var in wish.WishInput
		if err := decodeJSON(w, r, &in); err != nil {
			respondFail(w, r, http.StatusBadRequest, err.Error())
			return
		}
		item, err := a.wishes.AddWish(r.Context(), principal.ID, wishlistID, in)
		if err != nil {
			a.handleWishError(w, r, err)
			return
		}
		a.audit(r.Context(), "wish.create", map[string]any{
			"wishlist_id": wishlistID,
			"wish_id":     item.ID,
		})
		a.publish(event.TypeWishAdded, wishlistID, item.ID, principal)
		respondSuccess(w, http.StatusCreated, item)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleWishResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/wishes/")
	if path == "" {
		respondFail(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if id, ok := strings.CutSuffix(path, "/reserve"); ok {
		a.handleReservation(w, r, strings.TrimSuffix(id, "/"), true)
		return
	}
	if id, ok := strings.CutSuffix(path, "/release"); ok {
		a.handleReservation(w, r, strings.TrimSuffix(id, "/"), false)
		return
	}
	if strings.Contains(path, "/") {
		respondFail(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		principal, ok := a.requirePermission(w, r, auth.PermWishUpdate)
		if !ok {
			return
		}
		var in wish.WishInput
		if err := decodeJSON(w, r, &in); err != nil {
			respondFail(w, r, http.StatusBadRequest, err.Error())
			return
		}
		item, err := a.wishes.UpdateWish(r.Context(), principal.ID, path, in)
		if err != nil {
			a.handleWishError(w, r, err)
			return
		}
		a.audit(r.Context(), "wish.update", map[string]any{"wish_id": item.ID})
		respondSuccess(w, http.StatusOK, item)
	case http.MethodDelete:
		principal, ok := a.requirePermission(w, r, auth.PermWishDelete)
		if !ok {
			return
		}
		if err := a.wishes.RemoveWish(r.Context(), principal.ID, path); err != nil {
			a.handleWishError(w, r, err)
			return
		}
		a.audit(r.Context(), "wish.delete", map[string]any{"wish_id": path})
		respondSuccess(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		methodNotAllowed(w, r, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleReservation(w http.ResponseWriter, r *http.Request, wishID string, reserve bool) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if wishID == "" || strings.Contains(wishID, "/") {
		respondFail(w, r, http.StatusNotFound, "resource not found")
		return
	}
	principal, ok := a.requirePermission(w, r, auth.PermWishRead)
	if !ok {
		return
	}

	var (
		item      wish.Wish
		err       error
		action    = "wish.release"
		eventType = event.TypeWishReleased
	)
	if reserve {
		action = "wish.reserve"
		eventType = event.TypeWishReserved
		item, err = a.wishes.Reserve(r.Context(), principal.ID, wishID)
	} else {
		item, err = a.wishes.Release(r.Context(), principal.ID, wishID)
	}
	if err != nil {
		a.handleWishError(w, r, err)
		return
	}
	a.audit(r.Context(), action, map[string]any{"wish_id": item.ID})
	a.publish(eventType, item.WishlistID, item.ID, principal)
	respondSuccess(w, http.StatusOK, item)
}

func (a *API) handleWishError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, wish.ErrInvalidTitle), errors.Is(err, wish.ErrInvalidPrice):
		respondFail(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, wish.ErrNotFound):
		respondFail(w, r, http.StatusNotFound, "resource not found")
	case errors.Is(err, wish.ErrNotOwner):
		respondFail(w, r, http.StatusForbidden, "not allowed for this wishlist")
	case errors.Is(err, wish.ErrAlreadyReserved), errors.Is(err, wish.ErrNotReserved):
		respondFail(w, r, http.StatusConflict, err.Error())
	default:
		obs.LogError("wish operation failure", map[string]any{"error": err.Error()})
		respondError(w, r, http.StatusInternalServerError, "internal error")
	}
}
