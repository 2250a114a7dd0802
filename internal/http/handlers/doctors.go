package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/carebook/internal/cache"
	"github.com/geocoder89/carebook/internal/domain/doctor"
	"github.com/gin-gonic/gin"
)

type DoctorLister interface {
	List(ctx context.Context) ([]doctor.Doctor, error)
}

type DoctorsHandler struct {
	repo  DoctorLister
	cache *cache.Cache
}

// NewDoctorsHandler serves the directory through c when non-nil.
func NewDoctorsHandler(repo DoctorLister, c *cache.Cache) *DoctorsHandler {
	return &DoctorsHandler{repo: repo, cache: c}
}

const doctorsCacheKey = "doctors:all"

func (h *DoctorsHandler) List(ctx *gin.Context) {
	if h.cache != nil {
		if v, ok := h.cache.Get(doctorsCacheKey); ok {
			if items, ok := v.([]doctor.Doctor); ok {
				RespondJSONWithETag(ctx, http.StatusOK, gin.H{"success": true, "doctors": items})
				return
			}
		}
	}

	items, err := h.repo.List(ctx.Request.Context())
	if err != nil {
		RespondInternal(ctx, "Could not list doctors")
		return
	}

	if h.cache != nil {
		h.cache.Set(doctorsCacheKey, items)
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"success": true, "doctors": items})
}
