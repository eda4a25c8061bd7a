// internal/api/og.go
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chand1012/personal-site/internal/content"
	"github.com/chand1012/personal-site/internal/metrics"
	"github.com/chand1012/personal-site/internal/og"
)

// ogPostCount is how many posts the blog image shows.
const ogPostCount = 6

// ImageRenderer paints a scene to PNG bytes.
type ImageRenderer interface {
	RenderPNG(s og.Scene) ([]byte, error)
}

func (h *Handler) scene(r *http.Request, name string, theme og.Theme) (og.Scene, bool) {
	switch name {
	case "github":
		stats, _ := h.deps.Stats.Stats(r.Context(), h.deps.Username)
		return og.GitHubScene(theme, stats), true
	case "hero":
		stats, _ := h.deps.Stats.Stats(r.Context(), h.deps.Username)
		return og.HeroScene(theme, stats, content.Owner), true
	case "blog":
		return og.BlogScene(theme, h.deps.Feed.Latest(r.Context(), ogPostCount)), true
	case "projects":
		return og.ProjectsScene(theme, content.Projects()), true
	case "employment":
		return og.EmploymentScene(theme, content.Employment()), true
	case "skills":
		return og.SkillsScene(theme, content.Skills()), true
	}
	return og.Scene{}, false
}

// ogImage renders one of the Open Graph images.
// GET /og/{name}?theme=light|dark
func (h *Handler) ogImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	theme := og.ParseTheme(r.URL.Query().Get("theme"))

	scene, ok := h.scene(r, name, theme)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Unknown image")
		return
	}

	start := time.Now()
	png, err := h.deps.Images.RenderPNG(scene)
	metrics.OGRenderDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		h.logger.Error("Failed to render OG image", "image", name, "theme", theme, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to generate image")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
