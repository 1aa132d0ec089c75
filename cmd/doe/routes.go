package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/cors"

	getcredits "doe-studio/http-server/credits/get"
	setcredits "doe-studio/http-server/credits/update"
	deldesign "doe-studio/http-server/designs/delete"
	exportdesign "doe-studio/http-server/designs/export"
	getdesign "doe-studio/http-server/designs/get"
	optimizedesign "doe-studio/http-server/designs/optimize"
	previewdesign "doe-studio/http-server/designs/preview"
	savedesign "doe-studio/http-server/designs/save"
	updesign "doe-studio/http-server/designs/update"
	"doe-studio/http-server/geometry"
	"doe-studio/http-server/pattern/analyze"
	"doe-studio/http-server/preview"
	deltemplate "doe-studio/http-server/template/delete"
	gettemplate "doe-studio/http-server/template/get"
	savetemplate "doe-studio/http-server/template/save"
	uptemplate "doe-studio/http-server/template/update"
	"doe-studio/internal/config"
	"doe-studio/internal/middleware/auth"
	"doe-studio/internal/middleware/identity"
	prv "doe-studio/internal/preview"
	"doe-studio/internal/service/export"
	"doe-studio/internal/service/studio"
	"doe-studio/internal/storage/sqlstore"
)

const frontendDir = "./frontend-dist"

func routes(cfg config.Config, log *slog.Logger, storage *sqlstore.Storage, studioService *studio.Service, exportService *export.Service) *chi.Mux {
	router := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", identity.Header},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})

	router.Use(corsHandler.Handler)

	router.Use(middleware.RequestID)
	//ip пользователя
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := storage.Ping(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	opts := prv.Options{PixelCeiling: cfg.PixelCeiling}

	// расчёты без сохранения, пользователь не нужен
	router.Post("/api/preview", preview.Preview(log, studioService))
	router.Post("/api/geometry/lens", geometry.LensHint(log))
	router.Post("/api/tolerance/hint", geometry.ToleranceHint(log, opts))
	router.Post("/api/pattern/analyze", analyze.AnalyzePattern(log))

	router.Get("/api/templates", gettemplate.GetTemplates(log, storage))
	router.Get("/api/templates/{id}", gettemplate.GetTemplate(log, storage))

	router.Group(func(r chi.Router) {
		r.Use(identity.RequireUser)

		r.Get("/api/user/credits", getcredits.GetCredits(log, storage))

		r.Get("/api/designs", getdesign.GetDesigns(log, storage))
		r.Post("/api/designs", savedesign.SaveDesign(log, studioService))
		r.Post("/api/designs/from-template", savedesign.SaveDesignFromTemplate(log, studioService))
		r.Get("/api/designs/{id}", getdesign.GetDesign(log, storage))
		r.Put("/api/designs/{id}", updesign.UpdateDesign(log, studioService))
		r.Delete("/api/designs/{id}", deldesign.DeleteDesign(log, storage))
		r.Post("/api/designs/{id}/preview", previewdesign.RefreshDesignPreview(log, studioService))
		r.Post("/api/designs/{id}/optimize", optimizedesign.StartOptimization(log, studioService))
		r.Get("/api/designs/{id}/optimize", optimizedesign.OptimizationStatus(log, studioService))
		r.Get("/api/designs/{id}/export/{format}", exportdesign.ExportDesign(log, exportService))
	})

	adminRouter := chi.NewRouter()
	adminRouter.Use(auth.BasicAuth(cfg.AdminLogin, cfg.AdminPass))

	adminRouter.Get("/templates", gettemplate.GetAllTemplatesAdmin(log, storage))
	adminRouter.Post("/templates", savetemplate.SaveTemplateAdmin(log, storage))
	adminRouter.Put("/templates/{id}", uptemplate.UpdateTemplateAdmin(log, storage))
	adminRouter.Delete("/templates/{id}", deltemplate.DeleteTemplateAdmin(log, storage))
	adminRouter.Put("/users/{id}/credits", setcredits.SetCreditsAdmin(log, storage))

	router.Mount("/api/admin", adminRouter)

	// Статика фронтенда, если собрана
	if _, err := os.Stat(frontendDir); err != nil {
		log.Warn("frontend not found, serving API only", slog.String("path", frontendDir))
		return router
	}

	fileServer := http.FileServer(http.Dir(frontendDir))
	router.Handle("/assets/*", fileServer)

	// SPA fallback: любой другой путь → index.html
	router.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(frontendDir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			http.ServeFile(w, r, path)
			return
		}
		http.ServeFile(w, r, filepath.Join(frontendDir, "index.html"))
	})

	return router
}
