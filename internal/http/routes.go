package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/energia/energia-dashboard/internal/service"
)

// Options configure the session cookie.
type Options struct {
	CookieName   string
	CookieSecure bool
}

// NewApp builds the fiber app with the dashboard's error envelope. The body
// limit leaves room for multipart overhead on top of maxUpload.
func NewApp(maxUpload int64) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               "energia-dashboard",
		ErrorHandler:          ErrorHandler,
		BodyLimit:             int(maxUpload) + 1<<20,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		DisableStartupMessage: true,
	})
}

func Register(app *fiber.App, svcs *service.Services, sessions Sessions, opts Options) {
	if opts.CookieName == "" {
		opts.CookieName = "energia_session"
	}
	h := &handlers{svcs: svcs, sessions: sessions, opts: opts}

	app.Use(RequestLogger())
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	auth := app.Group("/auth")
	auth.Post("/login", h.login)
	auth.Post("/logout", h.logout)
	auth.Get("/me", RequireSession(sessions, opts.CookieName), h.me)

	g := app.Group("/api", RequireSession(sessions, opts.CookieName))
	g.Get("/dashboard", h.dashboard)

	g.Get("/matrizes", h.listGenerators)
	g.Post("/matrizes", h.createGenerator)
	g.Get("/matrizes/:id", h.getGenerator)
	g.Put("/matrizes/:id", h.updateGenerator)
	g.Delete("/matrizes/:id", h.deleteGenerator)
	g.Get("/matrizes/:id/resumo", h.generatorSummary)
	g.Get("/matrizes/:id/filiais", h.generatorDependents)

	g.Get("/filiais", h.listDependents)
	g.Post("/filiais", h.createDependent)
	g.Get("/filiais/by-matriz/:id", h.dependentsByGenerator)
	g.Get("/filiais/:id", h.getDependent)
	g.Put("/filiais/:id", h.updateDependent)
	g.Delete("/filiais/:id", h.deleteDependent)
	g.Get("/filiais/:id/energia-calculada", h.dependentEnergy)

	g.Get("/users", h.listUsers)
	g.Post("/users", h.createUser)
	g.Get("/users/:id", h.getUser)
	g.Put("/users/:id", h.updateUser)
	g.Delete("/users/:id", h.deleteUser)
	g.Get("/users/:id/files", h.userFiles)
	g.Post("/users/:id/upload", h.uploadFile)

	g.Get("/files", h.listFiles)
	g.Get("/files/user/:id", h.filesByUser)
	g.Get("/files/:id", h.getFile)
	g.Delete("/files/:id", h.deleteFile)
	g.Get("/files/:id/download", h.downloadFile)
	g.Get("/files/:id/view", h.viewFile)

	g.Get("/reports", h.report)
	g.Get("/reports/export.csv", h.exportCSV)
	g.Post("/reports/archive", h.archiveReport)
	g.Get("/reports/history", h.reportHistory)
}
