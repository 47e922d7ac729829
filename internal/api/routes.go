package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", handler.Register)
	auth.Post("/login", handler.Login)
	auth.Post("/verify", handler.VerifyEmail)
	auth.Post("/resend-verification", handler.ResendVerification)
	auth.Post("/logout", handler.AuthRequired, handler.Logout)

	account := api.Group("/account", handler.AuthRequired)
	account.Post("/change-password", handler.ChangePassword)
	account.Delete("", handler.DeleteAccount)

	api.Get("/moods", handler.GetMoodOptions)
	api.Get("/crisis", handler.GetCrisisResources)
	api.Get("/affirmation", handler.GetAffirmation)

	days := api.Group("/days", handler.AuthRequired)
	days.Get("", handler.GetDays)
	days.Get("/stream", handler.StreamDays)
	days.Get("/:date", handler.GetDay)
	days.Put("/:date/mood", handler.SetMood)
	days.Post("/:date/journals", handler.AppendJournal)
	days.Put("/:date/journals/id/:id", handler.EditJournalByID)
	days.Delete("/:date/journals/id/:id", handler.DeleteJournalByID)
	days.Put("/:date/journals/:index", handler.EditJournal)
	days.Delete("/:date/journals/:index", handler.DeleteJournal)

	chat := api.Group("/chat", handler.AuthRequired)
	chat.Get("", handler.GetChat)
	chat.Post("", handler.SendChat)
	chat.Delete("", handler.ResetChat)

	insights := api.Group("/insights", handler.AuthRequired)
	insights.Get("/analysis", handler.GetAnalysis)
	insights.Get("/history", handler.GetHistory)
}
