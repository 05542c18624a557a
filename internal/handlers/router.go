package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"taskboard/internal/middleware"
)

// NewRouter собирает все маршруты API. Маршруты аутентификации
// открыты, остальные закрыты Auth middleware.
func NewRouter(authH AuthHandler, projectH ProjectHandler, taskH TaskHandler, verifier middleware.SessionVerifier) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.RateLimit(300))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", taskH.HealthCheck)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authH.Register) // POST /auth/register
		r.Post("/login", authH.Login)       // POST /auth/login
		r.Post("/logout", authH.Logout)     // POST /auth/logout
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(verifier))

		r.Post("/users/{id}/approval", authH.Approve) // POST /users/{id}/approval

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projectH.ListProjects) // GET /projects
			r.Post("/", projectH.CreateProject)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", projectH.GetProject)
				r.Put("/", projectH.UpdateProject)
				r.Delete("/", projectH.DeleteProject)

				r.Get("/members", projectH.ListMembers)
				r.Post("/members", projectH.AddMember)
				r.Delete("/members/{userId}", projectH.RemoveMember)

				r.Get("/boards", projectH.ListBoards)
				r.Post("/boards", projectH.CreateBoard)
			})
		})

		r.Route("/boards/{id}", func(r chi.Router) {
			r.Get("/", projectH.GetBoard)
			r.Delete("/", projectH.DeleteBoard)
			r.Get("/columns", projectH.ListColumns)
			r.Post("/columns", projectH.CreateColumn)
			r.Get("/archived", taskH.ListArchivedTasks) // GET /boards/{id}/archived
		})

		r.Route("/columns/{id}", func(r chi.Router) {
			r.Put("/", projectH.UpdateColumn)
			r.Delete("/", projectH.DeleteColumn)
			r.Get("/tasks", taskH.ListColumnTasks)      // GET /columns/{id}/tasks
			r.Post("/tasks", taskH.CreateTask)          // POST /columns/{id}/tasks
			r.Patch("/tasks", taskH.ReorderColumnTasks) // PATCH /columns/{id}/tasks
		})

		r.Post("/tasks/reorder", taskH.ReorderTasks) // POST /tasks/reorder

		r.Route("/tasks/{id}", func(r chi.Router) {
			r.Get("/", taskH.GetTask)
			r.Patch("/", taskH.UpdateTask) // PATCH /tasks/{id} — частичное обновление
			r.Put("/", taskH.ReplaceTask)  // PUT /tasks/{id} — полная замена
			r.Delete("/", taskH.DeleteTask)

			r.Post("/toggle", taskH.ToggleComplete)   // POST /tasks/{id}/toggle
			r.Post("/unarchive", taskH.UnarchiveTask) // POST /tasks/{id}/unarchive

			r.Get("/comments", taskH.ListComments)
			r.Post("/comments", taskH.AddComment)
			r.Delete("/comments/{commentId}", taskH.DeleteComment)

			r.Get("/attachments", taskH.ListAttachments)
			r.Post("/attachments", taskH.AddAttachment)
			r.Delete("/attachments/{attachmentId}", taskH.DeleteAttachment)
		})
	})

	return r
}
