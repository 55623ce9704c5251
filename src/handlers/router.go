package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/username/backoffice/backend/src/services"
)

// Router holds the handlers mounted by NewRouter.
type Router struct {
	Session *SessionHandler
	Screens *ScreenHandler
	Lookups *LookupHandler
	Admin   *AdminHandler
	Pages   *PageHandler
	CSRF    *CSRF
}

// Mount registers the API and page routes on r.
func (rt Router) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		// Rotas públicas
		r.Get("/auth/csrf", rt.CSRF.GetCSRFToken)
		r.With(rt.CSRF.Middleware).Post("/auth/login", rt.Session.LoginHandler)

		// Rotas protegidas (sessão e CSRF)
		r.Group(func(r chi.Router) {
			r.Use(rt.CSRF.Middleware)
			r.Use(rt.Session.AuthMiddleware)

			r.Post("/auth/logout", rt.Session.LogoutHandler)
			r.Get("/auth/me", rt.Session.MeHandler)

			r.Route("/payables", func(r chi.Router) {
				rt.Screens.Routes(r, services.ScreenPayables)
			})
			r.Route("/receivables", func(r chi.Router) {
				r.Get("/customers", rt.Screens.SearchCustomers)
				rt.Screens.Routes(r, services.ScreenReceivables)
			})
			r.Route("/appointments", func(r chi.Router) {
				r.Route("/processed", func(r chi.Router) {
					rt.Screens.Routes(r, services.ScreenProcessedAppointments)
				})
				rt.Screens.Routes(r, services.ScreenAppointments)
			})
			r.Route("/payment-requests", func(r chi.Router) {
				r.Post("/", rt.Screens.CreatePaymentRequest)
				r.Put("/{id}", rt.Screens.UpdatePaymentRequest)
				rt.Screens.Routes(r, services.ScreenPaymentRequests)
			})

			r.Get("/lookups/{kind}", rt.Lookups.HandleLookup)
			r.Get("/banks/directory", rt.Lookups.HandleBankDirectory)

			r.Get("/whatsapp-users", rt.Admin.ListWhatsAppUsers)
			r.Post("/whatsapp-users", rt.Admin.CreateWhatsAppUser)
			r.Put("/whatsapp-users/{id}", rt.Admin.UpdateWhatsAppUser)
			r.Delete("/whatsapp-users/{id}", rt.Admin.DeleteWhatsAppUser)

			r.Get("/approval-links", rt.Admin.ListApprovalLinks)
			r.Post("/approval-links", rt.Admin.CreateApprovalLink)
			r.Delete("/approval-links/{id}", rt.Admin.DeleteApprovalLink)
		})
	})

	r.Get("/login", rt.Pages.Login)
	r.Group(func(r chi.Router) {
		r.Use(rt.Session.PageGuard)
		r.Get("/", rt.Pages.Home)
		r.Get("/accounts-payable", rt.Pages.Page("accounts-payable"))
		r.Get("/accounts-receivable", rt.Pages.Page("accounts-receivable"))
		r.Get("/appointments", rt.Pages.Page("appointments"))
	})

	r.NotFound(http.HandlerFunc(NotFound))
}
