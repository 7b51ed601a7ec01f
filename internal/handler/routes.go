package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/cloudbook/internal/middleware"
	"github.com/suteetoe/cloudbook/internal/model"
)

// RegisterRoutes mounts every CloudBook resource on g.
// Auth routes are public and rate limited; resource routes pass through auth and module checks.
func (h *Handler) RegisterRoutes(g *echo.Group, auth *middleware.Auth, limiter *middleware.RateLimiter) {
	// Auth API routes
	authAPI := g.Group("/auth", limiter.Middleware())
	authAPI.POST("/login", h.Login)
	authAPI.POST("/employee-login", h.EmployeeLogin)
	authAPI.POST("/sign-up", h.SignUp)
	authAPI.GET("/sign-up", h.ListAdmins, auth.Authenticate)
	authAPI.DELETE("/sign-up", h.DeleteAdmin, auth.Authenticate)
	authAPI.POST("/forgot-password", h.ForgotPassword)
	authAPI.POST("/resend-otp", h.ResendOTP)
	authAPI.POST("/verify-otp", h.VerifyOTP)

	// Customer API routes
	customerAPI := g.Group("/customers", auth.Authenticate, auth.RequireModule(model.ModuleCustomers))
	customerAPI.GET("", h.ListCustomers)
	customerAPI.POST("", h.CreateCustomer)
	customerAPI.PUT("", h.UpdateCustomer)
	customerAPI.DELETE("", h.DeleteCustomer)

	// Employee API routes
	employeeAPI := g.Group("/employees", auth.Authenticate, auth.RequireModule(model.ModuleEmployees))
	employeeAPI.GET("", h.ListEmployees)
	employeeAPI.POST("", h.CreateEmployee)
	employeeAPI.PUT("", h.UpdateEmployee)
	employeeAPI.DELETE("", h.DeleteEmployee)

	// Product API routes
	productAPI := g.Group("/products", auth.Authenticate, auth.RequireModule(model.ModuleProducts))
	productAPI.GET("", h.ListProducts)
	productAPI.GET("/export", h.ExportProducts)
	productAPI.POST("", h.CreateProducts)
	productAPI.PUT("", h.UpdateProducts)
	productAPI.DELETE("", h.DeleteProducts)

	// Invoice API routes
	invoiceAPI := g.Group("/invoices", auth.Authenticate, auth.RequireModule(model.ModuleInvoices))
	invoiceAPI.GET("", h.ListInvoices)
	invoiceAPI.GET("/single-invoice", h.SingleInvoice)
	invoiceAPI.GET("/customer-invoices", h.CustomerInvoices)
	invoiceAPI.POST("", h.CreateInvoice)
	invoiceAPI.PUT("", h.UpdateInvoice)
	invoiceAPI.DELETE("", h.DeleteInvoice)

	// Settings are readable by every signed-in role; changing them needs the settings module
	settings := auth.RequireModule(model.ModuleSettings)
	g.GET("/currencies", h.GetCurrency, auth.Authenticate)
	g.PUT("/currencies", h.UpsertCurrency, auth.Authenticate, settings)
	g.GET("/generals", h.GetGeneral, auth.Authenticate)
	g.PUT("/generals", h.UpsertGeneral, auth.Authenticate, settings)
	g.GET("/terms", h.GetTerms, auth.Authenticate)
	g.PUT("/terms", h.UpsertTerms, auth.Authenticate, settings)
	g.GET("/permissions", h.GetPermissions, auth.Authenticate)
	g.PUT("/permissions", h.UpsertPermissions, auth.Authenticate, settings)

	g.PUT("/my-profile", h.UpdateProfile, auth.Authenticate)

	// Dashboard API routes
	dashboardAPI := g.Group("/dashboard", auth.Authenticate)
	dashboardAPI.GET("/metrics", h.DashboardMetrics)
	dashboardAPI.GET("/overview", h.DashboardOverview)
}
