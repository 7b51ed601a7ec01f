package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/cloudbook/internal/apperror"
	"github.com/suteetoe/cloudbook/internal/model"
	"github.com/suteetoe/cloudbook/pkg/jwtutil"
	"github.com/suteetoe/cloudbook/pkg/logger"
	"github.com/suteetoe/cloudbook/pkg/password"
	"github.com/suteetoe/cloudbook/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type signUpRequest struct {
	Name     string `json:"name" validate:"required"`
	LastName string `json:"last_name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Contact  string `json:"contact" validate:"required"`
	Company  string `json:"company" validate:"required"`
	Address  string `json:"address" validate:"required"`
	Role     string `json:"role" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type idRequest struct {
	ID model.FlexID `json:"id"`
}

func adminClaims(admin *model.Admin) jwtutil.UserClaims {
	return jwtutil.UserClaims{
		ID:       admin.ID,
		Name:     admin.Name,
		LastName: admin.LastName,
		Email:    admin.Email,
		Contact:  admin.Contact,
		Company:  admin.Company,
		Address:  admin.Address,
		Role:     admin.Role,
		Image:    admin.Image,
		Logo:     admin.Logo,
	}
}

// Login authenticates an admin account
func (h *Handler) Login(c echo.Context) error {
	log := logger.FromContext(c)

	var req loginRequest
	if err := bind(c, &req, "Email and password are required"); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var admin model.Admin
	err := h.dbFor(c).Where("TRIM(email) = ?", strings.TrimSpace(req.Email)).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn("Admin not found", zap.String("email", req.Email))
		prometheus.RecordLogin("admin", "failure")
		prometheus.RecordAuthError("user_not_found")
		return apperror.Unauthorized("Invalid email or password")
	}
	if err != nil {
		return apperror.Internal("Failed to authenticate admin", err)
	}

	if !password.Verify(req.Password, admin.Password) {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordLogin("admin", "failure")
		prometheus.RecordAuthError("invalid_password")
		return apperror.Unauthorized("Invalid email or password")
	}

	token, err := h.jwt.GenerateToken(adminClaims(&admin))
	if err != nil {
		prometheus.RecordAuthError("token_generation_failed")
		return apperror.Internal("Failed to authenticate admin", err)
	}

	prometheus.RecordLogin("admin", "success")
	log.Info("Admin logged in", zap.Uint("user_id", admin.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"admin": admin,
	})
}

// EmployeeLogin authenticates an employee and issues a token scoped to its tenant
func (h *Handler) EmployeeLogin(c echo.Context) error {
	log := logger.FromContext(c)

	var req loginRequest
	if err := bind(c, &req, "Email and password are required"); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	db := h.dbFor(c)

	var employee model.Employee
	err := db.Where("email = ?", strings.TrimSpace(req.Email)).First(&employee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn("Employee not found", zap.String("email", req.Email))
		prometheus.RecordLogin("employee", "failure")
		prometheus.RecordAuthError("user_not_found")
		return apperror.Unauthorized("Invalid email or password")
	}
	if err != nil {
		return apperror.Internal("Failed to authenticate employee", err)
	}

	if !password.Verify(req.Password, employee.Password) {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordLogin("employee", "failure")
		prometheus.RecordAuthError("invalid_password")
		return apperror.Unauthorized("Invalid email or password")
	}

	var admin model.Admin
	err = db.Select("id", "contact", "company", "logo", "address").First(&admin, employee.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("Employee belongs to a missing admin", zap.Uint("user_id", employee.UserID))
		return apperror.NotFound("Admin data not found")
	}
	if err != nil {
		return apperror.Internal("Failed to authenticate employee", err)
	}

	token, err := h.jwt.GenerateToken(jwtutil.UserClaims{
		ID:      employee.UserID,
		Name:    employee.Name,
		Email:   employee.Email,
		Role:    employee.Role,
		Status:  employee.Status,
		Contact: admin.Contact,
		Company: admin.Company,
		Logo:    admin.Logo,
		Address: admin.Address,
	})
	if err != nil {
		prometheus.RecordAuthError("token_generation_failed")
		return apperror.Internal("Failed to authenticate employee", err)
	}

	prometheus.RecordLogin("employee", "success")
	log.Info("Employee logged in",
		zap.Uint("employee_id", employee.ID),
		zap.Uint("user_id", employee.UserID))
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

// SignUp registers a new admin tenant
func (h *Handler) SignUp(c echo.Context) error {
	log := logger.FromContext(c)

	var req signUpRequest
	if err := bind(c, &req, "Missing required fields"); err != nil {
		return err
	}

	db := h.dbFor(c)
	email := strings.TrimSpace(req.Email)

	var count int64
	if err := db.Model(&model.Admin{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return apperror.Internal("Failed to register user", err)
	}
	if count > 0 {
		log.Warn("Email already registered", zap.String("email", email))
		return apperror.Conflict("Email already exists")
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return apperror.Internal("Failed to register user", err)
	}

	admin := model.Admin{
		Name:     req.Name,
		LastName: req.LastName,
		Email:    email,
		Contact:  req.Contact,
		Company:  req.Company,
		Address:  req.Address,
		Role:     req.Role,
		Password: hashed,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := db.Create(&admin).Error; err != nil {
		// the unique index catches a concurrent sign-up with the same email
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.Conflict("Email already exists")
		}
		return apperror.Internal("Failed to register user", err)
	}

	log.Info("Admin registered", zap.Uint("user_id", admin.ID), zap.String("email", admin.Email))
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "User registered successfully",
		"userId":  admin.ID,
	})
}

// ListAdmins returns every admin account
func (h *Handler) ListAdmins(c echo.Context) error {
	var admins []model.Admin
	if err := h.dbFor(c).Order("id").Find(&admins).Error; err != nil {
		return apperror.Internal("Failed to retrieve users", err)
	}
	if admins == nil {
		admins = []model.Admin{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": admins})
}

// DeleteAdmin removes an admin and every row it owns
func (h *Handler) DeleteAdmin(c echo.Context) error {
	log := logger.FromContext(c)

	var req idRequest
	if err := c.Bind(&req); err != nil || req.ID == 0 {
		return apperror.Validation("User ID is required")
	}

	var admin model.Admin
	err := h.withLockedRow(c.Request().Context(), &admin, req.ID.Uint(), "User not found", func(tx *gorm.DB) error {
		owned := []interface{}{
			&model.Employee{}, &model.Customer{}, &model.Product{}, &model.Invoice{},
			&model.Currency{}, &model.General{}, &model.Term{}, &model.Permission{},
		}
		for _, m := range owned {
			if err := tx.Where("user_id = ?", admin.ID).Delete(m).Error; err != nil {
				return apperror.Internal("Failed to delete user", err)
			}
		}
		if err := tx.Delete(&admin).Error; err != nil {
			return apperror.Internal("Failed to delete user", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("Admin deleted", zap.Uint("user_id", admin.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "User deleted successfully"})
}
