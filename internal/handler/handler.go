package handler

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/cloudbook/internal/apperror"
	"github.com/suteetoe/cloudbook/internal/model"
	"github.com/suteetoe/cloudbook/pkg/jwtutil"
	"github.com/suteetoe/cloudbook/pkg/mailer"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultMaxProductUnits = 10000
	maxRequestBodyLen      = 10 << 20
)

// Options tune handler behaviour that differs between deployments.
type Options struct {
	UploadDir string
	OTPTTL    time.Duration

	// MaxProductUnits caps the unit rows a single product create may insert. Zero means 10000.
	MaxProductUnits int

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Handler serves every CloudBook resource over one shared connection pool.
type Handler struct {
	db        *gorm.DB
	jwt       *jwtutil.JWTUtil
	mailer    mailer.Sender
	uploadDir string
	otpTTL    time.Duration
	maxUnits  int
	now       func() time.Time
}

func New(db *gorm.DB, jwt *jwtutil.JWTUtil, sender mailer.Sender, opts Options) *Handler {
	h := &Handler{
		db:        db,
		jwt:       jwt,
		mailer:    sender,
		uploadDir: opts.UploadDir,
		otpTTL:    opts.OTPTTL,
		maxUnits:  opts.MaxProductUnits,
		now:       opts.Now,
	}
	if h.uploadDir == "" {
		h.uploadDir = "public/uploads"
	}
	if h.maxUnits <= 0 {
		h.maxUnits = defaultMaxProductUnits
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

func (h *Handler) dbFor(c echo.Context) *gorm.DB {
	return h.db.WithContext(c.Request().Context())
}

// ensureTenant fails with NotFound unless userID names an existing admin.
func ensureTenant(tx *gorm.DB, userID uint) error {
	var count int64
	if err := tx.Model(&model.Admin{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return apperror.Internal("Failed to look up admin", err)
	}
	if count == 0 {
		return apperror.NotFound("Admin not found")
	}
	return nil
}

// withLockedRow locks the row with the given id and runs fn in the same transaction,
// so the existence check and the mutation cannot interleave with another request.
func (h *Handler) withLockedRow(ctx context.Context, dest interface{}, id uint, notFound string, fn func(tx *gorm.DB) error) error {
	return h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(dest, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound(notFound)
		}
		if err != nil {
			return apperror.Internal("Failed to look up record", err)
		}
		return fn(tx)
	})
}

// bind decodes the request and checks its validate tags. Any missing field yields message as a 400.
func bind(c echo.Context, req interface{}, message string) error {
	if err := c.Bind(req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return apperror.Validation(message)
	}
	return nil
}

// readBody reads a request body for handlers that decode polymorphic JSON themselves.
func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxRequestBodyLen))
	if err != nil {
		return nil, apperror.Validation("Invalid request body")
	}
	return body, nil
}

// tenantQuery parses the optional user_id query parameter.
func tenantQuery(c echo.Context) (uint, bool, error) {
	raw := c.QueryParam("user_id")
	if raw == "" {
		return 0, false, nil
	}
	id, err := model.ParseFlexID(raw)
	if err != nil || id == 0 {
		return 0, false, apperror.Validation("Invalid user_id")
	}
	return id.Uint(), true, nil
}

// tenantHeader reads the tenant id some settings endpoints take from the user_id header.
func tenantHeader(c echo.Context) (uint, error) {
	id, err := model.ParseFlexID(c.Request().Header.Get("user_id"))
	if err != nil || id == 0 {
		return 0, apperror.Validation("User ID is required")
	}
	return id.Uint(), nil
}

// listByTenant loads all rows of dest's type, scoped to user_id when the query names one.
// A tenant-scoped query with no rows is a NotFound.
func listByTenant[T any](c echo.Context, db *gorm.DB, notFound string) ([]T, error) {
	userID, scoped, err := tenantQuery(c)
	if err != nil {
		return nil, err
	}

	var rows []T
	query := db.Order("id")
	if scoped {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, apperror.Internal("Failed to retrieve records", err)
	}
	if scoped && len(rows) == 0 {
		return nil, apperror.NotFound(notFound)
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}
