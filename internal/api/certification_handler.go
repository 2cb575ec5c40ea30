package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumate/internal/database"
)

// CertificationHandler serves /profile/certifications.
type CertificationHandler struct {
	db *gorm.DB
}

// NewCertificationHandler constructs a CertificationHandler.
func NewCertificationHandler(db *gorm.DB) *CertificationHandler {
	return &CertificationHandler{db: db}
}

var certificationOwner = viaProfile(func(c *database.Certification) uint { return c.ProfileID })

type certificationRequest struct {
	Name          string    `json:"name" binding:"required,max=255"`
	Issuer        string    `json:"issuer" binding:"required,max=255"`
	IssueDate     *flexDate `json:"issueDate" binding:"required"`
	ExpiryDate    *flexDate `json:"expiryDate"`
	CredentialID  string    `json:"credentialId" binding:"max=255"`
	CredentialURL string    `json:"credentialUrl" binding:"omitempty,url,max=512"`
}

func (r certificationRequest) apply(m *database.Certification) error {
	m.Name = r.Name
	m.Issuer = r.Issuer
	m.IssueDate = r.IssueDate.value()
	m.ExpiryDate = r.ExpiryDate.ptr()
	m.CredentialID = r.CredentialID
	m.CredentialURL = r.CredentialURL
	if m.ExpiryDate != nil && m.ExpiryDate.Before(m.IssueDate) {
		return invalidField("expiryDate", "must not be before issueDate")
	}
	return nil
}

type certificationResponse struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Issuer        string    `json:"issuer"`
	IssueDate     string    `json:"issueDate"`
	ExpiryDate    *string   `json:"expiryDate"`
	CredentialID  string    `json:"credentialId"`
	CredentialURL string    `json:"credentialUrl"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func newCertificationResponse(c database.Certification) certificationResponse {
	return certificationResponse{
		ID:            c.ID,
		Name:          c.Name,
		Issuer:        c.Issuer,
		IssueDate:     c.IssueDate.Format("2006-01-02"),
		ExpiryDate:    isoPtr(c.ExpiryDate),
		CredentialID:  c.CredentialID,
		CredentialURL: c.CredentialURL,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (h *CertificationHandler) ListCertifications(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	q, err := parsePageQuery(c)
	if err != nil {
		ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	profile, err := profileForSession(ctx, h.db, session)
	if err != nil {
		writeLoadError(c, log, "profile", err)
		return
	}

	base := h.db.WithContext(ctx).Model(&database.Certification{}).Where("profile_id = ?", profile.ID)
	rows, total, next, err := paginate[database.Certification](base, q)
	if err != nil {
		log.Error("list certifications failed", slog.Any("error", err))
		Internal(c, "failed to list certifications")
		return
	}

	c.JSON(http.StatusOK, newPage(rows, total, next, q, newCertificationResponse))
}

func (h *CertificationHandler) CreateCertification(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req certificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	profile, err := profileForSession(ctx, h.db, session)
	if err != nil {
		writeLoadError(c, log, "profile", err)
		return
	}

	cert := database.Certification{ProfileID: profile.ID}
	if err := req.apply(&cert); err != nil {
		ValidationFailed(c, err)
		return
	}
	if err := h.db.WithContext(ctx).Create(&cert).Error; err != nil {
		log.Error("create certification failed", slog.Any("error", err))
		Internal(c, "failed to create certification")
		return
	}

	c.JSON(http.StatusCreated, newCertificationResponse(cert))
}

func (h *CertificationHandler) GetCertification(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	cert, err := loadOwned(c.Request.Context(), h.db, session, c.Param("id"), certificationOwner)
	if err != nil {
		writeLoadError(c, loggerFor(c, session), "certification", err)
		return
	}

	c.JSON(http.StatusOK, newCertificationResponse(*cert))
}

func (h *CertificationHandler) UpdateCertification(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req certificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	cert, err := loadOwned(ctx, h.db, session, c.Param("id"), certificationOwner)
	if err != nil {
		writeLoadError(c, log, "certification", err)
		return
	}
	if err := req.apply(cert); err != nil {
		ValidationFailed(c, err)
		return
	}
	if err := h.db.WithContext(ctx).Save(cert).Error; err != nil {
		log.Error("update certification failed", slog.Any("error", err))
		Internal(c, "failed to update certification")
		return
	}

	c.JSON(http.StatusOK, newCertificationResponse(*cert))
}

func (h *CertificationHandler) DeleteCertification(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	ctx := c.Request.Context()
	cert, err := loadOwned(ctx, h.db, session, c.Param("id"), certificationOwner)
	if err != nil {
		writeLoadError(c, log, "certification", err)
		return
	}
	if err := h.db.WithContext(ctx).Delete(cert).Error; err != nil {
		log.Error("delete certification failed", slog.Any("error", err))
		Internal(c, "failed to delete certification")
		return
	}

	c.Status(http.StatusNoContent)
}
