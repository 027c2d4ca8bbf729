package upload

import (
	"errors"
	"net/http"
	"strings"

	"filedrop/internal/domain/auth"
	"filedrop/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Handler exposes the ingestion pipeline and static retrieval over HTTP.
type Handler struct {
	service       *Service
	limits        Limits
	publicBaseURL string

	single Spec
	multi  Spec
	batch  Spec
	avatar Spec
}

func NewHandler(service *Service, limits Limits, publicBaseURL string) *Handler {
	return &Handler{
		service:       service,
		limits:        limits,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		single:        SingleImageSpec(limits),
		multi:         MultiImageSpec(limits),
		batch:         BatchSpec(limits),
		avatar:        AvatarSpec(limits),
	}
}

// UploadSingle handles POST /files/uploads.
func (h *Handler) UploadSingle(c *gin.Context) {
	stored, ok := h.ingest(c, h.single)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"url": stored[0].AbsoluteURL})
}

// UploadMulti handles POST /files/uploadMulti.
func (h *Handler) UploadMulti(c *gin.Context) {
	stored, ok := h.ingest(c, h.multi)
	if !ok {
		return
	}
	urls := make([]string, 0, len(stored))
	for _, sf := range stored {
		urls = append(urls, sf.AbsoluteURL)
	}
	response.Success(c, http.StatusOK, gin.H{"urls": urls})
}

// UploadBatch handles POST /files/upload-multiple. Requires a principal.
func (h *Handler) UploadBatch(c *gin.Context) {
	if _, ok := mustPrincipal(c); !ok {
		return
	}
	stored, ok := h.ingest(c, h.batch)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, stored)
}

// UploadAvatar handles POST /users/upload-avatar. Requires a principal.
func (h *Handler) UploadAvatar(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	parts, cleanup, err := ReadParts(c.Writer, c.Request, h.limits.MaxBodyBytes)
	defer cleanup()
	if err != nil {
		fail(c, err)
		return
	}

	user, _, err := h.service.UploadAvatar(c.Request.Context(), principal, h.avatar, parts, h.baseURL(c))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message":   "Avatar uploaded",
		"avatarURL": user.AvatarURL,
		"user": gin.H{
			"id":        user.ID,
			"username":  user.Username,
			"email":     user.Email,
			"fullName":  user.FullName,
			"avatarURL": user.AvatarURL,
		},
	})
}

// ServeFile returns a handler for GET <prefix>/:filename reading from dir.
func (h *Handler) ServeFile(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, info, err := h.service.Storage().Open(dir, c.Param("filename"))
		if err != nil {
			if errors.Is(err, ErrFileNotFound) {
				response.Error(c, http.StatusNotFound, "NOT_FOUND", "File not found")
				return
			}
			fail(c, err)
			return
		}
		defer f.Close()

		c.Header("X-Content-Type-Options", "nosniff")
		http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
	}
}

func (h *Handler) ingest(c *gin.Context, spec Spec) ([]StoredFile, bool) {
	parts, cleanup, err := ReadParts(c.Writer, c.Request, h.limits.MaxBodyBytes)
	defer cleanup()
	if err != nil {
		fail(c, err)
		return nil, false
	}

	stored, err := h.service.Ingest(c.Request.Context(), spec, parts, h.baseURL(c))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return stored, true
}

func (h *Handler) baseURL(c *gin.Context) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	// Only the first hop counts, and only a web scheme is accepted.
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		switch first := strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0])); first {
		case "http", "https":
			scheme = first
		}
	}
	return scheme + "://" + c.Request.Host
}

func mustPrincipal(c *gin.Context) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(c.Request.Context())
	if !ok || p.UserID == 0 {
		fail(c, auth.ErrCredentialMissing)
		return auth.Principal{}, false
	}
	return p, true
}
