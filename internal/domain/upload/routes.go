package upload

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the upload and retrieval endpoints. requireAuth runs
// before any body parsing on protected routes; guards (deadline, etc.) wrap
// every upload route.
func RegisterRoutes(r gin.IRouter, h *Handler, requireAuth gin.HandlerFunc, guards ...gin.HandlerFunc) {
	files := r.Group("/files")
	{
		files.GET("/:filename", h.ServeFile(FilesDir))
		files.POST("/uploads", chain(nil, guards, h.UploadSingle)...)
		files.POST("/uploadMulti", chain(nil, guards, h.UploadMulti)...)
		files.POST("/upload-multiple", chain(requireAuth, guards, h.UploadBatch)...)
	}

	r.GET("/images/:filename", h.ServeFile(ImagesDir))

	users := r.Group("/users")
	{
		users.POST("/upload-avatar", chain(requireAuth, guards, h.UploadAvatar)...)
	}
}

func chain(first gin.HandlerFunc, guards []gin.HandlerFunc, last gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(guards)+2)
	if first != nil {
		out = append(out, first)
	}
	out = append(out, guards...)
	return append(out, last)
}
