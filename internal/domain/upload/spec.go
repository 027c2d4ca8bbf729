package upload

const (
	FilesDir  = "files"
	ImagesDir = "images"

	FilesURLPrefix  = "/files"
	ImagesURLPrefix = "/images"
)

var imageTypes = []string{"image/"}

// Limits are the configurable bounds shared by every upload endpoint.
type Limits struct {
	MaxBodyBytes int64
	MaxFileBytes int64
	MaxFiles     int
}

// SingleImageSpec backs the anonymous POST /files/uploads.
func SingleImageSpec(l Limits) Spec {
	return Spec{
		FieldName:           "image",
		Arity:               One,
		Dir:                 FilesDir,
		URLPrefix:           FilesURLPrefix,
		AllowedMimePrefixes: imageTypes,
		MaxFileSize:         l.MaxFileBytes,
	}
}

// MultiImageSpec backs the anonymous POST /files/uploadMulti.
func MultiImageSpec(l Limits) Spec {
	return Spec{
		FieldName:           "image",
		Arity:               Many,
		MaxFiles:            l.MaxFiles,
		Dir:                 FilesDir,
		URLPrefix:           FilesURLPrefix,
		AllowedMimePrefixes: imageTypes,
		MaxFileSize:         l.MaxFileBytes,
	}
}

// BatchSpec backs the authenticated POST /files/upload-multiple.
func BatchSpec(l Limits) Spec {
	return Spec{
		FieldName:           "files",
		Arity:               Many,
		MaxFiles:            l.MaxFiles,
		Dir:                 ImagesDir,
		URLPrefix:           ImagesURLPrefix,
		AllowedMimePrefixes: imageTypes,
		MaxFileSize:         l.MaxFileBytes,
	}
}

// AvatarSpec backs POST /users/upload-avatar.
func AvatarSpec(l Limits) Spec {
	return Spec{
		FieldName:           "avatar",
		Arity:               One,
		Dir:                 ImagesDir,
		URLPrefix:           ImagesURLPrefix,
		AllowedMimePrefixes: imageTypes,
		MaxFileSize:         l.MaxFileBytes,
	}
}
