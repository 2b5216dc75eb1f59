package attachment

import "strings"

// File categories with independent size ceilings
const (
	CategoryImage    = "image"
	CategoryVideo    = "video"
	CategoryAudio    = "audio"
	CategoryDocument = "document"
)

const mib = 1024 * 1024

// Size ceilings per category
var categoryLimits = map[string]int64{
	CategoryImage:    5 * mib,
	CategoryVideo:    50 * mib,
	CategoryAudio:    10 * mib,
	CategoryDocument: 20 * mib,
}

// MaxUploadSize is the largest ceiling of any category. Callers reading an
// upload stream can stop one byte past it.
const MaxUploadSize = 50 * mib

// FileType is an allow-listed extension and the MIME type stored for it
type FileType struct {
	MIME     string
	Category string
	// Group is either a MIME prefix ending in "/" or an exact MIME type
	Group string
	// Aliases are extra declared types accepted for this extension
	Aliases []string
}

// Limit returns the size ceiling for the file's category
func (f FileType) Limit() int64 {
	return categoryLimits[f.Category]
}

// Accepts reports whether a declared or sniffed MIME type belongs to the
// same group as the extension
func (f FileType) Accepts(mimeType string) bool {
	for _, alias := range f.Aliases {
		if mimeType == alias {
			return true
		}
	}
	if strings.HasSuffix(f.Group, "/") {
		return strings.HasPrefix(mimeType, f.Group)
	}
	return mimeType == f.Group
}

var allowedTypes = map[string]FileType{
	".jpg":  {MIME: "image/jpeg", Category: CategoryImage, Group: "image/"},
	".jpeg": {MIME: "image/jpeg", Category: CategoryImage, Group: "image/"},
	".png":  {MIME: "image/png", Category: CategoryImage, Group: "image/"},
	".gif":  {MIME: "image/gif", Category: CategoryImage, Group: "image/"},
	".webp": {MIME: "image/webp", Category: CategoryImage, Group: "image/"},
	".mp4":  {MIME: "video/mp4", Category: CategoryVideo, Group: "video/"},
	".webm": {MIME: "video/webm", Category: CategoryVideo, Group: "video/"},
	".mp3":  {MIME: "audio/mpeg", Category: CategoryAudio, Group: "audio/"},
	".ogg":  {MIME: "audio/ogg", Category: CategoryAudio, Group: "audio/", Aliases: []string{"application/ogg"}},
	".pdf":  {MIME: "application/pdf", Category: CategoryDocument, Group: "application/pdf"},
	".txt":  {MIME: "text/plain", Category: CategoryDocument, Group: "text/"},
}

// knownTypes indexes the allow-list by MIME type for content sniffing
var knownTypes = func() map[string]FileType {
	m := make(map[string]FileType, len(allowedTypes))
	for _, ft := range allowedTypes {
		m[ft.MIME] = ft
	}
	return m
}()

// Lookup returns the allow-listed type for a lower-cased extension
func Lookup(ext string) (FileType, bool) {
	ft, ok := allowedTypes[strings.ToLower(ext)]
	return ft, ok
}

// executableTypes are rejected whatever extension they arrive under
var executableTypes = []string{
	"application/vnd.microsoft.portable-executable",
	"application/x-msdownload",
	"application/x-elf",
	"application/x-executable",
	"application/x-sharedlib",
	"application/x-mach-binary",
}
