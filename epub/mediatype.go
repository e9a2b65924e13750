package epub

// mediaTypes maps lowercased file extensions to the media type declared
// for detached manifest entries inserted without an explicit one.
var mediaTypes = map[string]string{
	"jpg":   "image/jpeg",
	"jpeg":  "image/jpeg",
	"png":   "image/png",
	"svg":   "image/svg+xml",
	"gif":   "image/gif",
	"webp":  "image/webp",
	"xhtml": "application/xhtml+xml",
	"html":  "text/html",
	"htm":   "text/html",
	"css":   "text/css",
	"js":    "text/javascript",
	"smil":  "application/smil+xml",
	"ncx":   "application/x-dtbncx+xml",
	"xml":   "application/xml",
	"ttf":   "font/ttf",
	"otf":   "font/otf",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"mp3":   "audio/mpeg",
	"m4a":   "audio/mp4",
	"aac":   "audio/aac",
	"mp4":   "video/mp4",
	"m4v":   "video/mp4",
	"webm":  "video/webm",
}

// MediaTypeForExtension infers a media type from a lowercased file
// extension (without dot). Unknown extensions map to
// application/octet-stream.
func MediaTypeForExtension(ext string) string {
	if mt, ok := mediaTypes[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}
