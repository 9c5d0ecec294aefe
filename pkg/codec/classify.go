package codec

import (
	"mime"
	"path/filepath"
	"strings"
)

// mediaTypes is consulted before the platform mime database so that the
// same name classifies the same way on every machine.
var mediaTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".conf":     "text/plain",
	".ini":      "text/plain",
	".cfg":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".rst":      "text/x-rst",
	".csv":      "text/csv",
	".tsv":      "text/tab-separated-values",
	".htm":      "text/html",
	".html":     "text/html",
	".css":      "text/css",
	".js":       "text/javascript",
	".mjs":      "text/javascript",
	".xml":      "text/xml",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/x-toml",
	".py":       "text/x-python",
	".go":       "text/x-go",
	".c":        "text/x-c",
	".h":        "text/x-c",
	".cc":       "text/x-c++",
	".cpp":      "text/x-c++",
	".hpp":      "text/x-c++",
	".java":     "text/x-java",
	".rs":       "text/x-rust",
	".sh":       "text/x-sh",
	".bat":      "text/x-msdos-batch",
	".sql":      "text/x-sql",
	".tex":      "text/x-tex",
	".vcf":      "text/vcard",
	".ics":      "text/calendar",
	".json":     "application/json",
	".svg":      "image/svg+xml",
	".png":      "image/png",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".gif":      "image/gif",
	".webp":     "image/webp",
	".ico":      "image/vnd.microsoft.icon",
	".pdf":      "application/pdf",
	".zip":      "application/zip",
	".gz":       "application/gzip",
	".tar":      "application/x-tar",
	".wasm":     "application/wasm",
}

// MediaType returns the media type inferred from name's extension, or "" if
// the extension is missing or unknown.
func MediaType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if mt, ok := mediaTypes[ext]; ok {
		return mt
	}
	mt := mime.TypeByExtension(ext)
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.TrimSpace(mt)
}

// Classify infers the content kind of a file from its name. Only text/*
// media types are Text; anything else, including no extension, is Binary.
func Classify(name string) Kind {
	if strings.HasPrefix(MediaType(name), "text/") {
		return Text
	}
	return Binary
}
