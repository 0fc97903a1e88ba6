package files

import "time"

// EntryKind classifies a filesystem entry.
type EntryKind string

const (
	EntryFile      EntryKind = "file"
	EntryDirectory EntryKind = "directory"
	EntrySymlink   EntryKind = "symlink"
)

// Encoding values used by Content payloads.
const (
	EncodingUTF8   = "utf-8"
	EncodingBase64 = "base64"
)

// FileEntry describes a single filesystem entry to API clients.
// Path is always relative to the tenant root, forward-slashed, with no
// leading slash.
type FileEntry struct {
	Name             string     `json:"name"`
	Path             string     `json:"path"`
	Kind             EntryKind  `json:"kind"`
	Size             int64      `json:"size"`
	Permissions      string     `json:"permissions"`
	PermissionsOctal string     `json:"permissions_octal"`
	Owner            string     `json:"owner"`
	Group            string     `json:"group"`
	Modified         time.Time  `json:"modified"`
	Accessed         *time.Time `json:"accessed,omitempty"`
	Created          *time.Time `json:"created,omitempty"`
	Extension        string     `json:"extension,omitempty"`
	MimeType         string     `json:"mime_type,omitempty"`
	Hidden           bool       `json:"hidden"`
}

// Listing is the result of listing one directory level.
// Parent is nil exactly when Path is the tenant root.
type Listing struct {
	Path       string      `json:"path"`
	Parent     *string     `json:"parent,omitempty"`
	Items      []FileEntry `json:"items"`
	TotalItems int         `json:"total_items"`
	TotalSize  int64       `json:"total_size"`
}

// Content carries file contents between the engine and API clients.
// Encoding is decided by the engine on read; on write it declares how
// the caller encoded Content. Charset is set only when a text file fell
// back to base64 because its bytes were not valid UTF-8.
type Content struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Charset  string `json:"charset,omitempty"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type,omitempty"`
}

// Config is the immutable engine configuration, injected at
// construction. Zero-value extension lists fall back to the fixed
// defaults below.
type Config struct {
	// BasePath is the directory under which every tenant root lives.
	BasePath string
	// MaxUploadBytes caps write payloads, checked before any byte is
	// written.
	MaxUploadBytes int64
	// DeniedExtensions is the dangerous-extension denylist enforced
	// whenever an operation materializes a new entry name.
	DeniedExtensions []string
	// TextExtensions is the allowlist deciding text-vs-binary encoding
	// on read. Extension-less files are treated as text.
	TextExtensions []string
}

// defaultDeniedExtensions covers directly executable or loader-abused
// formats across the platforms tenants deploy to.
var defaultDeniedExtensions = []string{
	"exe", "sh", "bat", "cmd", "com", "ps1", "vbs", "js", "jar",
	"msi", "scr", "dll", "bin", "run",
}

var defaultTextExtensions = []string{
	"txt", "md", "markdown", "html", "htm", "css", "json", "xml",
	"yml", "yaml", "toml", "ini", "conf", "cfg", "env", "log", "csv",
	"tsv", "sql", "php", "py", "rb", "pl", "go", "rs", "c", "h",
	"cpp", "hpp", "java", "ts", "tsx", "jsx", "vue", "svelte",
	"htaccess", "gitignore", "editorconfig", "lock",
}

// DefaultConfig returns the engine configuration used in production,
// rooted at basePath.
func DefaultConfig(basePath string) Config {
	return Config{
		BasePath:         basePath,
		MaxUploadBytes:   50 << 20,
		DeniedExtensions: defaultDeniedExtensions,
		TextExtensions:   defaultTextExtensions,
	}
}
