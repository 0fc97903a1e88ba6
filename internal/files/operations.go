package files

import (
	"context"
	"encoding/base64"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"

	"github.com/silverhost/panel/internal/infrastructure/logging"
	"github.com/silverhost/panel/internal/infrastructure/monitoring"
)

// maxReadBytes caps single-file reads; larger files must be fetched
// out of band.
const maxReadBytes = 10 << 20

// Service is the tenant-facing file engine. It holds no cross-request
// state beyond its immutable configuration; all isolation comes from
// the sandbox.
type Service struct {
	cfg     Config
	sandbox *Sandbox
	log     *logging.Logger
	metrics *monitoring.Metrics
	denied  map[string]struct{}
	text    map[string]struct{}
}

// NewService creates the engine rooted at cfg.BasePath.
func NewService(cfg Config, log *logging.Logger) (*Service, error) {
	sandbox, err := NewSandbox(cfg.BasePath)
	if err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig(cfg.BasePath).MaxUploadBytes
	}
	if len(cfg.DeniedExtensions) == 0 {
		cfg.DeniedExtensions = defaultDeniedExtensions
	}
	if len(cfg.TextExtensions) == 0 {
		cfg.TextExtensions = defaultTextExtensions
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Service{
		cfg:     cfg,
		sandbox: sandbox,
		log:     log,
		denied:  extensionSet(cfg.DeniedExtensions),
		text:    extensionSet(cfg.TextExtensions),
	}, nil
}

// WithMetrics attaches a metrics collector for per-operation
// instrumentation.
func (s *Service) WithMetrics(m *monitoring.Metrics) *Service {
	s.metrics = m
	s.sandbox.onRootCreate = m.IncTenantRootsCreated
	return s
}

// Sandbox exposes the path resolver, shared with every protocol
// surface so containment semantics can never diverge.
func (s *Service) Sandbox() *Sandbox { return s.sandbox }

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
	}
	return set
}

func extOf(name string) string {
	ext := filepath.Ext(name)
	// A lone leading dot marks a hidden file, not an extension.
	if ext == "" || ext == name {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// checkNewName validates a client-chosen entry name. The denylist is
// enforced here, i.e. on every operation that materializes a new
// directory entry with a client-supplied name.
func (s *Service) checkNewName(op, name string) error {
	if strings.TrimSpace(name) == "" {
		return validation(op, name, "name is required")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return validation(op, name, "name must not contain path separators")
	}
	if _, bad := s.denied[extOf(name)]; bad {
		return typeNotAllowed(op, name)
	}
	return nil
}

func (s *Service) record(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = KindOf(err).Code()
	}
	s.metrics.RecordFileOp(op, status, time.Since(start))
}

func (s *Service) entryAt(abs, canonRoot string) (*FileEntry, error) {
	info, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound("stat", s.sandbox.Rel(canonRoot, abs))
		}
		return nil, internal("stat", abs, err)
	}
	entry := describeEntry(abs, info, canonRoot)
	return &entry, nil
}

// List enumerates the direct children of a directory. Hidden entries
// are filtered unless showHidden; directories sort before files, each
// group ascending by name. TotalSize sums immediate children only.
func (s *Service) List(ctx context.Context, tenantID, relPath string, showHidden bool) (listing *Listing, err error) {
	start := time.Now()
	defer func() { s.record("list", start, err) }()

	abs, err := s.sandbox.Resolve(tenantID, relPath)
	if err != nil {
		return nil, err
	}
	canonRoot, err := s.sandbox.CanonicalRoot(tenantID)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound("list", relPath)
		}
		return nil, internal("list", relPath, err)
	}
	if !info.IsDir() {
		return nil, validation("list", relPath, "path is not a directory")
	}

	dirents, err := os.ReadDir(abs)
	if err != nil {
		return nil, internal("list", relPath, err)
	}

	items := make([]FileEntry, 0, len(dirents))
	var totalSize int64
	for _, de := range dirents {
		if !showHidden && strings.HasPrefix(de.Name(), ".") {
			continue
		}
		childInfo, ierr := de.Info()
		if ierr != nil {
			continue
		}
		entry := describeEntry(filepath.Join(abs, de.Name()), childInfo, canonRoot)
		// Directory sizes are inode sizes, not content sizes; only
		// file bytes are meaningful in the total.
		if entry.Kind == EntryFile {
			totalSize += entry.Size
		}
		items = append(items, entry)
	}

	sort.SliceStable(items, func(i, j int) bool {
		di, dj := items[i].Kind == EntryDirectory, items[j].Kind == EntryDirectory
		if di != dj {
			return di
		}
		return items[i].Name < items[j].Name
	})

	current := s.sandbox.Rel(canonRoot, abs)
	listing = &Listing{
		Path:       current,
		Items:      items,
		TotalItems: len(items),
		TotalSize:  totalSize,
	}
	if current != "" {
		parent := path.Dir(current)
		if parent == "." {
			parent = ""
		}
		listing.Parent = &parent
	}
	return listing, nil
}

// Create makes a new file or directory named name under relPath,
// creating missing parent directories.
func (s *Service) Create(ctx context.Context, tenantID, relPath, name string, kind EntryKind, content string) (entry *FileEntry, err error) {
	start := time.Now()
	defer func() { s.record("create", start, err) }()

	if kind != EntryFile && kind != EntryDirectory {
		return nil, validation("create", relPath, "file_type must be %q or %q", EntryFile, EntryDirectory)
	}
	if kind == EntryFile {
		if err := s.checkNewName("create", name); err != nil {
			return nil, err
		}
	} else if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "/\\") {
		return nil, validation("create", name, "name must be a single path component")
	}

	target := path.Join(relPath, name)
	abs, err := s.sandbox.Resolve(tenantID, target)
	if err != nil {
		return nil, err
	}
	canonRoot, err := s.sandbox.CanonicalRoot(tenantID)
	if err != nil {
		return nil, err
	}

	if _, lerr := os.Lstat(abs); lerr == nil {
		return nil, alreadyExists("create", target)
	}

	if kind == EntryDirectory {
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, internal("create", target, err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, internal("create", target, err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			return nil, internal("create", target, err)
		}
	}
	s.log.Debug("entry created",
		zap.String("tenant", tenantID), zap.String("path", target), zap.String("kind", string(kind)))
	return s.entryAt(abs, canonRoot)
}

// Read returns the contents of a regular file of at most 10 MiB.
// Text-vs-binary is decided by extension: allowlisted (and
// extension-less) files are attempted as UTF-8 and fall back to base64,
// everything else is base64-encoded.
func (s *Service) Read(ctx context.Context, tenantID, relPath string) (content *Content, err error) {
	start := time.Now()
	defer func() { s.record("read", start, err) }()

	abs, err := s.sandbox.Resolve(tenantID, relPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound("read", relPath)
		}
		return nil, internal("read", relPath, err)
	}
	if info.IsDir() {
		return nil, validation("read", relPath, "path is a directory")
	}
	if info.Size() > maxReadBytes {
		return nil, validation("read", relPath, "file exceeds the %d byte read limit", int64(maxReadBytes))
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, internal("read", relPath, err)
	}

	name := filepath.Base(abs)
	content = &Content{
		Path:     relPath,
		Name:     name,
		Size:     int64(len(data)),
		MimeType: mimetype.Detect(data).String(),
	}

	ext := extOf(name)
	_, isText := s.text[ext]
	if ext == "" {
		isText = true
	}

	switch {
	case isText && utf8.Valid(data):
		content.Content = string(data)
		content.Encoding = EncodingUTF8
	case isText:
		// Legacy encodings: ship base64 with a charset hint so the
		// client can transcode.
		content.Content = base64.StdEncoding.EncodeToString(data)
		content.Encoding = EncodingBase64
		if best, derr := chardet.NewTextDetector().DetectBest(data); derr == nil {
			content.Charset = best.Charset
		}
	default:
		content.Content = base64.StdEncoding.EncodeToString(data)
		content.Encoding = EncodingBase64
	}
	return content, nil
}

// Write replaces the contents of a file. The payload is size-checked
// before any byte hits disk, so an oversized write never leaves a
// partial file.
func (s *Service) Write(ctx context.Context, tenantID, relPath, content, encoding string, createIfMissing bool) (entry *FileEntry, err error) {
	start := time.Now()
	defer func() { s.record("write", start, err) }()

	var payload []byte
	switch encoding {
	case "", EncodingUTF8:
		payload = []byte(content)
	case EncodingBase64:
		payload, err = base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, validation("write", relPath, "content is not valid base64")
		}
	default:
		return nil, validation("write", relPath, "unsupported encoding %q", encoding)
	}
	if int64(len(payload)) > s.cfg.MaxUploadBytes {
		return nil, tooLarge("write", relPath, int64(len(payload)), s.cfg.MaxUploadBytes)
	}

	abs, err := s.sandbox.Resolve(tenantID, relPath)
	if err != nil {
		return nil, err
	}
	canonRoot, err := s.sandbox.CanonicalRoot(tenantID)
	if err != nil {
		return nil, err
	}

	if info, lerr := os.Lstat(abs); lerr == nil {
		if info.IsDir() {
			return nil, validation("write", relPath, "path is a directory")
		}
	} else if !os.IsNotExist(lerr) {
		return nil, internal("write", relPath, lerr)
	} else {
		if !createIfMissing {
			return nil, notFound("write", relPath)
		}
		if err := s.checkNewName("write", filepath.Base(abs)); err != nil {
			return nil, err
		}
		if _, perr := os.Stat(filepath.Dir(abs)); perr != nil {
			return nil, notFound("write", path.Dir(relPath))
		}
	}

	if err := os.WriteFile(abs, payload, 0o644); err != nil {
		return nil, internal("write", relPath, err)
	}
	return s.entryAt(abs, canonRoot)
}

// Delete removes a file or directory. The tenant root itself is never
// deletable; non-empty directories require recursive.
func (s *Service) Delete(ctx context.Context, tenantID, relPath string, recursive bool) (err error) {
	start := time.Now()
	defer func() { s.record("delete", start, err) }()

	abs, err := s.sandbox.Resolve(tenantID, relPath)
	if err != nil {
		return err
	}
	canonRoot, err := s.sandbox.CanonicalRoot(tenantID)
	if err != nil {
		return err
	}
	if abs == canonRoot {
		return validation("delete", relPath, "the tenant root directory cannot be deleted")
	}

	info, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return notFound("delete", relPath)
		}
		return internal("delete", relPath, err)
	}

	if info.IsDir() {
		if recursive {
			if err := os.RemoveAll(abs); err != nil {
				return internal("delete", relPath, err)
			}
			s.log.Info("directory deleted recursively",
				zap.String("tenant", tenantID), zap.String("path", relPath))
			return nil
		}
		children, rerr := os.ReadDir(abs)
		if rerr != nil {
			return internal("delete", relPath, rerr)
		}
		if len(children) > 0 {
			return validation("delete", relPath,
				"directory is not empty; set recursive to delete %d entries", len(children))
		}
	}
	if err := os.Remove(abs); err != nil {
		return internal("delete", relPath, err)
	}
	return nil
}

// Rename gives an entry a new name within its parent directory.
func (s *Service) Rename(ctx context.Context, tenantID, relPath, newName string) (entry *FileEntry, err error) {
	start := time.Now()
	defer func() { s.record("rename", start, err) }()

	if err := s.checkNewName("rename", newName); err != nil {
		return nil, err
	}

	abs, err := s.sandbox.Resolve(tenantID, relPath)
	if err != nil {
		return nil, err
	}
	canonRoot, err := s.sandbox.CanonicalRoot(tenantID)
	if err != nil {
		return nil, err
	}
	if abs == canonRoot {
		return nil, validation("rename", relPath, "the tenant root directory cannot be renamed")
	}
	if _, lerr := os.Lstat(abs); lerr != nil {
		if os.IsNotExist(lerr) {
			return nil, notFound("rename", relPath)
		}
		return nil, internal("rename", relPath, lerr)
	}

	dest := filepath.Join(filepath.Dir(abs), newName)
	if _, lerr := os.Lstat(dest); lerr == nil {
		return nil, alreadyExists("rename", newName)
	}
	if err := os.Rename(abs, dest); err != nil {
		return nil, internal("rename", relPath, err)
	}
	return s.entryAt(dest, canonRoot)
}

// Copy duplicates a file or directory tree. Directory copies are best
// effort file by file; a failure partway leaves a partial copy.
func (s *Service) Copy(ctx context.Context, tenantID, source, destination string, overwrite bool) (entry *FileEntry, err error) {
	start := time.Now()
	defer func() { s.record("copy", start, err) }()

	srcAbs, dstAbs, canonRoot, srcInfo, err := s.prepareTransfer(ctx, "copy", tenantID, source, destination, overwrite)
	if err != nil {
		return nil, err
	}

	if srcInfo.IsDir() {
		if err := s.copyTree(ctx, srcAbs, dstAbs); err != nil {
			return nil, err
		}
	} else {
		if err := copyFile(srcAbs, dstAbs, srcInfo.Mode().Perm()); err != nil {
			return nil, internal("copy", source, err)
		}
	}
	return s.entryAt(dstAbs, canonRoot)
}

// Move renames an entry to a new location. A rename across filesystem
// boundaries fails; it is surfaced, not retried as copy-and-delete.
func (s *Service) Move(ctx context.Context, tenantID, source, destination string, overwrite bool) (entry *FileEntry, err error) {
	start := time.Now()
	defer func() { s.record("move", start, err) }()

	srcAbs, dstAbs, canonRoot, _, err := s.prepareTransfer(ctx, "move", tenantID, source, destination, overwrite)
	if err != nil {
		return nil, err
	}
	if err := os.Rename(srcAbs, dstAbs); err != nil {
		if os.IsPermission(err) {
			return nil, permissionDenied("move", source)
		}
		return nil, internal("move", source, err)
	}
	return s.entryAt(dstAbs, canonRoot)
}

// prepareTransfer runs the shared validation for copy and move:
// resolve both endpoints, require the source, apply the overwrite
// policy, and vet the destination name.
func (s *Service) prepareTransfer(ctx context.Context, op, tenantID, source, destination string, overwrite bool) (srcAbs, dstAbs, canonRoot string, srcInfo os.FileInfo, err error) {
	srcAbs, err = s.sandbox.Resolve(tenantID, source)
	if err != nil {
		return
	}
	dstAbs, err = s.sandbox.Resolve(tenantID, destination)
	if err != nil {
		return
	}
	canonRoot, err = s.sandbox.CanonicalRoot(tenantID)
	if err != nil {
		return
	}
	if srcAbs == canonRoot {
		err = validation(op, source, "the tenant root directory cannot be moved or copied")
		return
	}
	// The destination guards mirror the source guard: an overwrite of
	// the root would RemoveAll the whole tenant tree, and a destination
	// inside the source would delete the source out from under the
	// transfer.
	if dstAbs == canonRoot {
		err = validation(op, destination, "the tenant root directory cannot be the destination")
		return
	}
	if contains(srcAbs, dstAbs) {
		err = validation(op, destination, "destination cannot be the source or inside it")
		return
	}

	srcInfo, lerr := os.Lstat(srcAbs)
	if lerr != nil {
		if os.IsNotExist(lerr) {
			err = notFound(op, source)
		} else {
			err = internal(op, source, lerr)
		}
		return
	}

	if !srcInfo.IsDir() {
		if nerr := s.checkNewName(op, filepath.Base(dstAbs)); nerr != nil {
			err = nerr
			return
		}
	}

	if _, lerr := os.Lstat(dstAbs); lerr == nil {
		if !overwrite {
			err = alreadyExists(op, destination)
			return
		}
		if rerr := os.RemoveAll(dstAbs); rerr != nil {
			err = internal(op, destination, rerr)
			return
		}
	} else if !os.IsNotExist(lerr) {
		err = internal(op, destination, lerr)
		return
	}

	if merr := os.MkdirAll(filepath.Dir(dstAbs), 0o755); merr != nil {
		err = internal(op, destination, merr)
	}
	return
}

func (s *Service) copyTree(ctx context.Context, srcAbs, dstAbs string) error {
	return filepath.WalkDir(srcAbs, func(p string, d os.DirEntry, werr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if werr != nil {
			return werr
		}
		rel, rerr := filepath.Rel(srcAbs, p)
		if rerr != nil {
			return rerr
		}
		target := filepath.Join(dstAbs, rel)

		info, ierr := d.Info()
		if ierr != nil {
			return nil
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case info.Mode()&os.ModeSymlink != 0:
			link, lerr := os.Readlink(p)
			if lerr != nil {
				return nil
			}
			return os.Symlink(link, target)
		default:
			return copyFile(p, target, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// DirectorySize walks a directory and sums regular file sizes.
func (s *Service) DirectorySize(ctx context.Context, tenantID, relPath string) (size int64, count int, err error) {
	start := time.Now()
	defer func() { s.record("size", start, err) }()

	abs, err := s.sandbox.Resolve(tenantID, relPath)
	if err != nil {
		return 0, 0, err
	}
	info, serr := os.Stat(abs)
	if serr != nil {
		if os.IsNotExist(serr) {
			return 0, 0, notFound("size", relPath)
		}
		return 0, 0, internal("size", relPath, serr)
	}
	if !info.IsDir() {
		return info.Size(), 1, nil
	}
	size, count, werr := walkSize(ctx, abs)
	if werr != nil {
		if ctx.Err() != nil {
			return 0, 0, internal("size", relPath, ctx.Err())
		}
		return 0, 0, internal("size", relPath, werr)
	}
	return size, count, nil
}
