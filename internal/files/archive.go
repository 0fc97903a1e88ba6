package files

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"go.uber.org/zap"
)

// Compress packs one or more sandbox entries into a zip archive. The
// archive is written next to the first source's parent directory.
// Directory sources keep their name as the top-level prefix so the
// archive round-trips through Extract.
func (s *Service) Compress(ctx context.Context, tenantID string, paths []string, archiveName string) (entry *FileEntry, err error) {
	start := time.Now()
	defer func() { s.record("compress", start, err) }()

	if len(paths) == 0 {
		return nil, validation("compress", "", "at least one source path is required")
	}
	if strings.TrimSpace(archiveName) == "" {
		return nil, validation("compress", "", "archive name is required")
	}
	if strings.ContainsAny(archiveName, "/\\") {
		return nil, validation("compress", archiveName, "archive name must be a single path component")
	}
	if !strings.HasSuffix(strings.ToLower(archiveName), ".zip") {
		archiveName += ".zip"
	}

	canonRoot, err := s.sandbox.CanonicalRoot(tenantID)
	if err != nil {
		return nil, err
	}

	sources := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, rerr := s.sandbox.Resolve(tenantID, p)
		if rerr != nil {
			return nil, rerr
		}
		if _, serr := os.Lstat(abs); serr != nil {
			if os.IsNotExist(serr) {
				return nil, notFound("compress", p)
			}
			return nil, internal("compress", p, serr)
		}
		sources = append(sources, abs)
	}

	archiveRel := path.Join(path.Dir(strings.Trim(paths[0], "/")), archiveName)
	archiveAbs, err := s.sandbox.Resolve(tenantID, archiveRel)
	if err != nil {
		return nil, err
	}
	if _, serr := os.Lstat(archiveAbs); serr == nil {
		return nil, alreadyExists("compress", archiveRel)
	}

	out, err := os.OpenFile(archiveAbs, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, internal("compress", archiveRel, err)
	}

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestSpeed)
	})

	for _, src := range sources {
		if err := addToArchive(ctx, zw, src, archiveAbs); err != nil {
			zw.Close()
			out.Close()
			os.Remove(archiveAbs)
			if ctx.Err() != nil {
				return nil, internal("compress", archiveRel, ctx.Err())
			}
			return nil, internal("compress", archiveRel, err)
		}
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(archiveAbs)
		return nil, internal("compress", archiveRel, err)
	}
	if err := out.Close(); err != nil {
		return nil, internal("compress", archiveRel, err)
	}

	s.log.Info("archive created",
		zap.String("tenant", tenantID),
		zap.String("archive", archiveRel),
		zap.Int("sources", len(sources)))
	entry, err = s.entryAt(archiveAbs, canonRoot)
	if err == nil && s.metrics != nil {
		s.metrics.RecordArchiveBytes("compress", entry.Size)
	}
	return entry, err
}

// addToArchive writes a single source into the zip. Directories are
// walked sequentially; zip.Writer is not safe for concurrent entry
// writes. Empty directories get explicit trailing-slash entries. The
// output file itself is excluded from the walk: when the archive lands
// inside the tree being packed it must not swallow its own
// partially-written bytes.
func addToArchive(ctx context.Context, zw *zip.Writer, src, outputAbs string) error {
	base := filepath.Base(src)
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return writeArchiveFile(zw, src, base, info)
	}

	return filepath.WalkDir(src, func(p string, d os.DirEntry, werr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if werr != nil {
			return werr
		}
		if p == outputAbs {
			return nil
		}
		rel, rerr := filepath.Rel(src, p)
		if rerr != nil {
			return rerr
		}
		name := base
		if rel != "." {
			name = path.Join(base, filepath.ToSlash(rel))
		}

		einfo, ierr := d.Info()
		if ierr != nil {
			return ierr
		}
		if d.IsDir() {
			hdr, herr := zip.FileInfoHeader(einfo)
			if herr != nil {
				return herr
			}
			hdr.Name = name + "/"
			_, herr = zw.CreateHeader(hdr)
			return herr
		}
		if !einfo.Mode().IsRegular() {
			return nil
		}
		return writeArchiveFile(zw, p, name, einfo)
	})
}

func writeArchiveFile(zw *zip.Writer, src, name string, info os.FileInfo) error {
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = io.Copy(w, in)
	return err
}

// Extract unpacks a zip archive into a destination directory inside
// the same tenant sandbox. Entries whose names would escape the
// destination are skipped and logged, never written. Existing files
// are skipped unless overwrite is set.
func (s *Service) Extract(ctx context.Context, tenantID, archivePath, destination string, overwrite bool) (entry *FileEntry, err error) {
	start := time.Now()
	defer func() { s.record("extract", start, err) }()

	archiveAbs, err := s.sandbox.Resolve(tenantID, archivePath)
	if err != nil {
		return nil, err
	}
	destAbs, err := s.sandbox.Resolve(tenantID, destination)
	if err != nil {
		return nil, err
	}
	canonRoot, err := s.sandbox.CanonicalRoot(tenantID)
	if err != nil {
		return nil, err
	}

	if !strings.HasSuffix(strings.ToLower(archiveAbs), ".zip") {
		return nil, validation("extract", archivePath, "only zip archives are supported")
	}

	zr, err := zip.OpenReader(archiveAbs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound("extract", archivePath)
		}
		return nil, validation("extract", archivePath, "file is not a valid zip archive")
	}
	defer zr.Close()
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	if err := os.MkdirAll(destAbs, 0o755); err != nil {
		return nil, internal("extract", destination, err)
	}
	if info, serr := os.Stat(archiveAbs); serr == nil && s.metrics != nil {
		s.metrics.RecordArchiveBytes("extract", info.Size())
	}
	cleanDest := filepath.Clean(destAbs)

	var written, skipped int
	for _, f := range zr.File {
		select {
		case <-ctx.Done():
			return nil, internal("extract", archivePath, ctx.Err())
		default:
		}

		target := filepath.Join(cleanDest, filepath.FromSlash(f.Name))
		if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			s.log.Warn("skipping archive entry outside destination",
				zap.String("tenant", tenantID),
				zap.String("archive", archivePath),
				zap.String("entry", f.Name))
			skipped++
			continue
		}

		if f.FileInfo().IsDir() {
			if merr := os.MkdirAll(target, f.Mode().Perm()|0o700); merr != nil {
				return nil, internal("extract", destination, merr)
			}
			continue
		}

		if _, serr := os.Lstat(target); serr == nil && !overwrite {
			skipped++
			continue
		}
		if merr := os.MkdirAll(filepath.Dir(target), 0o755); merr != nil {
			return nil, internal("extract", destination, merr)
		}
		if werr := extractFile(f, target); werr != nil {
			return nil, internal("extract", f.Name, werr)
		}
		written++
	}

	s.log.Info("archive extracted",
		zap.String("tenant", tenantID),
		zap.String("archive", archivePath),
		zap.String("destination", destination),
		zap.Int("written", written),
		zap.Int("skipped", skipped))
	return s.entryAt(destAbs, canonRoot)
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
