package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/padraicbc/demoapi/models"
)

// DemoStore is the persistence DemoService needs.
type DemoStore interface {
	MatchingHashes(ctx context.Context, hashes []string) ([]string, error)
	InsertBatch(ctx context.Context, demos []models.Demo) ([]string, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Demo, error)
}

// FileStore hashes and relocates uploaded files.
type FileStore interface {
	Hash(path string) (string, error)
	Move(src, dst string) error
	Remove(path string) error
	FinalPath(userID int64, name string) string
}

// UploadedFile is a file that passed the upload checks and waits in temp storage.
type UploadedFile struct {
	TempPath string
	Filename string
}

// DemoService records uploaded demos, skipping content already stored.
//
// Deduplication is global across users. The hash lookup and the insert are
// separate, so two concurrent uploads of the same content can both be stored.
type DemoService struct {
	log   *zap.Logger
	demos DemoStore
	files FileStore
}

// NewDemoService wires a DemoService.
func NewDemoService(log *zap.Logger, demos DemoStore, files FileStore) *DemoService {
	return &DemoService{log: log, demos: demos, files: files}
}

// Upload stores the new files of a batch for userID and returns their final
// paths. Files whose content is already stored, or repeated within the
// batch, are deleted from temp storage and left out. On error every temp
// file of the batch and every file already moved is removed.
func (s *DemoService) Upload(ctx context.Context, userID int64, uploads []UploadedFile) ([]string, error) {
	const op = "service.DemoService.Upload"
	log := s.log.With(zap.String("op", op), zap.Int64("user", userID))

	if len(uploads) == 0 {
		return []string{}, nil
	}

	var moved []string
	abort := func() {
		s.discard(log, moved...)
		for _, f := range uploads {
			s.discard(log, f.TempPath)
		}
	}

	type candidate struct {
		UploadedFile
		md5 string
	}

	candidates := make([]candidate, 0, len(uploads))
	seen := make(map[string]bool, len(uploads))
	hashes := make([]string, 0, len(uploads))
	for _, f := range uploads {
		sum, err := s.files.Hash(f.TempPath)
		if err != nil {
			log.Error("hashing upload", zap.String("file", f.Filename), zap.Error(err))
			abort()
			return nil, storageErr(op, err)
		}
		if seen[sum] {
			log.Debug("duplicate within batch", zap.String("file", f.Filename), zap.String("md5", sum))
			s.discard(log, f.TempPath)
			continue
		}
		seen[sum] = true
		hashes = append(hashes, sum)
		candidates = append(candidates, candidate{UploadedFile: f, md5: sum})
	}

	existing, err := s.demos.MatchingHashes(ctx, hashes)
	if err != nil {
		log.Error("fetching matching hashes", zap.Error(err))
		abort()
		return nil, storageErr(op, err)
	}
	stored := make(map[string]bool, len(existing))
	for _, h := range existing {
		stored[h] = true
	}

	demos := make([]models.Demo, 0, len(candidates))
	for _, c := range candidates {
		if stored[c.md5] {
			log.Debug("demo already stored", zap.String("file", c.Filename), zap.String("md5", c.md5))
			s.discard(log, c.TempPath)
			continue
		}

		dst := s.files.FinalPath(userID, c.Filename)
		if err := s.files.Move(c.TempPath, dst); err != nil {
			abort()
			if errors.Is(err, fs.ErrExist) {
				log.Info("demo name taken", zap.String("file", c.Filename))
				return nil, fmt.Errorf("%s: %w: %s", op, ErrDemoExists, c.Filename)
			}
			log.Error("moving demo", zap.String("file", c.Filename), zap.Error(err))
			return nil, storageErr(op, err)
		}
		moved = append(moved, dst)
		demos = append(demos, models.Demo{Path: dst, CreateUser: userID, MD5Sum: c.md5})
	}

	if len(demos) == 0 {
		log.Info("nothing new in batch", zap.Int("files", len(uploads)))
		return []string{}, nil
	}

	paths, err := s.demos.InsertBatch(ctx, demos)
	if err != nil {
		log.Error("inserting demos", zap.Error(err))
		abort()
		return nil, storageErr(op, err)
	}

	log.Info("demos uploaded", zap.Int("files", len(uploads)), zap.Int("stored", len(paths)))
	return paths, nil
}

// List returns the demos uploaded by userID.
func (s *DemoService) List(ctx context.Context, userID int64) ([]models.Demo, error) {
	const op = "service.DemoService.List"

	demos, err := s.demos.ListByUser(ctx, userID)
	if err != nil {
		s.log.Error("listing demos", zap.String("op", op), zap.Int64("user", userID), zap.Error(err))
		return nil, storageErr(op, err)
	}
	return demos, nil
}

func (s *DemoService) discard(log *zap.Logger, paths ...string) {
	for _, p := range paths {
		if err := s.files.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn("removing file", zap.String("path", p), zap.Error(err))
		}
	}
}
