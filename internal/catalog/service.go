package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"vectortube/internal/errs"
	"vectortube/internal/storage"
)

// Config is everything the catalog needs to know about uploads. Each Service
// owns its own Config, so several storage roots can coexist in one process.
type Config struct {
	StorageRoot  string
	AllowedTypes []string
	URLPrefix    string

	// Now drives stored file names; defaults to time.Now.
	Now func() time.Time
}

// Service orders every catalog mutation across the asset store and the
// record store. Files are written before the record that references them and
// removed after it, so a visible record never points at a file that was
// never stored.
type Service struct {
	records   RecordStore
	assets    AssetStore
	resolver  *PathResolver
	validator *UploadValidator
	projector Projector
	now       func() time.Time
	log       *zap.Logger
}

// NewService wires a catalog. A nil assets uses the filesystem under
// cfg.StorageRoot.
func NewService(cfg Config, records RecordStore, assets AssetStore, log *zap.Logger) (*Service, error) {
	if records == nil {
		return nil, errors.New("catalog: record store is required")
	}
	if cfg.StorageRoot == "" {
		return nil, errors.New("catalog: storage root is required")
	}
	if assets == nil {
		assets = storage.NewFSAssetStore(cfg.StorageRoot)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		records:   records,
		assets:    assets,
		resolver:  NewPathResolver(cfg.StorageRoot, cfg.Now),
		validator: NewUploadValidator(cfg.AllowedTypes),
		projector: NewProjector(cfg.URLPrefix),
		now:       cfg.Now,
		log:       log.Named("catalog"),
	}, nil
}

// URLPrefix is the path under which projected thumbnails resolve.
func (s *Service) URLPrefix() string {
	return s.projector.Prefix()
}

// Create validates the input, stores the thumbnail if any, and then persists
// the record. The returned record carries a projected thumbnail URL.
func (s *Service) Create(ctx context.Context, origin Origin, in CreateInput) (Record, error) {
	if err := validateFields(in); err != nil {
		return Record{}, err
	}

	ref := ""
	if in.Thumbnail != nil {
		if err := s.validator.Check(in.Thumbnail.ContentType); err != nil {
			return Record{}, err
		}

		resolved, err := s.resolver.Resolve(in.Thumbnail.Filename)
		if err != nil {
			return Record{}, err
		}
		if err := s.assets.Put(ctx, resolved.Name, in.Thumbnail.Body); err != nil {
			return Record{}, errs.Wrap(errs.IO, "create", "failed to store thumbnail", err)
		}
		ref = resolved.Name
	}

	rec, err := s.records.Create(ctx, Record{
		Title:       in.Title,
		Description: in.Description,
		Thumbnail:   ref,
		Link:        in.Link,
	})
	if err != nil {
		if ref != "" {
			s.discard(ctx, ref, "record not saved")
		}
		return Record{}, errs.Wrap(errs.Store, "create", "failed to save video", err)
	}

	s.log.Info("video created", zap.String("id", rec.ID), zap.String("thumbnail", rec.Thumbnail))
	return s.projector.Project(origin, rec), nil
}

// List returns every record, projected. An empty catalog is an empty slice.
func (s *Service) List(ctx context.Context, origin Origin) ([]Record, error) {
	recs, err := s.records.List(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.Store, "list", "failed to fetch videos", err)
	}

	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		out = append(out, s.projector.Project(origin, rec))
	}
	return out, nil
}

// Get returns one projected record.
func (s *Service) Get(ctx context.Context, origin Origin, id string) (Record, error) {
	if !ValidID(id) {
		return Record{}, errs.Validationf("get", "invalid ID format %q", id)
	}

	rec, err := s.records.Read(ctx, id)
	if err != nil {
		return Record{}, errs.Wrap(errs.Store, "get", "failed to fetch video", err)
	}
	if rec == nil {
		return Record{}, errs.E(errs.NotFound, "get", "video not found")
	}
	return s.projector.Project(origin, *rec), nil
}

// Delete removes the record and then, best effort, its thumbnail. Once the
// record is gone the call succeeds; a file that cannot be removed is logged
// and left for Reconcile. The returned record keeps its stored ref.
func (s *Service) Delete(ctx context.Context, id string) (Record, error) {
	if !ValidID(id) {
		return Record{}, errs.Validationf("delete", "invalid ID format %q", id)
	}

	rec, err := s.records.Delete(ctx, id)
	if err != nil {
		return Record{}, errs.Wrap(errs.Store, "delete", "failed to delete video", err)
	}
	if rec == nil {
		return Record{}, errs.E(errs.NotFound, "delete", "video not found")
	}

	if rec.Thumbnail != "" {
		s.discard(ctx, rec.Thumbnail, "record deleted")
	}

	s.log.Info("video deleted", zap.String("id", rec.ID), zap.String("thumbnail", rec.Thumbnail))
	return *rec, nil
}

// CheckRemoved reports records still referencing ref after its file went
// away. It is fed by the storage watcher.
func (s *Service) CheckRemoved(ctx context.Context, ref string) ([]Record, error) {
	recs, err := s.records.List(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.Store, "check", "failed to fetch videos", err)
	}

	var dangling []Record
	for _, rec := range recs {
		if rec.Thumbnail == ref {
			dangling = append(dangling, rec)
			s.log.Warn("dangling thumbnail reference", zap.String("id", rec.ID), zap.String("thumbnail", ref))
		}
	}
	return dangling, nil
}

// discard removes a file whose record is gone or was never written. Failure
// leaves an orphan, which is logged and not reported to the caller.
func (s *Service) discard(ctx context.Context, ref, reason string) {
	if err := s.assets.Delete(context.WithoutCancel(ctx), ref); err != nil {
		s.log.Warn("failed to remove thumbnail",
			zap.String("thumbnail", ref),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}

func validateFields(in CreateInput) error {
	var missing []string
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, `"title"`)
	}
	if strings.TrimSpace(in.Description) == "" {
		missing = append(missing, `"description"`)
	}
	if strings.TrimSpace(in.Link) == "" {
		missing = append(missing, `"link"`)
	}
	if len(missing) > 0 {
		return errs.Validationf("create", "%s is required", strings.Join(missing, ", "))
	}
	return nil
}
