package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/floorvault/apiserver/internal/access"
	"github.com/floorvault/apiserver/internal/storage"
	"github.com/floorvault/apiserver/internal/thumbnail"
	"github.com/floorvault/apiserver/types"
)

const (
	msgNoFiles          = "no files provided"
	msgNoFileSucceeded  = "no file succeeded"
	msgNotAnImage       = "not an image"
	msgFileEmpty        = "file is empty"
	msgFileTooLarge     = "file exceeds size limit"
	msgStoreFailed      = "failed to store file"
	msgThumbnailFailed  = "failed to generate thumbnail"
	msgSaveRecordFailed = "failed to save image record"
	thumbnailNameSuffix = "-300x300"
	defaultMaxFileBytes = 20 << 20
)

// UploadedFile is one file part of an upload request. Size is the declared
// size; Data may be nil when the part was too large to read.
type UploadedFile struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// Rejection explains why one uploaded file was skipped.
type Rejection struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// IngestResult lists the outcome of every file of a batch.
type IngestResult struct {
	Accepted []types.Image
	Rejected []Rejection
}

// ImageCreator inserts image rows, assigning their ids.
type ImageCreator interface {
	Create(ctx context.Context, image types.Image) (types.Image, error)
}

// Thumbnailer renders the square preview of an image payload.
type Thumbnailer interface {
	Make(data []byte, filename string) (thumbnail.Result, error)
}

// IngestService stores uploaded images with their thumbnails and records
// them in the catalog.
type IngestService struct {
	categories   CategoryRepository
	images       ImageCreator
	blobs        BlobStore
	thumbs       Thumbnailer
	events       *Events
	maxFileBytes int64
	now          func() time.Time
}

func NewIngestService(
	categories CategoryRepository,
	images ImageCreator,
	blobs BlobStore,
	thumbs Thumbnailer,
	events *Events,
	maxFileBytes int64,
) *IngestService {
	if maxFileBytes <= 0 {
		maxFileBytes = defaultMaxFileBytes
	}
	return &IngestService{
		categories:   categories,
		images:       images,
		blobs:        blobs,
		thumbs:       thumbs,
		events:       events,
		maxFileBytes: maxFileBytes,
		now:          time.Now,
	}
}

// Ingest processes every file independently. Accepted files are never rolled
// back when a later one fails. If nothing was accepted the result is still
// returned together with a bad request error.
func (s *IngestService) Ingest(ctx context.Context, subject access.Subject, categoryID string, files []UploadedFile) (IngestResult, error) {
	category, err := s.categories.Get(ctx, categoryID)
	if err != nil {
		return IngestResult{}, categoryLookupError(err)
	}
	if !access.Evaluate(subject, access.Resource{Kind: access.KindCategory, OwnerID: category.OwnerUserID}).CanEdit {
		return IngestResult{}, forbidden(MsgForbidden)
	}
	if len(files) == 0 {
		return IngestResult{}, badRequest(msgNoFiles)
	}

	result := IngestResult{
		Accepted: make([]types.Image, 0, len(files)),
		Rejected: []Rejection{},
	}
	names := batchNames{}
	for _, file := range files {
		image, reason := s.ingestOne(ctx, subject, category, file, names)
		if reason != "" {
			result.Rejected = append(result.Rejected, Rejection{Filename: file.Filename, Reason: reason})
			continue
		}
		result.Accepted = append(result.Accepted, image)
	}

	if len(result.Accepted) == 0 {
		return result, badRequest(msgNoFileSucceeded)
	}

	for _, image := range result.Accepted {
		s.events.Emit(ctx, EventImageIngested, category.ID, image.ID, subject.UserID)
	}
	return result, nil
}

// ingestOne validates, stores and records a single file. It returns a
// non-empty reason when the file was skipped; blobs written for the file
// are removed again in that case.
func (s *IngestService) ingestOne(ctx context.Context, subject access.Subject, category types.Category, file UploadedFile, names batchNames) (types.Image, string) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(file.ContentType)), "image/") {
		return types.Image{}, msgNotAnImage
	}
	if file.Size > s.maxFileBytes || int64(len(file.Data)) > s.maxFileBytes {
		return types.Image{}, msgFileTooLarge
	}
	if len(file.Data) == 0 {
		return types.Image{}, msgFileEmpty
	}

	base := SanitizeFilename(file.Filename)
	stamp := names.reserve(s.now().UnixMilli(), base)
	storedName := fmt.Sprintf("%d-%s", stamp, base)
	originalKey := storage.OriginalKey(category.Slug, storedName)

	if err := s.blobs.Put(ctx, originalKey, bytes.NewReader(file.Data), int64(len(file.Data)), file.ContentType); err != nil {
		slog.Warn("store original failed", "category_id", category.ID, "key", originalKey, "error", err)
		return types.Image{}, msgStoreFailed
	}

	thumb, err := s.thumbs.Make(file.Data, base)
	if err != nil {
		slog.Warn("thumbnail failed", "category_id", category.ID, "file", base, "error", err)
		s.cleanup(ctx, originalKey)
		return types.Image{}, msgThumbnailFailed
	}

	stem := strings.TrimSuffix(base, path.Ext(base))
	thumbName := fmt.Sprintf("%d-%s%s%s", stamp, stem, thumbnailNameSuffix, thumb.Ext)
	thumbKey := storage.ThumbnailKey(category.Slug, thumbName)
	contentType := thumb.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(thumb.Data)
	}
	if err := s.blobs.Put(ctx, thumbKey, bytes.NewReader(thumb.Data), int64(len(thumb.Data)), contentType); err != nil {
		slog.Warn("store thumbnail failed", "category_id", category.ID, "key", thumbKey, "error", err)
		s.cleanup(ctx, originalKey)
		return types.Image{}, msgStoreFailed
	}

	image, err := s.images.Create(ctx, types.Image{
		Name:         truncateRunes(strings.TrimSpace(file.Filename), maxNameLength),
		SizeBytes:    int64(len(file.Data)),
		ImageURL:     storage.PublicURL(originalKey),
		ThumbnailURL: storage.PublicURL(thumbKey),
		CategoryID:   category.ID,
		OwnerUserID:  subject.UserID,
		UploadedAt:   s.now(),
	})
	if err != nil {
		slog.Warn("save image record failed", "category_id", category.ID, "file", base, "error", err)
		s.cleanup(ctx, originalKey, thumbKey)
		return types.Image{}, msgSaveRecordFailed
	}
	return image, ""
}

func (s *IngestService) cleanup(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			slog.Warn("cleanup blob failed", "key", key, "error", err)
		}
	}
}

// batchNames tracks the stamped names handed out within one batch. Files
// sharing a name, or a stem that yields the same thumbnail, usually land in
// the same millisecond and would overwrite each other's blobs.
type batchNames map[string]struct{}

// reserve returns the first stamp, starting at stamp, whose original name and
// thumbnail prefix are both unused in the batch, and marks them used.
func (b batchNames) reserve(stamp int64, base string) int64 {
	stem := strings.TrimSuffix(base, path.Ext(base))
	for ; ; stamp++ {
		original := fmt.Sprintf("%d-%s", stamp, base)
		thumb := fmt.Sprintf("thumb:%d-%s", stamp, stem)
		_, usedOriginal := b[original]
		_, usedThumb := b[thumb]
		if !usedOriginal && !usedThumb {
			b[original] = struct{}{}
			b[thumb] = struct{}{}
			return stamp
		}
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// SanitizeFilename keeps the base name of an uploaded file and replaces each
// run of whitespace with an underscore.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	base := path.Base(name)
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	return whitespaceRun.ReplaceAllString(base, "_")
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
