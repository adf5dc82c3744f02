package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"talentdesk/internal/common"
	"talentdesk/internal/models"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const (
	maxResumeSize     = 5 << 20
	maxExtractedBytes = 1 << 20
	maxProfileText    = 4000
	resumeKeyPrefix   = "resumes/"
)

var allowedResumeTypes = map[string]string{
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"text/plain": ".txt",
}

// ResumeStore keeps uploaded résumés in object storage.
type ResumeStore interface {
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, contentType string, reader io.Reader, size int64) (string, error)
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	// Read returns at most limit bytes of the object with its metadata.
	Read(ctx context.Context, key string, limit int64) (data []byte, contentType string, size int64, err error)
}

type minioResumeStore struct {
	client *minio.Client
	bucket string
}

func NewMinioResumeStore(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (ResumeStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioResumeStore{client: client, bucket: bucket}, nil
}

func (m *minioResumeStore) EnsureBucket(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (m *minioResumeStore) Upload(ctx context.Context, contentType string, reader io.Reader, size int64) (string, error) {
	ext, ok := allowedResumeTypes[contentType]
	if !ok {
		return "", common.NewValidationError("file", "must be a PDF, Word or plain text document")
	}
	if size <= 0 || size > maxResumeSize {
		return "", common.NewValidationError("file", fmt.Sprintf("must be between 1 byte and %d bytes", maxResumeSize))
	}

	key := resumeKeyPrefix + uuid.NewString() + ext
	_, err := m.client.PutObject(ctx, m.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("store resume: %w", err)
	}
	return key, nil
}

func (m *minioResumeStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, nil)
	if err != nil {
		return "", err
	}
	return url.String(), nil
}

func (m *minioResumeStore) Read(ctx context.Context, key string, limit int64) ([]byte, string, int64, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", 0, err
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, "", 0, err
	}
	data, err := io.ReadAll(io.LimitReader(obj, limit))
	if err != nil {
		return nil, "", 0, err
	}
	return data, info.ContentType, info.Size, nil
}

// ValidResumeKey reports whether key names an object this store could have
// produced.
func ValidResumeKey(key string) bool {
	base, ok := strings.CutPrefix(key, resumeKeyPrefix)
	if !ok || strings.Contains(base, "/") {
		return false
	}
	ext := path.Ext(base)
	if _, err := uuid.Parse(strings.TrimSuffix(base, ext)); err != nil {
		return false
	}
	for _, allowed := range allowedResumeTypes {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ResumeExtractor produces a best-effort profile of an uploaded résumé.
type ResumeExtractor interface {
	Extract(ctx context.Context, key string) (*models.ResumeProfile, error)
}

type resumeExtractor struct {
	store  ResumeStore
	skills []string
	logger *zap.Logger
}

var defaultSkills = []string{
	"go", "golang", "python", "java", "javascript", "typescript", "sql", "postgresql",
	"kubernetes", "docker", "aws", "react", "excel", "sales", "marketing", "accounting",
	"project management", "customer service", "communication", "leadership",
}

func NewResumeExtractor(store ResumeStore, logger *zap.Logger) ResumeExtractor {
	return &resumeExtractor{store: store, skills: defaultSkills, logger: logger}
}

var printableRun = regexp.MustCompile(`[\p{L}\p{N}\p{P}\p{Zs}]{4,}`)

// Extract reads the object head. Plain text is used as is; other formats fall
// back to the printable runs found in the raw bytes.
func (e *resumeExtractor) Extract(ctx context.Context, key string) (*models.ResumeProfile, error) {
	data, contentType, size, err := e.store.Read(ctx, key, maxExtractedBytes)
	if err != nil {
		return nil, fmt.Errorf("read resume %s: %w", key, err)
	}

	var text string
	if strings.HasPrefix(contentType, "text/") && utf8.Valid(data) {
		text = string(data)
	} else {
		text = string(bytes.Join(printableRun.FindAll(data, -1), []byte(" ")))
	}
	text = strings.Join(strings.Fields(text), " ")

	profile := &models.ResumeProfile{
		ContentType: contentType,
		SizeBytes:   size,
		Skills:      matchSkills(text, e.skills),
	}
	if len(text) > maxProfileText {
		text = text[:maxProfileText]
		for !utf8.ValidString(text) {
			text = text[:len(text)-1]
		}
	}
	profile.Text = text
	return profile, nil
}

func matchSkills(text string, vocabulary []string) []string {
	words := map[string]bool{}
	lower := strings.ToLower(text)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !(r == '+' || r == '#' || r == '.' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9'))
	}) {
		words[strings.Trim(w, ".")] = true
	}

	var found []string
	for _, skill := range vocabulary {
		if strings.Contains(skill, " ") {
			if strings.Contains(lower, skill) {
				found = append(found, skill)
			}
			continue
		}
		if words[skill] {
			found = append(found, skill)
		}
	}
	sort.Strings(found)
	return found
}
