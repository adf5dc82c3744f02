package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubResumeStore struct {
	data        []byte
	contentType string
	err         error
}

func (s *stubResumeStore) EnsureBucket(ctx context.Context) error { return nil }

func (s *stubResumeStore) Upload(ctx context.Context, contentType string, reader io.Reader, size int64) (string, error) {
	return resumeKeyPrefix + uuid.NewString() + ".txt", nil
}

func (s *stubResumeStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://files.example/" + key, nil
}

func (s *stubResumeStore) Read(ctx context.Context, key string, limit int64) ([]byte, string, int64, error) {
	if s.err != nil {
		return nil, "", 0, s.err
	}
	return s.data, s.contentType, int64(len(s.data)), nil
}

func TestValidResumeKey(t *testing.T) {
	id := uuid.NewString()
	tests := []struct {
		key  string
		want bool
	}{
		{"resumes/" + id + ".pdf", true},
		{"resumes/" + id + ".docx", true},
		{"resumes/" + id + ".exe", false},
		{"resumes/not-a-uuid.pdf", false},
		{"other/" + id + ".pdf", false},
		{"resumes/../" + id + ".pdf", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidResumeKey(tt.key))
		})
	}
}

func TestMatchSkills(t *testing.T) {
	text := "Senior engineer: Go, PostgreSQL and Kubernetes. Strong Project Management; some JavaScript."

	got := matchSkills(text, defaultSkills)

	assert.Equal(t, []string{"go", "javascript", "kubernetes", "postgresql", "project management"}, got)
	assert.Empty(t, matchSkills("gopher", defaultSkills))
}

func TestResumeExtractor_PlainText(t *testing.T) {
	store := &stubResumeStore{data: []byte("Python   and\nSQL developer"), contentType: "text/plain"}

	profile, err := NewResumeExtractor(store, zap.NewNop()).Extract(context.Background(), "resumes/x.txt")

	require.NoError(t, err)
	assert.Equal(t, "Python and SQL developer", profile.Text)
	assert.Equal(t, []string{"python", "sql"}, profile.Skills)
	assert.Equal(t, int64(26), profile.SizeBytes)
}

func TestResumeExtractor_BinaryFallsBackToPrintableRuns(t *testing.T) {
	data := append([]byte{0x25, 0x50, 0x00, 0x01, 0x02}, []byte("Docker expert\x00\x00\x01ok")...)
	store := &stubResumeStore{data: data, contentType: "application/pdf"}

	profile, err := NewResumeExtractor(store, zap.NewNop()).Extract(context.Background(), "resumes/x.pdf")

	require.NoError(t, err)
	assert.Contains(t, profile.Text, "Docker expert")
	assert.NotContains(t, profile.Text, "ok")
	assert.Equal(t, []string{"docker"}, profile.Skills)
}

func TestResumeExtractor_TruncatesText(t *testing.T) {
	store := &stubResumeStore{data: []byte(strings.Repeat("é", maxProfileText)), contentType: "text/plain"}

	profile, err := NewResumeExtractor(store, zap.NewNop()).Extract(context.Background(), "resumes/x.txt")

	require.NoError(t, err)
	assert.LessOrEqual(t, len(profile.Text), maxProfileText)
	assert.True(t, strings.HasPrefix(strings.Repeat("é", maxProfileText), profile.Text))
}

func TestResumeExtractor_ReadFailure(t *testing.T) {
	store := &stubResumeStore{err: errors.New("bucket gone")}

	_, err := NewResumeExtractor(store, zap.NewNop()).Extract(context.Background(), "resumes/x.pdf")

	assert.ErrorContains(t, err, "bucket gone")
}
