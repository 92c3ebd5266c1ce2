package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otravers/otravers/backend/go-services/internal/apperr"
)

// MaxUploadSize is the largest media file accepted.
const MaxUploadSize = 10 << 20

// Object describes a stored blob.
type Object struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
	URL         string    `json:"url,omitempty"`
}

// BlobStore is the blob storage collaborator: upload, list and delete by key.
type BlobStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, key string) error
}

// URLSigner is implemented by stores that can hand out temporary download links.
type URLSigner interface {
	URL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Media stores files under "<owner>/<id>" keys.
type Media struct {
	blobs  BlobStore
	urlTTL time.Duration
	now    func() time.Time
}

func NewMedia(blobs BlobStore) *Media {
	return &Media{blobs: blobs, urlTTL: time.Hour, now: func() time.Time { return time.Now().UTC() }}
}

func validSegment(s string) bool {
	return s != "" && !strings.ContainsAny(s, "/\\") && s != "." && s != ".."
}

func allowedType(ct string) bool {
	return strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/")
}

// Upload stores r for owner and returns the new object.
func (m *Media) Upload(ctx context.Context, owner string, r io.Reader, size int64, contentType string) (Object, error) {
	if !validSegment(owner) {
		return Object{}, apperr.New(apperr.KindValidation, "Invalid owner")
	}
	if size <= 0 || size > MaxUploadSize {
		return Object{}, apperr.New(apperr.KindValidation, "File must be between 1 byte and 10MB")
	}
	if !allowedType(contentType) {
		return Object{}, apperr.New(apperr.KindValidation, "Only image and video files are accepted")
	}
	id := uuid.NewString()
	key := path.Join(owner, id)
	if err := m.blobs.Upload(ctx, key, r, size, contentType); err != nil {
		return Object{}, apperr.Wrap(apperr.KindServiceFailure, "Upload failed", err)
	}
	obj := Object{ID: id, Owner: owner, Key: key, Size: size, ContentType: contentType, UploadedAt: m.now()}
	m.sign(ctx, &obj)
	return obj, nil
}

// List returns the objects of owner.
func (m *Media) List(ctx context.Context, owner string) ([]Object, error) {
	if !validSegment(owner) {
		return nil, apperr.New(apperr.KindValidation, "Invalid owner")
	}
	objs, err := m.blobs.List(ctx, owner+"/")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindServiceFailure, "Listing failed", err)
	}
	out := make([]Object, 0, len(objs))
	for _, o := range objs {
		o.Owner = owner
		o.ID = path.Base(o.Key)
		m.sign(ctx, &o)
		out = append(out, o)
	}
	return out, nil
}

// Delete removes object id of owner. Deleting a missing object succeeds.
func (m *Media) Delete(ctx context.Context, owner, id string) error {
	if !validSegment(owner) || !validSegment(id) {
		return apperr.New(apperr.KindValidation, "Invalid media id")
	}
	if err := m.blobs.Delete(ctx, path.Join(owner, id)); err != nil {
		return apperr.Wrap(apperr.KindServiceFailure, "Delete failed", err)
	}
	return nil
}

func (m *Media) sign(ctx context.Context, o *Object) {
	signer, ok := m.blobs.(URLSigner)
	if !ok {
		return
	}
	if u, err := signer.URL(ctx, o.Key, m.urlTTL); err == nil {
		o.URL = u
	}
}
