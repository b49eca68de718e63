package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const MaxDocumentBytes = 10 << 20

// FileContentRepo stores document bytes addressed by content hash.
type FileContentRepo interface {
	Put(ctx context.Context, tenantID, contentID, contentType string, content []byte) error
	Get(ctx context.Context, tenantID, contentID string) ([]byte, error)
}

var ErrFileContentNotFound = fmt.Errorf("%w: file content not found", ErrNotFound)

// DocumentUpload is a file sent for attachment to a quote.
type DocumentUpload struct {
	Name        string
	ContentType string
	Content     []byte
}

func (u DocumentUpload) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: document name is required", ErrValidation)
	}
	if path.Base(u.Name) != u.Name {
		return fmt.Errorf("%w: document name must not contain a path", ErrValidation)
	}
	if len(u.Content) == 0 {
		return fmt.Errorf("%w: document is empty", ErrValidation)
	}
	if len(u.Content) > MaxDocumentBytes {
		return newError(ErrValidation, "document.too.large", "Document too large",
			fmt.Sprintf("documents are limited to %d bytes", MaxDocumentBytes))
	}
	return nil
}

// ContentID is the hex sha256 of content.
func ContentID(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// StoreDocument writes the upload's bytes and returns the document to attach.
// A missing or generic content type is detected from the bytes.
func StoreDocument(ctx context.Context, files FileContentRepo, tenantID string, u DocumentUpload, now time.Time) (QuoteDocument, error) {
	if err := u.Validate(); err != nil {
		return QuoteDocument{}, err
	}
	contentType := u.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(u.Content).String()
	}
	id := ContentID(u.Content)
	if err := files.Put(ctx, tenantID, id, contentType, u.Content); err != nil {
		return QuoteDocument{}, fmt.Errorf("store document %q: %w", u.Name, err)
	}
	return QuoteDocument{
		Name:          u.Name,
		ContentType:   contentType,
		SizeBytes:     int64(len(u.Content)),
		FileContentID: id,
		CreatedAt:     now,
	}, nil
}
