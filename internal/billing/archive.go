package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/korberlin/apigateway/pkg/file"
)

// S3Archiver snapshots each generated invoice as a JSON object in S3,
// independent of the relational row, so a finance export or dispute
// investigation never depends on the operational database (SPEC_FULL
// §12.6). Grounded on pkg/file.S3Client, the interface the teacher's
// S3Storage already uses for PutObject — invoices are written directly
// through it rather than through Storage.Save, which expects a
// multipart upload rather than a generated document.
type S3Archiver struct {
	client file.S3Client
	bucket string
	prefix string
	log    *slog.Logger
}

// NewS3Archiver returns an Archiver that writes to bucket under prefix
// (e.g. "invoices/").
func NewS3Archiver(client file.S3Client, bucket, prefix string, log *slog.Logger) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix, log: log}
}

// Archive is best-effort: a failed upload is logged, not returned, so it
// never blocks invoice generation (same rationale as WebhookNotifier).
func (a *S3Archiver) Archive(ctx context.Context, inv *Invoice) {
	body, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		a.log.ErrorContext(ctx, "billing: failed to marshal invoice for archival", "invoice_id", inv.ID, "error", err)
		return
	}

	key := fmt.Sprintf("%s%s.json", a.prefix, inv.Number)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: strPtr("application/json"),
	})
	if err != nil {
		a.log.ErrorContext(ctx, "billing: invoice archive upload failed", "invoice_id", inv.ID, "key", key, "error", err)
	}
}

func strPtr(s string) *string { return &s }
